// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin hosts the native contracts and the method dispatch
// that routes signed operations to them.
package builtin

import (
	"math/big"

	"github.com/gridmesh/gridmesh/builtin/participation"
	"github.com/gridmesh/gridmesh/builtin/registry"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/builtin/token"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

// Well-known addresses of the native contracts.
var (
	RegistryAddress      = mesh.BytesToAddress([]byte("Registry"))
	ParticipationAddress = mesh.BytesToAddress([]byte("Participation"))
	RightsAddress        = mesh.BytesToAddress([]byte("NodeRights"))
	TokenAddress         = mesh.BytesToAddress([]byte("Token"))
)

// TokenLedger is the fungible-token capability the core contracts are
// declared against. Stake escrow, slashing burns and reward payouts go
// through this interface rather than a concrete ledger.
type TokenLedger interface {
	BalanceOf(addr mesh.Address) (*big.Int, error)
	Transfer(from, to mesh.Address, amount *big.Int) (bool, error)
	Mint(to mesh.Address, amount *big.Int) error
	Burn(from mesh.Address, amount *big.Int) (bool, error)
}

// Registry binds the node registry contract to the given state.
func Registry(st *state.State) *registry.Registry {
	return registry.New(RegistryAddress, st)
}

// Participation binds the participation ledger contract to the given state.
func Participation(st *state.State) *participation.Participation {
	return participation.New(ParticipationAddress, st, Registry(st))
}

// Rights binds the node rights engine contract to the given state.
func Rights(st *state.State) *rights.Rights {
	return rights.New(RightsAddress, st)
}

// Token binds the reward-token ledger contract to the given state.
func Token(st *state.State) TokenLedger {
	return token.New(TokenAddress, st)
}
