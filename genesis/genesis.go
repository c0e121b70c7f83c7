// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the initial world state and the block that
// anchors the chain.
package genesis

import (
	"math/big"

	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

// Genesis describes how to set up the initial state.
type Genesis struct {
	name       string
	launchTime uint64
	setup      func(st *state.State) error
}

// Name returns the network name.
func (g *Genesis) Name() string { return g.name }

// Build initializes the world state and returns the genesis block.
// The genesis parent id is the hash of the network name, so chains with
// different setups never share block ids.
func (g *Genesis) Build(stater *state.Stater) (*block.Block, error) {
	st := stater.NewState()
	if err := g.setup(st); err != nil {
		return nil, err
	}
	if err := st.Stage().Commit(); err != nil {
		return nil, err
	}
	header := block.NewHeader(0, mesh.Blake2b([]byte(g.name)), g.launchTime)
	return block.New(header, nil), nil
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big integer literal: " + s)
	}
	return v
}

// NewDevnet creates the dev network genesis: pre-funded dev accounts,
// dev account 0 as administrator, the three node types pre-configured
// and the participation contract authorized as a performance updater.
func NewDevnet() *Genesis {
	launchTime := uint64(1735689600) // '2025-01-01T00:00:00.000Z'

	return &Genesis{
		name:       "devnet",
		launchTime: launchTime,
		setup: func(st *state.State) error {
			nativeEndow := mustBig("1000000000000000000000000") // 1M native
			tokenEndow := mustBig("1000000000000000000000000")  // 1M token

			tok := builtin.Token(st)
			for _, acc := range DevAccounts() {
				if err := st.SetBalance(acc.Address, new(big.Int).Set(nativeEndow)); err != nil {
					return err
				}
				if err := tok.Mint(acc.Address, tokenEndow); err != nil {
					return err
				}
			}

			r := builtin.Rights(st)
			if err := r.SetAdmin(DevAccounts()[0].Address); err != nil {
				return err
			}
			if err := r.SetConfig(rights.TypeStorage, &rights.Config{
				MinNativeStake: mustBig("1500000000000000000"),    // 1.5 native
				MinTokenStake:  mustBig("1000000000000000000000"), // 1000 token
				RewardRate:     mustBig("1000000000000"),
				MaxCapacity:    0,
				Active:         true,
			}); err != nil {
				return err
			}
			if err := r.SetConfig(rights.TypeCompute, &rights.Config{
				MinNativeStake: mustBig("3000000000000000000"),    // 3 native
				MinTokenStake:  mustBig("2000000000000000000000"), // 2000 token
				RewardRate:     mustBig("2500000000000"),
				MaxCapacity:    10000,
				Active:         true,
			}); err != nil {
				return err
			}
			if err := r.SetConfig(rights.TypeBandwidth, &rights.Config{
				MinNativeStake: mustBig("1000000000000000000"),   // 1 native
				MinTokenStake:  mustBig("500000000000000000000"), // 500 token
				RewardRate:     mustBig("800000000000"),
				MaxCapacity:    0,
				Active:         true,
			}); err != nil {
				return err
			}
			// the participation ledger may push performance reports
			return r.SetUpdater(builtin.ParticipationAddress, true)
		},
	}
}
