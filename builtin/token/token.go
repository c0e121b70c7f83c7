// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

var totalSupplyKey = mesh.Blake2b([]byte("total-supply"))

func accountKey(addr mesh.Address) mesh.Bytes32 {
	return mesh.BytesToBytes32(append([]byte("a"), addr.Bytes()...))
}

// Token is the fungible reward-token ledger. It implements the external
// collaborator capability the core contracts are declared against.
type Token struct {
	addr  mesh.Address
	state *state.State
}

// New create a new instance.
func New(addr mesh.Address, state *state.State) *Token {
	return &Token{addr, state}
}

func (t *Token) getAccount(addr mesh.Address) (*account, error) {
	var acc account
	if err := t.state.DecodeStorage(t.addr, accountKey(addr), func(raw []byte) error {
		return acc.decode(raw)
	}); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (t *Token) getAndSetAccount(addr mesh.Address, cb func(*account) bool) (bool, error) {
	acc, err := t.getAccount(addr)
	if err != nil {
		return false, err
	}
	if !cb(acc) {
		return false, nil
	}
	if err := t.state.EncodeStorage(t.addr, accountKey(addr), acc.encode); err != nil {
		return false, err
	}
	return true, nil
}

// TotalSupply returns total supply of the token.
func (t *Token) TotalSupply() (*big.Int, error) {
	supply := new(big.Int)
	if err := t.state.DecodeStorage(t.addr, totalSupplyKey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, supply)
	}); err != nil {
		return nil, err
	}
	return supply, nil
}

func (t *Token) addTotalSupply(delta *big.Int) error {
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	supply.Add(supply, delta)
	return t.state.EncodeStorage(t.addr, totalSupplyKey, func() ([]byte, error) {
		if supply.Sign() == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(supply)
	})
}

// BalanceOf returns token balance of an account.
func (t *Token) BalanceOf(addr mesh.Address) (*big.Int, error) {
	acc, err := t.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// Mint issues amount to the given account, growing total supply.
func (t *Token) Mint(to mesh.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if _, err := t.getAndSetAccount(to, func(acc *account) bool {
		acc.Balance = new(big.Int).Add(acc.Balance, amount)
		return true
	}); err != nil {
		return err
	}
	return t.addTotalSupply(amount)
}

// Burn destroys amount from the given account, shrinking total supply.
// It returns false if the balance is insufficient.
func (t *Token) Burn(from mesh.Address, amount *big.Int) (bool, error) {
	if amount.Sign() == 0 {
		return true, nil
	}
	ok, err := t.getAndSetAccount(from, func(acc *account) bool {
		if acc.Balance.Cmp(amount) < 0 {
			return false
		}
		acc.Balance = new(big.Int).Sub(acc.Balance, amount)
		return true
	})
	if err != nil || !ok {
		return ok, err
	}
	return true, t.addTotalSupply(new(big.Int).Neg(amount))
}

// Transfer moves amount between accounts.
// It returns false if the sender balance is insufficient.
func (t *Token) Transfer(from, to mesh.Address, amount *big.Int) (bool, error) {
	if amount.Sign() == 0 {
		return true, nil
	}
	ok, err := t.getAndSetAccount(from, func(acc *account) bool {
		if acc.Balance.Cmp(amount) < 0 {
			return false
		}
		acc.Balance = new(big.Int).Sub(acc.Balance, amount)
		return true
	})
	if err != nil || !ok {
		return ok, err
	}
	return t.getAndSetAccount(to, func(acc *account) bool {
		acc.Balance = new(big.Int).Add(acc.Balance, amount)
		return true
	})
}
