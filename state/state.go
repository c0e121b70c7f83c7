// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/kv"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Account is the persistent form of an account.
// An account with zero balance and zero nonce is treated as empty
// and not persisted.
type Account struct {
	Balance *big.Int
	Nonce   uint64
}

// IsEmpty returns if the account is empty.
func (a *Account) IsEmpty() bool {
	return a.Balance.Sign() == 0 && a.Nonce == 0
}

func emptyAccount() *Account {
	return &Account{Balance: &big.Int{}}
}

// keys of the stacked revision map.
type (
	accountKey mesh.Address
	storageKey struct {
		addr mesh.Address
		key  mesh.Bytes32
	}
)

func accountStoreKey(addr mesh.Address) []byte {
	return append([]byte("a"), addr.Bytes()...)
}

func storageStoreKey(addr mesh.Address, key mesh.Bytes32) []byte {
	return append(append([]byte("s"), addr.Bytes()...), key.Bytes()...)
}

// State manages the world state: native-coin accounts and per-contract
// structured storage. All mutations are journaled and only hit the
// backing store when a stage is committed.
type State struct {
	store kv.GetPutter
	sm    *stackedmap.StackedMap
}

// New create a state object on the given store.
func New(store kv.GetPutter) *State {
	state := State{store: store}
	state.sm = stackedmap.New(func(key interface{}) (interface{}, bool, error) {
		return state.cacheGetter(key)
	})
	// the bottom checkpoint, so that stage commits can flatten the full journal
	state.sm.Push()
	return &state
}

// cacheGetter implements stackedmap.MapGetter, loading values from the backing store.
func (s *State) cacheGetter(key interface{}) (value interface{}, exist bool, err error) {
	switch k := key.(type) {
	case accountKey:
		data, err := s.store.Get(accountStoreKey(mesh.Address(k)))
		if err != nil {
			if s.store.IsNotFound(err) {
				return emptyAccount(), true, nil
			}
			return nil, false, err
		}
		var acc Account
		if err := rlp.DecodeBytes(data, &acc); err != nil {
			return nil, false, err
		}
		return &acc, true, nil
	case storageKey:
		data, err := s.store.Get(storageStoreKey(k.addr, k.key))
		if err != nil {
			if s.store.IsNotFound(err) {
				return []byte(nil), true, nil
			}
			return nil, false, err
		}
		return data, true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

func (s *State) getAccount(addr mesh.Address) (*Account, error) {
	v, _, err := s.sm.Get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

func (s *State) getAccountCopy(addr mesh.Address) (Account, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return Account{}, err
	}
	return *acc, nil
}

func (s *State) updateAccount(addr mesh.Address, acc *Account) {
	s.sm.Put(accountKey(addr), acc)
}

// GetBalance returns native-coin balance for the given address.
func (s *State) GetBalance(addr mesh.Address) (*big.Int, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return acc.Balance, nil
}

// SetBalance set native-coin balance for the given address.
func (s *State) SetBalance(addr mesh.Address, balance *big.Int) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Balance = balance
	s.updateAccount(addr, &cpy)
	return nil
}

// GetNonce returns nonce of the given address.
func (s *State) GetNonce(addr mesh.Address) (uint64, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return 0, &Error{err}
	}
	return acc.Nonce, nil
}

// SetNonce set nonce for the given address.
func (s *State) SetNonce(addr mesh.Address, nonce uint64) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Nonce = nonce
	s.updateAccount(addr, &cpy)
	return nil
}

// GetRawStorage returns storage value in raw form.
func (s *State) GetRawStorage(addr mesh.Address, key mesh.Bytes32) ([]byte, error) {
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return v.([]byte), nil
}

// SetRawStorage set storage value in raw form.
// Empty value deletes the storage slot.
func (s *State) SetRawStorage(addr mesh.Address, key mesh.Bytes32, raw []byte) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// An empty encoded value deletes the storage slot.
func (s *State) EncodeStorage(addr mesh.Address, key mesh.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// The dec method is called with nil raw when the slot is unset.
func (s *State) DecodeStorage(addr mesh.Address, key mesh.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}
