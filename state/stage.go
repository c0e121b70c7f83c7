// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/kv"
	"github.com/gridmesh/gridmesh/mesh"
)

// Stage abstracts the changes on the fly, to be committed to the
// backing store in one batch.
type Stage struct {
	batch kv.Batch
	err   error
}

// Stage makes a new stage out of the current journal.
// The state remains usable afterwards; a stage captures a snapshot of
// all changes made so far.
func (s *State) Stage() *Stage {
	stage := &Stage{batch: s.store.NewBatch()}

	// last write wins per key; the batch keeps put order, so replaying
	// the journal in order is sufficient.
	s.sm.Journal(func(k, v interface{}) bool {
		switch key := k.(type) {
		case accountKey:
			acc := v.(*Account)
			if acc.IsEmpty() {
				stage.err = stage.batch.Delete(accountStoreKey(mesh.Address(key)))
			} else {
				var data []byte
				if data, stage.err = rlp.EncodeToBytes(acc); stage.err == nil {
					stage.err = stage.batch.Put(accountStoreKey(mesh.Address(key)), data)
				}
			}
		case storageKey:
			raw := v.([]byte)
			if len(raw) == 0 {
				stage.err = stage.batch.Delete(storageStoreKey(key.addr, key.key))
			} else {
				stage.err = stage.batch.Put(storageStoreKey(key.addr, key.key), raw)
			}
		}
		return stage.err == nil
	})
	return stage
}

// Commit commits the stage to the backing store.
func (stage *Stage) Commit() error {
	if stage.err != nil {
		return &Error{stage.err}
	}
	if err := stage.batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}
