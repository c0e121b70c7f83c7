// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

var countKey = mesh.Blake2b([]byte("node-count"))

func nodeKey(id uint64) mesh.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return mesh.Blake2b([]byte("node"), b[:])
}

// Registry implements the node registry: it assigns sequential identities
// to registered nodes. Identities are never destroyed.
type Registry struct {
	addr  mesh.Address
	state *state.State
}

// New create a new instance.
func New(addr mesh.Address, state *state.State) *Registry {
	return &Registry{addr, state}
}

func (r *Registry) getEntry(id uint64) (*entry, error) {
	var entry entry
	if err := r.state.DecodeStorage(r.addr, nodeKey(id), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &entry)
	}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Registry) setEntry(id uint64, entry *entry) error {
	return r.state.EncodeStorage(r.addr, nodeKey(id), func() ([]byte, error) {
		return rlp.EncodeToBytes(entry)
	})
}

// Count returns the number of registered nodes, which is also the next id.
func (r *Registry) Count() (count uint64, err error) {
	err = r.state.DecodeStorage(r.addr, countKey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &count)
	})
	return
}

func (r *Registry) setCount(count uint64) error {
	return r.state.EncodeStorage(r.addr, countKey, func() ([]byte, error) {
		return rlp.EncodeToBytes(count)
	})
}

// Add registers a new node owned by the given owner.
// It always succeeds and returns the assigned sequential id.
func (r *Registry) Add(owner mesh.Address, metadata string, registeredAt uint64) (uint64, error) {
	id, err := r.Count()
	if err != nil {
		return 0, err
	}
	if err := r.setEntry(id, &entry{
		Owner:        owner,
		Metadata:     metadata,
		RegisteredAt: registeredAt,
	}); err != nil {
		return 0, err
	}
	if err := r.setCount(id + 1); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the node with the given id, or exists == false if the id
// was never assigned.
func (r *Registry) Get(id uint64) (node *Node, exists bool, err error) {
	count, err := r.Count()
	if err != nil {
		return nil, false, err
	}
	if id >= count {
		return nil, false, nil
	}
	entry, err := r.getEntry(id)
	if err != nil {
		return nil, false, err
	}
	return &Node{
		ID:           id,
		Owner:        entry.Owner,
		Metadata:     entry.Metadata,
		RegisteredAt: entry.RegisteredAt,
	}, true, nil
}

// Range lists nodes in registration order, starting at offset.
func (r *Registry) Range(offset, limit uint64) ([]*Node, error) {
	count, err := r.Count()
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, limit)
	for id := offset; id < count && uint64(len(nodes)) < limit; id++ {
		node, _, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
