// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/builtin/registry"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

func newRegistry() *registry.Registry {
	store, _ := lvldb.NewMem()
	st := state.New(store)
	return registry.New(mesh.BytesToAddress([]byte("Registry")), st)
}

func TestRegistrySequentialIDs(t *testing.T) {
	reg := newRegistry()
	owner := mesh.BytesToAddress([]byte("owner"))

	for i := 0; i < 5; i++ {
		id, err := reg.Add(owner, fmt.Sprintf("node-%d", i), 1000+uint64(i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id)
	}

	count, err := reg.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}

func TestRegistryGet(t *testing.T) {
	reg := newRegistry()
	owner := mesh.BytesToAddress([]byte("owner"))

	id, err := reg.Add(owner, "Node A", 1234)
	require.NoError(t, err)

	node, exists, err := reg.Get(id)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, owner, node.Owner)
	assert.Equal(t, "Node A", node.Metadata)
	assert.Equal(t, uint64(1234), node.RegisteredAt)

	_, exists, err = reg.Get(99)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegistryRange(t *testing.T) {
	reg := newRegistry()
	owner := mesh.BytesToAddress([]byte("owner"))

	for i := 0; i < 10; i++ {
		_, err := reg.Add(owner, fmt.Sprintf("node-%d", i), uint64(i))
		require.NoError(t, err)
	}

	nodes, err := reg.Range(3, 4)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.Equal(t, uint64(3), nodes[0].ID)
	assert.Equal(t, uint64(6), nodes[3].ID)

	// ordered by registration time
	nodes, err = reg.Range(0, 100)
	require.NoError(t, err)
	require.Len(t, nodes, 10)
	for i := 1; i < len(nodes); i++ {
		assert.Less(t, nodes[i-1].RegisteredAt, nodes[i].RegisteredAt)
	}
}
