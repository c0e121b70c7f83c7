// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/logdb"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/tx"
)

func commitBlock(t *testing.T, db *logdb.LogDB, num uint32, events []*tx.Event) *block.Block {
	blk := block.New(block.NewHeader(num, mesh.Bytes32{}, 1000+uint64(num)*5), nil)
	receipts := tx.Receipts{{
		OpID:   mesh.Blake2b([]byte{byte(num)}),
		Origin: mesh.BytesToAddress([]byte("origin")),
		Method: "registerNode",
		Value:  big.NewInt(0),
		Events: events,
	}}
	require.NoError(t, db.Commit(blk, receipts))
	return blk
}

func TestFilterEvents(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	addr1 := mesh.BytesToAddress([]byte("Registry"))
	addr2 := mesh.BytesToAddress([]byte("NodeRights"))
	topicA := mesh.Keccak256([]byte("NodeRegistered"))
	topicB := mesh.Keccak256([]byte("NodeSlashed"))

	commitBlock(t, db, 1, []*tx.Event{
		{Address: addr1, Topics: []mesh.Bytes32{topicA}, Data: []byte("one")},
	})
	commitBlock(t, db, 2, []*tx.Event{
		{Address: addr2, Topics: []mesh.Bytes32{topicB}, Data: []byte("two")},
		{Address: addr1, Topics: []mesh.Bytes32{topicA}, Data: []byte("three")},
	})

	// unfiltered, ascending
	events, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []byte("one"), []byte(events[0].Data))

	// by address
	events, err = db.FilterEvents(context.Background(), &logdb.EventFilter{Address: &addr1})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// by topic0
	events, err = db.FilterEvents(context.Background(), &logdb.EventFilter{
		Topics: [4]*mesh.Bytes32{&topicB},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, addr2, events[0].Address)
	assert.Equal(t, uint32(2), events[0].BlockNumber)

	// block range
	events, err = db.FilterEvents(context.Background(), &logdb.EventFilter{FromBlock: 2})
	require.NoError(t, err)
	assert.Len(t, events, 2)
	events, err = db.FilterEvents(context.Background(), &logdb.EventFilter{ToBlock: 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// descending with limit
	events, err = db.FilterEvents(context.Background(), &logdb.EventFilter{
		Order:   logdb.DESC,
		Options: &logdb.Options{Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []byte("three"), []byte(events[0].Data))
}
