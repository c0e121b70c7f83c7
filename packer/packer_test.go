// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/genesis"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/packer"
	"github.com/gridmesh/gridmesh/state"
	"github.com/gridmesh/gridmesh/tx"
)

func newPacker(t *testing.T) (*packer.Packer, *chain.Repository, *state.Stater) {
	store, _ := lvldb.NewMem()
	stater := state.NewStater(store)

	genesisBlock, err := genesis.NewDevnet().Build(stater)
	require.NoError(t, err)
	repo, err := chain.NewRepository(store, genesisBlock)
	require.NoError(t, err)

	return packer.New(stater, repo, nil), repo, stater
}

func registerOp(nonce uint64, metadata string) *tx.Operation {
	return tx.MustSign(
		tx.NewBuilder().
			Nonce(nonce).
			Method("registerNode").
			Args(struct{ Metadata string }{metadata}).
			Build(),
		genesis.DevAccounts()[0].PrivateKey)
}

func TestPackEmpty(t *testing.T) {
	p, _, _ := newPacker(t)
	blk, receipts, err := p.Pack(2000)
	require.NoError(t, err)
	assert.Nil(t, blk)
	assert.Nil(t, receipts)
}

func TestPack(t *testing.T) {
	p, repo, stater := newPacker(t)

	require.NoError(t, p.Add(registerOp(0, "a")))
	require.NoError(t, p.Add(registerOp(1, "b")))
	assert.Equal(t, 2, p.PendingCount())

	now := repo.BestBlock().Header().Timestamp() + 10
	blk, receipts, err := p.Pack(now)
	require.NoError(t, err)
	require.NotNil(t, blk)
	assert.Equal(t, uint32(1), blk.Header().Number())
	assert.Equal(t, now, blk.Header().Timestamp())
	require.Len(t, receipts, 2)
	assert.False(t, receipts[0].Reverted)
	assert.Equal(t, 0, p.PendingCount())

	count, err := builtin.Registry(stater.NewState()).Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	assert.Equal(t, blk.Header().ID(), repo.BestBlock().Header().ID())
}

func TestPackDropsStaleNonce(t *testing.T) {
	p, repo, _ := newPacker(t)

	require.NoError(t, p.Add(registerOp(0, "a")))
	require.NoError(t, p.Add(registerOp(0, "duplicate-nonce")))

	blk, receipts, err := p.Pack(repo.BestBlock().Header().Timestamp() + 10)
	require.NoError(t, err)
	require.NotNil(t, blk)
	// the duplicate is dropped, not reverted
	assert.Len(t, receipts, 1)
	assert.Len(t, blk.Operations(), 1)
}

func TestPackMonotonicTimestamp(t *testing.T) {
	p, repo, _ := newPacker(t)

	require.NoError(t, p.Add(registerOp(0, "a")))
	parentTime := repo.BestBlock().Header().Timestamp()

	// a stale clock still yields a strictly increasing block time
	blk, _, err := p.Pack(parentTime - 100)
	require.NoError(t, err)
	require.NotNil(t, blk)
	assert.Equal(t, parentTime+1, blk.Header().Timestamp())
}

func TestAddRejectsExpired(t *testing.T) {
	p, _, _ := newPacker(t)

	op := tx.MustSign(
		tx.NewBuilder().
			Expiration(0). // 0 means no expiration
			Method("registerNode").
			Args(struct{ Metadata string }{""}).
			Build(),
		genesis.DevAccounts()[0].PrivateKey)
	require.NoError(t, p.Add(op))

	// expiration below the next block number
	p2, repo, _ := newPacker(t)
	require.NoError(t, p2.Add(registerOp(0, "fill")))
	_, _, err := p2.Pack(repo.BestBlock().Header().Timestamp() + 10)
	require.NoError(t, err)

	expired := tx.MustSign(
		tx.NewBuilder().
			Nonce(1).
			Expiration(1).
			Method("registerNode").
			Args(struct{ Metadata string }{""}).
			Build(),
		genesis.DevAccounts()[0].PrivateKey)
	assert.Error(t, p2.Add(expired))
}
