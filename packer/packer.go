// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package packer queues submitted operations and seals them into blocks.
package packer

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/co"
	"github.com/gridmesh/gridmesh/log"
	"github.com/gridmesh/gridmesh/logdb"
	"github.com/gridmesh/gridmesh/metrics"
	"github.com/gridmesh/gridmesh/runtime"
	"github.com/gridmesh/gridmesh/state"
	"github.com/gridmesh/gridmesh/tx"
	"github.com/gridmesh/gridmesh/xenv"
)

const maxPending = 10000

var (
	logger = log.New("pkg", "packer")

	metricOpsExecuted  = metrics.CounterVec("operations_executed_count", []string{"reverted"})
	metricOpsSkipped   = metrics.Counter("operations_skipped_count")
	metricPackDuration = metrics.Histogram("block_pack_duration_ms")
)

// Packer drains the pending operation queue into sealed blocks, one
// world state transition per block.
type Packer struct {
	stater *state.Stater
	repo   *chain.Repository
	logDB  *logdb.LogDB

	mu      sync.Mutex
	pending []*tx.Operation

	pendingSignal co.Signal
}

// New creates a packer. logDB may be nil to skip event indexing.
func New(stater *state.Stater, repo *chain.Repository, logDB *logdb.LogDB) *Packer {
	return &Packer{
		stater: stater,
		repo:   repo,
		logDB:  logDB,
	}
}

// Add queues a signed operation for inclusion in the next block.
func (p *Packer) Add(op *tx.Operation) error {
	if _, err := op.Origin(); err != nil {
		return errors.WithMessage(err, "invalid signature")
	}
	if exp := op.Expiration(); exp != 0 {
		if next := p.repo.BestBlock().Header().Number() + 1; next > exp {
			return errors.New("operation expired")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) >= maxPending {
		return errors.New("pending queue full")
	}
	p.pending = append(p.pending, op)
	p.pendingSignal.Signal()
	return nil
}

// PendingCount returns the number of queued operations.
func (p *Packer) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// PendingWaiter returns a waiter woken whenever an operation is queued.
func (p *Packer) PendingWaiter() co.Waiter {
	return p.pendingSignal.NewWaiter()
}

func (p *Packer) drain() []*tx.Operation {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := p.pending
	p.pending = nil
	return ops
}

// Pack seals all queued operations into a new block at the given unix
// time and commits the state transition. Returns nil when there was
// nothing to pack.
//
// Operations are executed in submission order. Rejected operations
// (expired, stale nonce, bad signature) are dropped; reverted ones are
// included with a revert receipt.
func (p *Packer) Pack(now uint64) (*block.Block, tx.Receipts, error) {
	ops := p.drain()
	if len(ops) == 0 {
		return nil, nil, nil
	}
	startTime := time.Now()

	parent := p.repo.BestBlock().Header()
	timestamp := now
	if timestamp <= parent.Timestamp() {
		// block time is strictly monotonic
		timestamp = parent.Timestamp() + 1
	}

	st := p.stater.NewState()
	rt := runtime.New(st, &xenv.BlockContext{
		Number: parent.Number() + 1,
		Time:   timestamp,
	})

	var (
		included []*tx.Operation
		receipts tx.Receipts
	)
	for _, op := range ops {
		receipt, err := rt.ExecuteOperation(op)
		if err != nil {
			if runtime.IsRejectedOp(err) {
				logger.Debug("dropped operation", "err", err)
				metricOpsSkipped.Add(1)
				continue
			}
			return nil, nil, err
		}
		included = append(included, op)
		receipts = append(receipts, receipt)
		metricOpsExecuted.AddWithLabel(1, map[string]string{"reverted": boolLabel(receipt.Reverted)})
	}
	if len(included) == 0 {
		return nil, nil, nil
	}

	if err := st.Stage().Commit(); err != nil {
		return nil, nil, err
	}

	blk := block.New(block.NewHeader(parent.Number()+1, parent.ID(), timestamp), included)
	if err := p.repo.AddBlock(blk, receipts); err != nil {
		return nil, nil, err
	}
	if p.logDB != nil {
		if err := p.logDB.Commit(blk, receipts); err != nil {
			return nil, nil, err
		}
	}

	metricPackDuration.Observe(time.Since(startTime).Milliseconds())
	logger.Info("block packed",
		"number", blk.Header().Number(),
		"ops", len(included),
		"id", blk.Header().ID(),
	)
	return blk, receipts, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
