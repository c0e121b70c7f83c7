// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes signed operations against the world state,
// with all-or-nothing semantics per operation.
package runtime

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/reverts"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
	"github.com/gridmesh/gridmesh/tx"
	"github.com/gridmesh/gridmesh/xenv"
)

var (
	errExpired  = errors.New("operation expired")
	errBadNonce = errors.New("nonce mismatch")
)

// IsRejectedOp tells whether err marks an operation that can never be
// included: expired or wrong nonce. Rejected ops produce no receipt.
func IsRejectedOp(err error) bool {
	return errors.Is(err, errExpired) || errors.Is(err, errBadNonce)
}

// Runtime is the execution host. It binds a world state to a block
// context and turns operations into receipts.
type Runtime struct {
	state    *state.State
	blockCtx *xenv.BlockContext
}

// New creates a runtime.
func New(state *state.State, blockCtx *xenv.BlockContext) *Runtime {
	return &Runtime{state, blockCtx}
}

// State returns the bound world state.
func (rt *Runtime) State() *state.State { return rt.state }

// BlockContext returns the bound block context.
func (rt *Runtime) BlockContext() *xenv.BlockContext { return rt.blockCtx }

// ExecuteOperation verifies and executes the operation.
//
// A rejected operation (bad signature, expired, nonce mismatch) returns
// an error and leaves the state untouched. A reverted operation consumes
// the nonce, leaves every other state change undone and yields a receipt
// recording the rejection reason. Nothing in between.
func (rt *Runtime) ExecuteOperation(op *tx.Operation) (*tx.Receipt, error) {
	origin, err := op.Origin()
	if err != nil {
		return nil, errors.WithMessage(err, "invalid signature")
	}
	if exp := op.Expiration(); exp != 0 && rt.blockCtx.Number > exp {
		return nil, errExpired
	}

	nonce, err := rt.state.GetNonce(origin)
	if err != nil {
		return nil, err
	}
	if op.Nonce() != nonce {
		return nil, errors.WithMessagef(errBadNonce, "expected %d got %d", nonce, op.Nonce())
	}
	// the nonce is consumed even when the call reverts
	if err := rt.state.SetNonce(origin, nonce+1); err != nil {
		return nil, err
	}

	opID, err := op.ID()
	if err != nil {
		return nil, err
	}
	receipt := &tx.Receipt{
		OpID:   opID,
		Origin: origin,
		Method: op.Method(),
		Value:  op.Value(),
	}

	checkpoint := rt.state.NewCheckpoint()
	events, rerr, err := rt.call(origin, op)
	if err != nil {
		return nil, err
	}
	if rerr != nil {
		rt.state.RevertTo(checkpoint)
		receipt.Reverted = true
		receipt.RevertReason = rerr.Error()
		return receipt, nil
	}
	receipt.Events = events
	return receipt, nil
}

// call transfers the attached value and dispatches the method.
// The returned revert error is a semantic rejection; the plain error is
// a state access failure and poisons the whole block.
func (rt *Runtime) call(origin mesh.Address, op *tx.Operation) (tx.Events, *reverts.ErrRevert, error) {
	value := op.Value()

	target, known := builtin.TargetOf(op.Method())
	if !known {
		return nil, reverts.NotFound("unknown method " + op.Method()), nil
	}

	if value.Sign() > 0 {
		balance, err := rt.state.GetBalance(origin)
		if err != nil {
			return nil, nil, err
		}
		if balance.Cmp(value) < 0 {
			return nil, reverts.InsufficientBalance("insufficient balance for attached value"), nil
		}
		if err := rt.state.SetBalance(origin, new(big.Int).Sub(balance, value)); err != nil {
			return nil, nil, err
		}
		targetBalance, err := rt.state.GetBalance(target)
		if err != nil {
			return nil, nil, err
		}
		if err := rt.state.SetBalance(target, new(big.Int).Add(targetBalance, value)); err != nil {
			return nil, nil, err
		}
	}

	env := xenv.New(rt.state, rt.blockCtx, origin, value)
	if err := builtin.FindMethod(op.Method())(env, op.Payload()); err != nil {
		var rerr *reverts.ErrRevert
		if errors.As(err, &rerr) {
			return nil, rerr, nil
		}
		return nil, nil, err
	}
	return env.Events(), nil, nil
}
