// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"math/big"

	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
	"github.com/gridmesh/gridmesh/tx"
)

// BlockContext is the block-level execution context.
type BlockContext struct {
	Number uint32
	Time   uint64
}

// Environment is the execution environment of a single native call.
// It carries the world state, the call context and the event accumulator.
type Environment struct {
	state    *state.State
	caller   mesh.Address
	value    *big.Int
	blockCtx *BlockContext
	events   []*tx.Event
}

// New creates an execution environment.
func New(state *state.State, blockCtx *BlockContext, caller mesh.Address, value *big.Int) *Environment {
	return &Environment{
		state:    state,
		caller:   caller,
		value:    value,
		blockCtx: blockCtx,
	}
}

// State returns the world state accessor.
func (env *Environment) State() *state.State { return env.state }

// Caller returns the operation origin.
func (env *Environment) Caller() mesh.Address { return env.caller }

// Value returns the native-coin value attached to the operation.
func (env *Environment) Value() *big.Int { return env.value }

// BlockNumber returns the number of the enclosing block.
func (env *Environment) BlockNumber() uint32 { return env.blockCtx.Number }

// BlockTime returns the timestamp of the enclosing block.
// All time-dependent contract logic reads this, never the wall clock.
func (env *Environment) BlockTime() uint64 { return env.blockCtx.Time }

// Log appends an event to the accumulator. Events are only surfaced if
// the enclosing operation completes without revert.
func (env *Environment) Log(address mesh.Address, topics []mesh.Bytes32, data []byte) {
	env.events = append(env.events, &tx.Event{
		Address: address,
		Topics:  topics,
		Data:    data,
	})
}

// Events returns the accumulated events.
func (env *Environment) Events() tx.Events { return env.events }
