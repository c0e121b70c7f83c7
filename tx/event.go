// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import "github.com/gridmesh/gridmesh/mesh"

// Event is a structured log emitted by a builtin contract.
// Topics[0] is always the keccak256 id of the event signature;
// remaining topics are the indexed fields.
type Event struct {
	Address mesh.Address
	Topics  []mesh.Bytes32
	Data    []byte
}

// Events slice of events.
type Events []*Event
