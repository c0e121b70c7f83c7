// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/gridmesh/gridmesh/mesh"
)

// Receipt represents the result of an executed operation.
// A reverted operation produces a receipt with no events and the
// rejection reason recorded verbatim.
type Receipt struct {
	// ID of the executed operation.
	OpID mesh.Bytes32
	// account that signed the operation.
	Origin mesh.Address
	// invoked builtin method.
	Method string
	// attached native-coin value.
	Value *big.Int
	// whether the operation was reverted with all state changes discarded.
	Reverted bool
	// rejection reason, empty unless reverted.
	RevertReason string
	// events produced, nil when reverted.
	Events Events
}

// Receipts slice of receipts.
type Receipts []*Receipt
