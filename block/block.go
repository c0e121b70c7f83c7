// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/tx"
)

// Header contains the identity of a sealed batch of operations.
type Header struct {
	body headerBody

	cache struct {
		id atomic.Value
	}
}

type headerBody struct {
	Number    uint32
	ParentID  mesh.Bytes32
	Timestamp uint64
}

// NewHeader creates a header.
func NewHeader(number uint32, parentID mesh.Bytes32, timestamp uint64) *Header {
	return &Header{body: headerBody{number, parentID, timestamp}}
}

// Number returns the sequential block number.
func (h *Header) Number() uint32 { return h.body.Number }

// ParentID returns id of the parent block.
func (h *Header) ParentID() mesh.Bytes32 { return h.body.ParentID }

// Timestamp returns the monotonic block timestamp, in unix seconds.
func (h *Header) Timestamp() uint64 { return h.body.Timestamp }

// ID computes id of the block.
// The first 4 bytes are the big-endian block number, so ids sort by height.
func (h *Header) ID() (id mesh.Bytes32) {
	if cached := h.cache.id.Load(); cached != nil {
		return cached.(mesh.Bytes32)
	}
	defer func() {
		binary.BigEndian.PutUint32(id[:], h.body.Number)
		h.cache.id.Store(id)
	}()

	return mesh.Blake2bFn(func(w io.Writer) {
		if err := rlp.Encode(w, &h.body); err != nil {
			panic(err)
		}
	})
}

// EncodeRLP implements rlp.Encoder.
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &h.body)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var body headerBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	*h = Header{body: body}
	return nil
}

// Block is a sealed, ordered batch of executed operations.
type Block struct {
	header *Header
	ops    []*tx.Operation
}

// New creates a block with the given header and operations.
func New(header *Header, ops []*tx.Operation) *Block {
	return &Block{header, append([]*tx.Operation(nil), ops...)}
}

// Header returns the block header.
func (b *Block) Header() *Header { return b.header }

// Operations returns operations contained in the block.
func (b *Block) Operations() []*tx.Operation {
	return append([]*tx.Operation(nil), b.ops...)
}

// EncodeRLP implements rlp.Encoder.
func (b *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{b.header, b.ops})
}

// DecodeRLP implements rlp.Decoder.
func (b *Block) DecodeRLP(s *rlp.Stream) error {
	payload := struct {
		Header *Header
		Ops    []*tx.Operation
	}{}
	if err := s.Decode(&payload); err != nil {
		return err
	}
	*b = Block{payload.Header, payload.Ops}
	return nil
}
