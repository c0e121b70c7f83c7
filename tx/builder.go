// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Builder to make it easy to build an operation.
type Builder struct {
	body opBody
}

// NewBuilder create a builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Nonce set nonce.
func (b *Builder) Nonce(nonce uint64) *Builder {
	b.body.Nonce = nonce
	return b
}

// Expiration set expiration block number.
func (b *Builder) Expiration(expiration uint32) *Builder {
	b.body.Expiration = expiration
	return b
}

// Method set the builtin method name.
func (b *Builder) Method(method string) *Builder {
	b.body.Method = method
	return b
}

// Payload set raw RLP-encoded method arguments.
func (b *Builder) Payload(payload []byte) *Builder {
	b.body.Payload = append([]byte(nil), payload...)
	return b
}

// Args RLP-encode the given method arguments as payload.
// It panics on unencodable args, which is always a programming error.
func (b *Builder) Args(args interface{}) *Builder {
	data, err := rlp.EncodeToBytes(args)
	if err != nil {
		panic(err)
	}
	b.body.Payload = data
	return b
}

// Value set attached native-coin value.
func (b *Builder) Value(value *big.Int) *Builder {
	if value != nil {
		b.body.Value = new(big.Int).Set(value)
	}
	return b
}

// Build build an operation object.
func (b *Builder) Build() *Operation {
	op := Operation{body: b.body}
	if op.body.Value == nil {
		op.body.Value = new(big.Int)
	}
	return &op
}
