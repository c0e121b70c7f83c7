// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"crypto/ecdsa"
	"errors"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/mesh"
)

var (
	errIntrinsicValue = errors.New("intrinsic: negative value")
	errNoSignature    = errors.New("signature not present")
)

// Operation is a signed request to mutate the core state.
// Each operation names one builtin method and carries an optional
// attached native-coin value.
type Operation struct {
	body opBody

	cache struct {
		signingHash atomic.Value
		origin      atomic.Value
		id          atomic.Value
	}
}

// opBody operation body.
type opBody struct {
	Nonce      uint64
	Expiration uint32 // block number after which the op is no longer includable, 0 for none
	Method     string
	Payload    []byte
	Value      *big.Int
	Signature  []byte
}

// Nonce returns the account nonce the operation was built for.
func (op *Operation) Nonce() uint64 { return op.body.Nonce }

// Expiration returns the last block number the op can be included at, 0 for none.
func (op *Operation) Expiration() uint32 { return op.body.Expiration }

// Method returns name of the builtin method to invoke.
func (op *Operation) Method() string { return op.body.Method }

// Payload returns the RLP-encoded method arguments.
func (op *Operation) Payload() []byte { return op.body.Payload }

// Value returns the attached native-coin value.
func (op *Operation) Value() *big.Int {
	if op.body.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(op.body.Value)
}

// SigningHash returns hash of the operation excluding signature.
func (op *Operation) SigningHash() (hash mesh.Bytes32) {
	if cached := op.cache.signingHash.Load(); cached != nil {
		return cached.(mesh.Bytes32)
	}
	defer func() { op.cache.signingHash.Store(hash) }()

	hash = mesh.Blake2bFn(func(w io.Writer) {
		err := rlp.Encode(w, []interface{}{
			op.body.Nonce,
			op.body.Expiration,
			op.body.Method,
			op.body.Payload,
			op.body.Value,
		})
		if err != nil {
			panic(err)
		}
	})
	return
}

// Origin extract address of the account that signed this operation.
func (op *Operation) Origin() (mesh.Address, error) {
	if err := op.validateSignatureLength(); err != nil {
		return mesh.Address{}, err
	}
	if cached := op.cache.origin.Load(); cached != nil {
		return cached.(mesh.Address), nil
	}

	pub, err := crypto.SigToPub(op.SigningHash().Bytes(), op.body.Signature)
	if err != nil {
		return mesh.Address{}, err
	}
	origin := mesh.PubkeyToAddress(pub)
	op.cache.origin.Store(origin)
	return origin, nil
}

// ID returns the identifier of this operation,
// which is the hash of the signing hash and the origin.
func (op *Operation) ID() (id mesh.Bytes32, err error) {
	if cached := op.cache.id.Load(); cached != nil {
		return cached.(mesh.Bytes32), nil
	}
	defer func() {
		if err == nil {
			op.cache.id.Store(id)
		}
	}()

	origin, err := op.Origin()
	if err != nil {
		return mesh.Bytes32{}, err
	}
	return mesh.Blake2bFn(func(w io.Writer) {
		w.Write(op.SigningHash().Bytes())
		w.Write(origin.Bytes())
	}), nil
}

// WithSignature create a new operation object with signature set.
func (op *Operation) WithSignature(sig []byte) *Operation {
	newOp := Operation{
		body: op.body,
	}
	// copy sig
	newOp.body.Signature = append([]byte(nil), sig...)
	return &newOp
}

func (op *Operation) validateSignatureLength() error {
	if len(op.body.Signature) != 65 {
		return errNoSignature
	}
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (op *Operation) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &op.body)
}

// DecodeRLP implements rlp.Decoder.
func (op *Operation) DecodeRLP(s *rlp.Stream) error {
	var body opBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	*op = Operation{body: body}
	return nil
}

// Sign signs the operation with the given private key.
func Sign(op *Operation, pk *ecdsa.PrivateKey) (*Operation, error) {
	sig, err := crypto.Sign(op.SigningHash().Bytes(), pk)
	if err != nil {
		return nil, err
	}
	return op.WithSignature(sig), nil
}

// MustSign signs the operation, panic on error.
func MustSign(op *Operation, pk *ecdsa.PrivateKey) *Operation {
	signed, err := Sign(op, pk)
	if err != nil {
		panic(err)
	}
	return signed
}
