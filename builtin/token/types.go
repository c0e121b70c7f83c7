// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

type account struct {
	Balance *big.Int
}

func (a *account) encode() ([]byte, error) {
	if a.Balance.Sign() == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(a)
}

func (a *account) decode(raw []byte) error {
	if len(raw) == 0 {
		*a = account{&big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(raw, a)
}
