// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package participation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Stats is the queryable view of a node's participation record.
type Stats struct {
	UptimeTotal uint64   `json:"uptimeTotal"`
	LastUpdate  uint64   `json:"lastUpdate"`
	Earned      *big.Int `json:"earned"`
}

// stats is the persistent form.
type stats struct {
	UptimeTotal uint64
	LastUpdate  uint64
	Earned      *big.Int
}

func (s *stats) encode() ([]byte, error) {
	if s.UptimeTotal == 0 && s.LastUpdate == 0 && s.Earned.Sign() == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(s)
}

func (s *stats) decode(raw []byte) error {
	if len(raw) == 0 {
		*s = stats{Earned: &big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(raw, s)
}
