// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package participation

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/builtin/registry"
	"github.com/gridmesh/gridmesh/builtin/reverts"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

var reporterCountKey = mesh.Blake2b([]byte("reporter-count"))

func statsKey(nodeID uint64) mesh.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nodeID)
	return mesh.Blake2b([]byte("stats"), b[:])
}

func stakeKey(nodeID uint64) mesh.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nodeID)
	return mesh.Blake2b([]byte("stake"), b[:])
}

func reporterKey(addr mesh.Address) mesh.Bytes32 {
	return mesh.Blake2b([]byte("reporter"), addr.Bytes())
}

// Participation tracks per-node uptime accumulation, pending earned
// rewards and staked native collateral. Stats are created lazily the
// first time uptime is recorded.
type Participation struct {
	addr     mesh.Address
	state    *state.State
	registry *registry.Registry
}

// New create a new instance.
func New(addr mesh.Address, state *state.State, registry *registry.Registry) *Participation {
	return &Participation{addr, state, registry}
}

func (p *Participation) getStats(nodeID uint64) (*stats, error) {
	var stats stats
	if err := p.state.DecodeStorage(p.addr, statsKey(nodeID), func(raw []byte) error {
		return stats.decode(raw)
	}); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (p *Participation) setStats(nodeID uint64, stats *stats) error {
	return p.state.EncodeStorage(p.addr, statsKey(nodeID), stats.encode)
}

func (p *Participation) requireNode(nodeID uint64) (*registry.Node, error) {
	node, exists, err := p.registry.Get(nodeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, reverts.NotFound("participation: unknown node")
	}
	return node, nil
}

// RecordUptime adds reported minutes to the node's accumulated uptime and
// to its unclaimed-earned balance at the fixed 1-unit-per-minute rate.
// Reporting is open to any caller unless a reporter allowlist is configured.
func (p *Participation) RecordUptime(reporter mesh.Address, nodeID uint64, minutes uint64, now uint64) error {
	if _, err := p.requireNode(nodeID); err != nil {
		return err
	}

	restricted, err := p.reporterCount()
	if err != nil {
		return err
	}
	if restricted > 0 {
		listed, err := p.IsReporter(reporter)
		if err != nil {
			return err
		}
		if !listed {
			return reverts.Unauthorized("participation: reporter not allowed")
		}
	}

	stats, err := p.getStats(nodeID)
	if err != nil {
		return err
	}
	stats.UptimeTotal += minutes
	stats.Earned.Add(stats.Earned, new(big.Int).SetUint64(minutes*mesh.UptimeRewardPerMinute))
	stats.LastUpdate = now
	return p.setStats(nodeID, stats)
}

// Claim reads and zeroes the node's unclaimed-earned balance.
// Only the node's registered owner may claim.
func (p *Participation) Claim(caller mesh.Address, nodeID uint64, now uint64) (*big.Int, error) {
	node, err := p.requireNode(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Owner != caller {
		return nil, reverts.Unauthorized("participation: caller is not the node owner")
	}

	stats, err := p.getStats(nodeID)
	if err != nil {
		return nil, err
	}
	amount := stats.Earned
	stats.Earned = new(big.Int)
	stats.LastUpdate = now
	if err := p.setStats(nodeID, stats); err != nil {
		return nil, err
	}
	return amount, nil
}

// Stake adds the given native-coin amount to the node's stake accumulator.
// Anyone may stake to any node; the accumulator only ever grows.
func (p *Participation) Stake(nodeID uint64, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return reverts.InvalidAmount("participation: stake amount must be positive")
	}
	if _, err := p.requireNode(nodeID); err != nil {
		return err
	}

	total, err := p.StakeOf(nodeID)
	if err != nil {
		return err
	}
	total.Add(total, amount)
	return p.state.EncodeStorage(p.addr, stakeKey(nodeID), func() ([]byte, error) {
		return rlp.EncodeToBytes(total)
	})
}

// StakeOf returns the accumulated native stake of the node.
func (p *Participation) StakeOf(nodeID uint64) (*big.Int, error) {
	total := new(big.Int)
	if err := p.state.DecodeStorage(p.addr, stakeKey(nodeID), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, total)
	}); err != nil {
		return nil, err
	}
	return total, nil
}

// Stats returns the node's participation stats, zero-valued if never reported.
func (p *Participation) Stats(nodeID uint64) (*Stats, error) {
	stats, err := p.getStats(nodeID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		UptimeTotal: stats.UptimeTotal,
		LastUpdate:  stats.LastUpdate,
		Earned:      stats.Earned,
	}, nil
}

func (p *Participation) reporterCount() (count uint64, err error) {
	err = p.state.DecodeStorage(p.addr, reporterCountKey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &count)
	})
	return
}

// IsReporter returns whether addr is on the reporter allowlist.
func (p *Participation) IsReporter(addr mesh.Address) (listed bool, err error) {
	err = p.state.DecodeStorage(p.addr, reporterKey(addr), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &listed)
	})
	return
}

// SetReporter adds or removes addr on the reporter allowlist.
// An empty allowlist leaves uptime reporting open to any caller.
func (p *Participation) SetReporter(addr mesh.Address, listed bool) error {
	current, err := p.IsReporter(addr)
	if err != nil {
		return err
	}
	if current == listed {
		return nil
	}

	count, err := p.reporterCount()
	if err != nil {
		return err
	}
	if listed {
		count++
	} else {
		count--
	}

	if err := p.state.EncodeStorage(p.addr, reporterKey(addr), func() ([]byte, error) {
		if !listed {
			return nil, nil
		}
		return rlp.EncodeToBytes(listed)
	}); err != nil {
		return err
	}
	return p.state.EncodeStorage(p.addr, reporterCountKey, func() ([]byte, error) {
		if count == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(count)
	})
}
