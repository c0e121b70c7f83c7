// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rights

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/mesh"
)

// NodeType is the typed configuration class of a node-rights token.
type NodeType = uint8

const (
	TypeStorage = NodeType(iota)
	TypeCompute
	TypeBandwidth

	typeCount
)

// ValidNodeType returns whether t names a known node type.
func ValidNodeType(t NodeType) bool {
	return t < typeCount
}

// NodeTypeName returns the display name of a node type.
func NodeTypeName(t NodeType) string {
	switch t {
	case TypeStorage:
		return "STORAGE"
	case TypeCompute:
		return "COMPUTE"
	case TypeBandwidth:
		return "BANDWIDTH"
	default:
		return "UNKNOWN"
	}
}

// ParseNodeType resolves a display name back to the node type.
func ParseNodeType(s string) (NodeType, bool) {
	switch s {
	case "STORAGE":
		return TypeStorage, true
	case "COMPUTE":
		return TypeCompute, true
	case "BANDWIDTH":
		return TypeBandwidth, true
	default:
		return 0, false
	}
}

// Status is the lifecycle status of a node-rights token.
// It is a pure function of the most recently reported performance score.
type Status = uint8

const (
	StatusActive = Status(iota)
	StatusSlashedMinor
	StatusSlashedMajor
	StatusTerminated // inert: staked token permanently zero, status frozen
)

// StatusName returns the display name of a status.
func StatusName(s Status) string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusSlashedMinor:
		return "SLASHED_MINOR"
	case StatusSlashedMajor:
		return "SLASHED_MAJOR"
	case StatusTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// StatusForScore evaluates the status tier for a performance score.
// Tier lower bounds are inclusive.
func StatusForScore(score uint32) Status {
	switch {
	case score >= mesh.TierActiveMinScore:
		return StatusActive
	case score >= mesh.TierMinorMinScore:
		return StatusSlashedMinor
	case score >= mesh.TierMajorMinScore:
		return StatusSlashedMajor
	default:
		return StatusTerminated
	}
}

// Config is the per-node-type configuration, admin-mutable.
type Config struct {
	MinNativeStake *big.Int `json:"minNativeStake"` // minimum attached native value to mint
	MinTokenStake  *big.Int `json:"minTokenStake"`  // minimum token stake to mint
	RewardRate     *big.Int `json:"rewardRate"`     // base reward per second, in token units
	MaxCapacity    uint64   `json:"maxCapacity"`    // maximum tokens mintable of this type, 0 for unlimited
	Active         bool     `json:"active"`         // whether minting of this type is open
}

// IsEmpty returns whether the config was never set.
func (c *Config) IsEmpty() bool {
	return !c.Active && c.MinNativeStake.Sign() == 0 && c.MinTokenStake.Sign() == 0 &&
		c.RewardRate.Sign() == 0 && c.MaxCapacity == 0
}

func (c *Config) encode() ([]byte, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	return rlp.EncodeToBytes(c)
}

func (c *Config) decode(raw []byte) error {
	if len(raw) == 0 {
		*c = Config{MinNativeStake: &big.Int{}, MinTokenStake: &big.Int{}, RewardRate: &big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(raw, c)
}

// Node is a minted node-rights record.
type Node struct {
	NodeType         NodeType // typed configuration class
	StakedNative     *big.Int // native-coin collateral, never touched by slashing
	StakedToken      *big.Int // token collateral, subject to slashing
	MintedAt         uint64
	LastRewardClaim  uint64
	LastUpdate       uint64 // timestamp of the latest performance report
	Status           Status
	TotalUptime      uint64 // cumulative reported uptime, in seconds
	Score            uint32 // performance score in basis points
	Metadata         string
	Upgraded         bool
	DestinationChain string // cross-chain bridge annotation, last write wins
}

// IsEmpty returns whether the record was never minted.
func (n *Node) IsEmpty() bool {
	return n.MintedAt == 0
}

func (n *Node) encode() ([]byte, error) {
	if n.IsEmpty() {
		return nil, nil
	}
	return rlp.EncodeToBytes(n)
}

func (n *Node) decode(raw []byte) error {
	if len(raw) == 0 {
		*n = Node{StakedNative: &big.Int{}, StakedToken: &big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(raw, n)
}

// PerformanceResult captures the outcome of a performance update.
type PerformanceResult struct {
	Score         uint32
	UptimeAdded   uint64
	Status        Status
	StatusChanged bool
	Penalty       *big.Int // slashed token amount, zero unless status changed to a penalty tier
	Reason        string   // fixed human-readable slash reason, empty when no slash
}

// TypeStats is the per-node-type aggregate, computed by full scan.
type TypeStats struct {
	Count             uint64   `json:"count"`
	ActiveCount       uint64   `json:"activeCount"`
	TotalNativeStaked *big.Int `json:"totalNativeStaked"`
	AverageScore      uint32   `json:"averageScore"`
}
