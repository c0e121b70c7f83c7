// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/xenv"
)

// EventABI describes a builtin contract event. The id is the keccak256
// hash of the canonical signature string and is always Topics[0] of the
// emitted event.
type EventABI struct {
	name      string
	signature string
	id        mesh.Bytes32
}

func newEventABI(name, signature string) *EventABI {
	return &EventABI{
		name:      name,
		signature: signature,
		id:        mesh.Keccak256([]byte(signature)),
	}
}

// Name returns the event name.
func (e *EventABI) Name() string { return e.name }

// Signature returns the canonical signature string.
func (e *EventABI) Signature() string { return e.signature }

// ID returns the event signature hash.
func (e *EventABI) ID() mesh.Bytes32 { return e.id }

// Log emits the event into env against the given contract address.
// indexed values become topics after the signature id; data fields are
// RLP encoded into the event data.
func (e *EventABI) Log(env *xenv.Environment, addr mesh.Address, indexed []mesh.Bytes32, dataFields ...any) {
	topics := make([]mesh.Bytes32, 0, len(indexed)+1)
	topics = append(topics, e.id)
	topics = append(topics, indexed...)

	var data []byte
	if len(dataFields) > 0 {
		// encode error is impossible for the value kinds used here
		data, _ = rlp.EncodeToBytes(dataFields)
	}
	env.Log(addr, topics, data)
}

// U64Topic encodes an indexed uint64 as a 32-byte big-endian topic.
func U64Topic(v uint64) (b mesh.Bytes32) {
	binary.BigEndian.PutUint64(b[24:], v)
	return
}

// AddrTopic encodes an indexed address as a left-padded 32-byte topic.
func AddrTopic(addr mesh.Address) (b mesh.Bytes32) {
	copy(b[12:], addr.Bytes())
	return
}

// BigTopic encodes an indexed big integer as a 32-byte big-endian topic.
func BigTopic(v *big.Int) (b mesh.Bytes32) {
	v.FillBytes(b[:])
	return
}

// Events emitted by the native contracts.
var (
	NodeRegisteredEvent     = newEventABI("NodeRegistered", "NodeRegistered(uint64 indexed,address indexed,string)")
	UptimeRecordedEvent     = newEventABI("UptimeRecorded", "UptimeRecorded(uint64 indexed,uint64,uint64)")
	RewardClaimedEvent      = newEventABI("RewardClaimed", "RewardClaimed(uint64 indexed,address indexed,uint256)")
	StakeUpdatedEvent       = newEventABI("StakeUpdated", "StakeUpdated(uint64 indexed,address indexed,uint256,uint256)")
	NodeRightsMintedEvent   = newEventABI("NodeRightsMinted", "NodeRightsMinted(uint64 indexed,address indexed,uint8,uint256,uint256)")
	NodeUpgradedEvent       = newEventABI("NodeUpgraded", "NodeUpgraded(uint64 indexed,uint256,uint256,uint32)")
	PerformanceUpdatedEvent = newEventABI("PerformanceUpdated", "PerformanceUpdated(uint64 indexed,uint32,uint64,uint8)")
	NodeSlashedEvent        = newEventABI("NodeSlashed", "NodeSlashed(uint64 indexed,uint256,uint8,string)")
	CrossChainBridgeEvent   = newEventABI("CrossChainBridge", "CrossChainBridge(uint64 indexed,address indexed,string)")
	RightsTransferredEvent  = newEventABI("RightsTransferred", "RightsTransferred(uint64 indexed,address indexed,address indexed)")
	TransferEvent           = newEventABI("Transfer", "Transfer(address indexed,address indexed,uint256)")
	ConfigUpdatedEvent      = newEventABI("ConfigUpdated", "ConfigUpdated(uint8 indexed,uint256,uint256,uint256,uint64,bool)")
	UpdaterSetEvent         = newEventABI("UpdaterSet", "UpdaterSet(address indexed,bool)")
	ReporterSetEvent        = newEventABI("ReporterSet", "ReporterSet(address indexed,bool)")
)
