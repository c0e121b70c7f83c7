// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/builtin/reverts"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/xenv"
)

type nativeMethod struct {
	target  mesh.Address // contract charged with the call, receives attached value
	payable bool
	run     func(env *xenv.Environment, payload []byte) error
}

// FindMethod resolves a method by name, or nil if unknown.
func FindMethod(name string) func(env *xenv.Environment, payload []byte) error {
	m, ok := nativeMethods[name]
	if !ok {
		return nil
	}
	return func(env *xenv.Environment, payload []byte) error {
		if !m.payable && env.Value().Sign() > 0 {
			return reverts.InvalidAmount(name + ": method is not payable")
		}
		return m.run(env, payload)
	}
}

// TargetOf returns the contract address a method executes against,
// or false if the method is unknown.
func TargetOf(name string) (mesh.Address, bool) {
	m, ok := nativeMethods[name]
	if !ok {
		return mesh.Address{}, false
	}
	return m.target, true
}

// MethodNames lists all dispatchable method names.
func MethodNames() []string {
	names := make([]string, 0, len(nativeMethods))
	for name := range nativeMethods {
		names = append(names, name)
	}
	return names
}

func decodeArgs(payload []byte, args any) error {
	if err := rlp.DecodeBytes(payload, args); err != nil {
		return reverts.InvalidAmount("malformed call payload")
	}
	return nil
}

func requireAdmin(env *xenv.Environment) error {
	admin, err := Rights(env.State()).Admin()
	if err != nil {
		return err
	}
	if admin.IsZero() || env.Caller() != admin {
		return reverts.Unauthorized("caller is not the administrator")
	}
	return nil
}

// escrowToken moves amount of reward token from the caller into the
// rights contract's custody.
func escrowToken(env *xenv.Environment, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	ok, err := Token(env.State()).Transfer(env.Caller(), RightsAddress, amount)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.InsufficientBalance("insufficient token balance for stake")
	}
	return nil
}

var nativeMethods = map[string]*nativeMethod{
	"registerNode": {
		target: RegistryAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				Metadata string
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			id, err := Registry(env.State()).Add(env.Caller(), args.Metadata, env.BlockTime())
			if err != nil {
				return err
			}
			NodeRegisteredEvent.Log(env, RegistryAddress,
				[]mesh.Bytes32{U64Topic(id), AddrTopic(env.Caller())}, args.Metadata)
			return nil
		},
	},
	"recordUptime": {
		target: ParticipationAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID  uint64
				Minutes uint64
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			p := Participation(env.State())
			if err := p.RecordUptime(env.Caller(), args.NodeID, args.Minutes, env.BlockTime()); err != nil {
				return err
			}
			stats, err := p.Stats(args.NodeID)
			if err != nil {
				return err
			}
			UptimeRecordedEvent.Log(env, ParticipationAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID)}, args.Minutes, stats.UptimeTotal)
			return nil
		},
	},
	"claimReward": {
		target: ParticipationAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID uint64
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			amount, err := Participation(env.State()).Claim(env.Caller(), args.NodeID, env.BlockTime())
			if err != nil {
				return err
			}
			if err := Token(env.State()).Mint(env.Caller(), amount); err != nil {
				return err
			}
			RewardClaimedEvent.Log(env, ParticipationAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID), AddrTopic(env.Caller())}, amount)
			return nil
		},
	},
	"stakeToNode": {
		target:  ParticipationAddress,
		payable: true,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID uint64
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			p := Participation(env.State())
			if err := p.Stake(args.NodeID, env.Value()); err != nil {
				return err
			}
			total, err := p.StakeOf(args.NodeID)
			if err != nil {
				return err
			}
			StakeUpdatedEvent.Log(env, ParticipationAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID), AddrTopic(env.Caller())}, env.Value(), total)
			return nil
		},
	},
	"mintNodeRights": {
		target:  RightsAddress,
		payable: true,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeType   rights.NodeType
				TokenStake *big.Int
				Metadata   string
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			id, err := Rights(env.State()).Mint(
				env.Caller(), args.NodeType, env.Value(), args.TokenStake, args.Metadata, env.BlockTime())
			if err != nil {
				return err
			}
			if err := escrowToken(env, args.TokenStake); err != nil {
				return err
			}
			NodeRightsMintedEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{U64Topic(id), AddrTopic(env.Caller())},
				args.NodeType, env.Value(), args.TokenStake)
			return nil
		},
	},
	"upgradeNode": {
		target:  RightsAddress,
		payable: true,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID     uint64
				TokenStake *big.Int
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			score, err := Rights(env.State()).Upgrade(
				env.Caller(), args.NodeID, env.Value(), args.TokenStake, env.BlockTime())
			if err != nil {
				return err
			}
			if err := escrowToken(env, args.TokenStake); err != nil {
				return err
			}
			NodeUpgradedEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID)}, env.Value(), args.TokenStake, score)
			return nil
		},
	},
	"updatePerformance": {
		target: RightsAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID      uint64
				UptimeDelta uint64
				Score       uint32
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			r := Rights(env.State())
			authorized, err := r.IsAuthorizedUpdater(env.Caller())
			if err != nil {
				return err
			}
			if !authorized {
				return reverts.Unauthorized("updatePerformance: caller is not an authorized updater")
			}
			res, err := r.UpdatePerformance(args.NodeID, args.UptimeDelta, args.Score, env.BlockTime())
			if err != nil {
				return err
			}
			if res.Penalty.Sign() > 0 {
				// slashed stake is burned out of contract custody
				if _, err := Token(env.State()).Burn(RightsAddress, res.Penalty); err != nil {
					return err
				}
				NodeSlashedEvent.Log(env, RightsAddress,
					[]mesh.Bytes32{U64Topic(args.NodeID)}, res.Penalty, res.Status, res.Reason)
			}
			PerformanceUpdatedEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID)}, res.Score, res.UptimeAdded, res.Status)
			return nil
		},
	},
	"transferRights": {
		target: RightsAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID uint64
				To     mesh.Address
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			if err := Rights(env.State()).Transfer(env.Caller(), args.NodeID, args.To); err != nil {
				return err
			}
			RightsTransferredEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID), AddrTopic(env.Caller()), AddrTopic(args.To)})
			return nil
		},
	},
	"bridgeToChain": {
		target: RightsAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeID           uint64
				DestinationChain string
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			if err := Rights(env.State()).Bridge(env.Caller(), args.NodeID, args.DestinationChain); err != nil {
				return err
			}
			CrossChainBridgeEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{U64Topic(args.NodeID), AddrTopic(env.Caller())}, args.DestinationChain)
			return nil
		},
	},
	"transferToken": {
		target: TokenAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				To     mesh.Address
				Amount *big.Int
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			if args.Amount.Sign() <= 0 {
				return reverts.InvalidAmount("transferToken: amount must be positive")
			}
			ok, err := Token(env.State()).Transfer(env.Caller(), args.To, args.Amount)
			if err != nil {
				return err
			}
			if !ok {
				return reverts.InsufficientBalance("transferToken: insufficient balance")
			}
			TransferEvent.Log(env, TokenAddress,
				[]mesh.Bytes32{AddrTopic(env.Caller()), AddrTopic(args.To)}, args.Amount)
			return nil
		},
	},
	"setNodeTypeConfig": {
		target: RightsAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				NodeType       rights.NodeType
				MinNativeStake *big.Int
				MinTokenStake  *big.Int
				RewardRate     *big.Int
				MaxCapacity    uint64
				Active         bool
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			if err := requireAdmin(env); err != nil {
				return err
			}
			if err := Rights(env.State()).SetConfig(args.NodeType, &rights.Config{
				MinNativeStake: args.MinNativeStake,
				MinTokenStake:  args.MinTokenStake,
				RewardRate:     args.RewardRate,
				MaxCapacity:    args.MaxCapacity,
				Active:         args.Active,
			}); err != nil {
				return err
			}
			ConfigUpdatedEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{{31: args.NodeType}},
				args.MinNativeStake, args.MinTokenStake, args.RewardRate, args.MaxCapacity, args.Active)
			return nil
		},
	},
	"setUpdater": {
		target: RightsAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				Addr       mesh.Address
				Authorized bool
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			if err := requireAdmin(env); err != nil {
				return err
			}
			if err := Rights(env.State()).SetUpdater(args.Addr, args.Authorized); err != nil {
				return err
			}
			UpdaterSetEvent.Log(env, RightsAddress,
				[]mesh.Bytes32{AddrTopic(args.Addr)}, args.Authorized)
			return nil
		},
	},
	"setReporter": {
		target: ParticipationAddress,
		run: func(env *xenv.Environment, payload []byte) error {
			var args struct {
				Addr   mesh.Address
				Listed bool
			}
			if err := decodeArgs(payload, &args); err != nil {
				return err
			}
			if err := requireAdmin(env); err != nil {
				return err
			}
			if err := Participation(env.State()).SetReporter(args.Addr, args.Listed); err != nil {
				return err
			}
			ReporterSetEvent.Log(env, ParticipationAddress,
				[]mesh.Bytes32{AddrTopic(args.Addr)}, args.Listed)
			return nil
		},
	},
}
