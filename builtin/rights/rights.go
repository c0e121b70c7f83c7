// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rights

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/gridmesh/gridmesh/builtin/reverts"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

var (
	supplyKey = mesh.Blake2b([]byte("token-supply"))
	adminKey  = mesh.Blake2b([]byte("admin"))
)

func u64key(prefix string, v uint64) mesh.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return mesh.Blake2b([]byte(prefix), b[:])
}

func tokenKey(id uint64) mesh.Bytes32     { return u64key("token", id) }
func ownerKey(id uint64) mesh.Bytes32     { return u64key("token-owner", id) }
func tokenPosKey(id uint64) mesh.Bytes32  { return u64key("token-pos", id) }
func configKey(t NodeType) mesh.Bytes32   { return mesh.Blake2b([]byte("config"), []byte{t}) }
func typeCountKey(t NodeType) mesh.Bytes32 { return mesh.Blake2b([]byte("type-count"), []byte{t}) }

func updaterKey(addr mesh.Address) mesh.Bytes32 {
	return mesh.Blake2b([]byte("updater"), addr.Bytes())
}

func ownerCountKey(addr mesh.Address) mesh.Bytes32 {
	return mesh.Blake2b([]byte("owner-count"), addr.Bytes())
}

func ownerAtKey(addr mesh.Address, index uint64) mesh.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], index)
	return mesh.Blake2b([]byte("owner-at"), addr.Bytes(), b[:])
}

// Rights implements the node-rights engine: it mints one transferable
// ownership right per node with typed configuration, staking minimums,
// performance scoring, tiered slashing and time-based reward accrual.
type Rights struct {
	addr  mesh.Address
	state *state.State
}

// New create a new instance.
func New(addr mesh.Address, state *state.State) *Rights {
	return &Rights{addr, state}
}

func (r *Rights) getU64(key mesh.Bytes32) (v uint64, err error) {
	err = r.state.DecodeStorage(r.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &v)
	})
	return
}

func (r *Rights) setU64(key mesh.Bytes32, v uint64) error {
	return r.state.EncodeStorage(r.addr, key, func() ([]byte, error) {
		if v == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	})
}

func (r *Rights) getNode(id uint64) (*Node, error) {
	var node Node
	if err := r.state.DecodeStorage(r.addr, tokenKey(id), func(raw []byte) error {
		return node.decode(raw)
	}); err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *Rights) setNode(id uint64, node *Node) error {
	return r.state.EncodeStorage(r.addr, tokenKey(id), node.encode)
}

func (r *Rights) requireNode(id uint64) (*Node, error) {
	node, err := r.getNode(id)
	if err != nil {
		return nil, err
	}
	if node.IsEmpty() {
		return nil, reverts.NotFound("rights: token not minted")
	}
	return node, nil
}

// Admin returns the contract administrator address.
func (r *Rights) Admin() (admin mesh.Address, err error) {
	err = r.state.DecodeStorage(r.addr, adminKey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &admin)
	})
	return
}

// SetAdmin sets the contract administrator address.
func (r *Rights) SetAdmin(admin mesh.Address) error {
	return r.state.EncodeStorage(r.addr, adminKey, func() ([]byte, error) {
		if admin.IsZero() {
			return nil, nil
		}
		return rlp.EncodeToBytes(admin)
	})
}

// SetUpdater authorizes or revokes addr as a performance updater.
func (r *Rights) SetUpdater(addr mesh.Address, authorized bool) error {
	return r.state.EncodeStorage(r.addr, updaterKey(addr), func() ([]byte, error) {
		if !authorized {
			return nil, nil
		}
		return rlp.EncodeToBytes(authorized)
	})
}

// IsAuthorizedUpdater returns whether addr may report performance:
// either the administrator or a registered updater.
func (r *Rights) IsAuthorizedUpdater(addr mesh.Address) (bool, error) {
	admin, err := r.Admin()
	if err != nil {
		return false, err
	}
	if addr == admin && !admin.IsZero() {
		return true, nil
	}
	var authorized bool
	if err := r.state.DecodeStorage(r.addr, updaterKey(addr), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &authorized)
	}); err != nil {
		return false, err
	}
	return authorized, nil
}

// GetConfig returns the node type configuration.
func (r *Rights) GetConfig(t NodeType) (*Config, error) {
	var cfg Config
	if err := r.state.DecodeStorage(r.addr, configKey(t), func(raw []byte) error {
		return cfg.decode(raw)
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetConfig sets the node type configuration.
func (r *Rights) SetConfig(t NodeType, cfg *Config) error {
	if !ValidNodeType(t) {
		return reverts.InactiveNodeType("rights: unknown node type")
	}
	return r.state.EncodeStorage(r.addr, configKey(t), cfg.encode)
}

// TotalSupply returns the number of minted tokens, which is also the next id.
func (r *Rights) TotalSupply() (uint64, error) {
	return r.getU64(supplyKey)
}

// TypeSupply returns the number of minted tokens of the given type.
func (r *Rights) TypeSupply(t NodeType) (uint64, error) {
	return r.getU64(typeCountKey(t))
}

// OwnerOf returns the owner of the token. The zero address means unminted.
func (r *Rights) OwnerOf(id uint64) (owner mesh.Address, err error) {
	err = r.state.DecodeStorage(r.addr, ownerKey(id), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &owner)
	})
	return
}

func (r *Rights) setOwner(id uint64, owner mesh.Address) error {
	return r.state.EncodeStorage(r.addr, ownerKey(id), func() ([]byte, error) {
		return rlp.EncodeToBytes(owner)
	})
}

// addToOwnerIndex appends id to owner's derived token index.
func (r *Rights) addToOwnerIndex(owner mesh.Address, id uint64) error {
	n, err := r.getU64(ownerCountKey(owner))
	if err != nil {
		return err
	}
	if err := r.setU64(ownerAtKey(owner, n), id+1); err != nil { // +1 so slot zero is distinguishable
		return err
	}
	if err := r.setU64(tokenPosKey(id), n+1); err != nil {
		return err
	}
	return r.setU64(ownerCountKey(owner), n+1)
}

// removeFromOwnerIndex removes id from owner's index, swapping the last
// entry into its place.
func (r *Rights) removeFromOwnerIndex(owner mesh.Address, id uint64) error {
	n, err := r.getU64(ownerCountKey(owner))
	if err != nil {
		return err
	}
	pos, err := r.getU64(tokenPosKey(id))
	if err != nil {
		return err
	}
	pos-- // stored shifted by one

	last, err := r.getU64(ownerAtKey(owner, n-1))
	if err != nil {
		return err
	}
	lastID := last - 1
	if lastID != id {
		if err := r.setU64(ownerAtKey(owner, pos), lastID+1); err != nil {
			return err
		}
		if err := r.setU64(tokenPosKey(lastID), pos+1); err != nil {
			return err
		}
	}
	if err := r.setU64(ownerAtKey(owner, n-1), 0); err != nil {
		return err
	}
	if err := r.setU64(tokenPosKey(id), 0); err != nil {
		return err
	}
	return r.setU64(ownerCountKey(owner), n-1)
}

// TokensOf enumerates token ids owned by owner.
func (r *Rights) TokensOf(owner mesh.Address) ([]uint64, error) {
	n, err := r.getU64(ownerCountKey(owner))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.getU64(ownerAtKey(owner, i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, v-1)
	}
	return ids, nil
}

// Mint mints a new node-rights token to owner.
func (r *Rights) Mint(owner mesh.Address, t NodeType, nativeValue, tokenStake *big.Int, metadata string, now uint64) (uint64, error) {
	if !ValidNodeType(t) {
		return 0, reverts.InactiveNodeType("rights: unknown node type")
	}
	cfg, err := r.GetConfig(t)
	if err != nil {
		return 0, err
	}
	if !cfg.Active {
		return 0, reverts.InactiveNodeType("rights: node type not active")
	}
	minted, err := r.TypeSupply(t)
	if err != nil {
		return 0, err
	}
	if cfg.MaxCapacity > 0 && minted >= cfg.MaxCapacity {
		return 0, reverts.CapacityReached("rights: node type capacity reached")
	}
	if nativeValue.Cmp(cfg.MinNativeStake) < 0 {
		return 0, reverts.InsufficientStake("rights: insufficient native stake")
	}
	if tokenStake.Cmp(cfg.MinTokenStake) < 0 {
		return 0, reverts.InsufficientStake("rights: insufficient token stake")
	}

	id, err := r.TotalSupply()
	if err != nil {
		return 0, err
	}
	if err := r.setNode(id, &Node{
		NodeType:        t,
		StakedNative:    new(big.Int).Set(nativeValue),
		StakedToken:     new(big.Int).Set(tokenStake),
		MintedAt:        now,
		LastRewardClaim: now,
		LastUpdate:      now,
		Status:          StatusActive,
		Score:           mesh.InitialScore,
		Metadata:        metadata,
	}); err != nil {
		return 0, err
	}
	if err := r.setOwner(id, owner); err != nil {
		return 0, err
	}
	if err := r.addToOwnerIndex(owner, id); err != nil {
		return 0, err
	}
	if err := r.setU64(typeCountKey(t), minted+1); err != nil {
		return 0, err
	}
	return id, r.setU64(supplyKey, id+1)
}

// Get returns the node-rights record of the token.
func (r *Rights) Get(id uint64) (*Node, bool, error) {
	node, err := r.getNode(id)
	if err != nil {
		return nil, false, err
	}
	if node.IsEmpty() {
		return nil, false, nil
	}
	return node, true, nil
}

// Upgrade adds stake to an active node and applies the performance boost.
// Boost is addedNative*100/newTotalNative percentage points, truncating,
// with the resulting score clamped to the ceiling.
func (r *Rights) Upgrade(caller mesh.Address, id uint64, nativeValue, tokenStake *big.Int, now uint64) (uint32, error) {
	node, err := r.requireNode(id)
	if err != nil {
		return 0, err
	}
	owner, err := r.OwnerOf(id)
	if err != nil {
		return 0, err
	}
	if owner != caller {
		return 0, reverts.NotOwner("rights: caller is not the token owner")
	}
	if node.Status != StatusActive {
		return 0, reverts.NodeNotActive("rights: node not active")
	}

	node.StakedNative = new(big.Int).Add(node.StakedNative, nativeValue)
	node.StakedToken = new(big.Int).Add(node.StakedToken, tokenStake)
	node.Upgraded = true

	if nativeValue.Sign() > 0 {
		boost := new(big.Int).Mul(nativeValue, big.NewInt(100))
		boost.Div(boost, node.StakedNative)
		score := uint64(node.Score) + boost.Uint64()
		if score > uint64(mesh.ScoreCeiling) {
			score = uint64(mesh.ScoreCeiling)
		}
		node.Score = uint32(score)
	}
	node.LastUpdate = now

	if err := r.setNode(id, node); err != nil {
		return 0, err
	}
	return node.Score, nil
}

// UpdatePerformance overwrites the node's performance score and evaluates
// the status transition table, applying slashing when the status changes
// to a penalty tier. Each call is authoritative; no smoothing.
func (r *Rights) UpdatePerformance(id uint64, uptimeDelta uint64, newScore uint32, now uint64) (*PerformanceResult, error) {
	node, err := r.requireNode(id)
	if err != nil {
		return nil, err
	}
	if node.Status == StatusTerminated {
		return nil, reverts.AlreadyTerminated("rights: node already terminated")
	}

	if newScore > mesh.ScoreCeiling {
		newScore = mesh.ScoreCeiling
	}
	node.TotalUptime += uptimeDelta
	node.Score = newScore
	node.LastUpdate = now

	result := &PerformanceResult{
		Score:       newScore,
		UptimeAdded: uptimeDelta,
		Penalty:     new(big.Int),
	}

	newStatus := StatusForScore(newScore)
	if newStatus != node.Status {
		result.StatusChanged = true
		switch newStatus {
		case StatusSlashedMinor:
			result.Penalty = slashPenalty(node.StakedToken, mesh.SlashMinorBps)
			result.Reason = mesh.SlashReasonMinor
		case StatusSlashedMajor:
			result.Penalty = slashPenalty(node.StakedToken, mesh.SlashMajorBps)
			result.Reason = mesh.SlashReasonMajor
		case StatusTerminated:
			result.Penalty = new(big.Int).Set(node.StakedToken)
			result.Reason = mesh.SlashReasonTerminated
		}
		node.StakedToken = new(big.Int).Sub(node.StakedToken, result.Penalty)
		node.Status = newStatus
	}
	result.Status = newStatus

	if err := r.setNode(id, node); err != nil {
		return nil, err
	}
	return result, nil
}

func slashPenalty(staked *big.Int, bps uint32) *big.Int {
	penalty := new(big.Int).Mul(staked, new(big.Int).SetUint64(uint64(bps)))
	return penalty.Div(penalty, new(big.Int).SetUint64(uint64(mesh.ScoreScale)))
}

// Transfer moves the token to a new owner, updating the canonical owner
// mapping and both derived owner indexes in one atomic step.
func (r *Rights) Transfer(caller mesh.Address, id uint64, to mesh.Address) error {
	if _, err := r.requireNode(id); err != nil {
		return err
	}
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return reverts.NotOwner("rights: caller is not the token owner")
	}
	if to == owner {
		return nil
	}
	if err := r.removeFromOwnerIndex(owner, id); err != nil {
		return err
	}
	if err := r.addToOwnerIndex(to, id); err != nil {
		return err
	}
	return r.setOwner(id, to)
}

// Bridge records the destination chain annotation for the token.
// Last write wins; no actual cross-chain transfer is performed.
func (r *Rights) Bridge(caller mesh.Address, id uint64, destinationChain string) error {
	node, err := r.requireNode(id)
	if err != nil {
		return err
	}
	owner, err := r.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return reverts.NotOwner("rights: caller is not the token owner")
	}
	node.DestinationChain = destinationChain
	return r.setNode(id, node)
}

// EstimateReward computes the pending reward of an active node at the
// given time. Non-active nodes always estimate zero.
func (r *Rights) EstimateReward(id uint64, now uint64) (*big.Int, error) {
	node, err := r.requireNode(id)
	if err != nil {
		return nil, err
	}
	if node.Status != StatusActive {
		return new(big.Int), nil
	}
	cfg, err := r.GetConfig(node.NodeType)
	if err != nil {
		return nil, err
	}
	if now <= node.LastRewardClaim {
		return new(big.Int), nil
	}

	seconds := now - node.LastRewardClaim
	reward := new(big.Int).Mul(cfg.RewardRate, new(big.Int).SetUint64(seconds))
	reward.Mul(reward, new(big.Int).SetUint64(uint64(node.Score)))
	reward.Div(reward, new(big.Int).SetUint64(uint64(mesh.ScoreScale)))

	// staking multiplier: 1 + max(0, stakedNative - min) / min
	if cfg.MinNativeStake.Sign() > 0 {
		extra := new(big.Int).Sub(node.StakedNative, cfg.MinNativeStake)
		if extra.Sign() > 0 {
			effective := new(big.Int).Add(cfg.MinNativeStake, extra)
			reward.Mul(reward, effective)
			reward.Div(reward, cfg.MinNativeStake)
		}
	}
	return reward, nil
}

// Stats aggregates per-type statistics by scanning all minted tokens.
// O(total supply), acceptable for read-only analytics.
func (r *Rights) Stats(t NodeType) (*TypeStats, error) {
	supply, err := r.TotalSupply()
	if err != nil {
		return nil, err
	}
	stats := &TypeStats{TotalNativeStaked: new(big.Int)}
	var scoreSum uint64
	for id := uint64(0); id < supply; id++ {
		node, err := r.getNode(id)
		if err != nil {
			return nil, err
		}
		if node.IsEmpty() || node.NodeType != t {
			continue
		}
		stats.Count++
		if node.Status == StatusActive {
			stats.ActiveCount++
		}
		stats.TotalNativeStaked.Add(stats.TotalNativeStaked, node.StakedNative)
		scoreSum += uint64(node.Score)
	}
	if stats.Count > 0 {
		stats.AverageScore = uint32(scoreSum / stats.Count)
	}
	return stats, nil
}
