// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rights_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/builtin/reverts"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

var (
	alice = mesh.BytesToAddress([]byte("alice"))
	bob   = mesh.BytesToAddress([]byte("bob"))
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e15)) // milli-units keep test numbers small
}

func newRights(t *testing.T) *rights.Rights {
	store, _ := lvldb.NewMem()
	st := state.New(store)
	r := rights.New(mesh.BytesToAddress([]byte("Rights")), st)

	require.NoError(t, r.SetConfig(rights.TypeStorage, &rights.Config{
		MinNativeStake: eth(1500), // 1.5 units
		MinTokenStake:  eth(1000000),
		RewardRate:     big.NewInt(100),
		MaxCapacity:    0,
		Active:         true,
	}))
	require.NoError(t, r.SetConfig(rights.TypeCompute, &rights.Config{
		MinNativeStake: eth(3000),
		MinTokenStake:  eth(2000000),
		RewardRate:     big.NewInt(250),
		MaxCapacity:    2,
		Active:         true,
	}))
	return r
}

func mintStorage(t *testing.T, r *rights.Rights, owner mesh.Address, now uint64) uint64 {
	id, err := r.Mint(owner, rights.TypeStorage, eth(1500), eth(1000000), "meta", now)
	require.NoError(t, err)
	return id
}

func TestMint(t *testing.T) {
	r := newRights(t)

	id := mintStorage(t, r, alice, 1000)
	assert.Equal(t, uint64(0), id)

	node, ok, err := r.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rights.TypeStorage, node.NodeType)
	assert.Equal(t, mesh.InitialScore, node.Score)
	assert.Equal(t, rights.StatusActive, node.Status)
	assert.False(t, node.Upgraded)
	assert.Equal(t, uint64(1000), node.MintedAt)
	assert.Equal(t, uint64(1000), node.LastRewardClaim)
	assert.Equal(t, eth(1500), node.StakedNative)

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	supply, _ := r.TotalSupply()
	assert.Equal(t, uint64(1), supply)

	ids, err := r.TokensOf(alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, ids)
}

func TestMintRejections(t *testing.T) {
	r := newRights(t)

	// insufficient native stake
	_, err := r.Mint(alice, rights.TypeStorage, eth(1499), eth(1000000), "", 1000)
	assert.Equal(t, reverts.CodeInsufficientStake, reverts.Code(err))

	// insufficient token stake
	_, err = r.Mint(alice, rights.TypeStorage, eth(1500), eth(999999), "", 1000)
	assert.Equal(t, reverts.CodeInsufficientStake, reverts.Code(err))

	// inactive node type
	_, err = r.Mint(alice, rights.TypeBandwidth, eth(1500), eth(1000000), "", 1000)
	assert.Equal(t, reverts.CodeInactiveNodeType, reverts.Code(err))

	// unknown node type
	_, err = r.Mint(alice, rights.NodeType(9), eth(1500), eth(1000000), "", 1000)
	assert.Equal(t, reverts.CodeInactiveNodeType, reverts.Code(err))

	// capacity reached after two compute mints
	_, err = r.Mint(alice, rights.TypeCompute, eth(3000), eth(2000000), "", 1000)
	require.NoError(t, err)
	_, err = r.Mint(bob, rights.TypeCompute, eth(3000), eth(2000000), "", 1000)
	require.NoError(t, err)
	_, err = r.Mint(alice, rights.TypeCompute, eth(3000), eth(2000000), "", 1000)
	assert.Equal(t, reverts.CodeCapacityReached, reverts.Code(err))
}

func TestUpgradeBoost(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	// add 50% of the new total: 1500 existing + 1500 added
	// boost = 1500*100/3000 = 50 points
	score, err := r.Upgrade(alice, id, eth(1500), new(big.Int), 2000)
	require.NoError(t, err)
	assert.Equal(t, mesh.InitialScore+50, score)

	node, _, _ := r.Get(id)
	assert.True(t, node.Upgraded)
	assert.Equal(t, eth(3000), node.StakedNative)
	assert.Equal(t, uint64(2000), node.LastUpdate)

	// not owner
	_, err = r.Upgrade(bob, id, eth(100), new(big.Int), 2000)
	assert.Equal(t, reverts.CodeNotOwner, reverts.Code(err))

	// unknown token
	_, err = r.Upgrade(alice, 99, eth(100), new(big.Int), 2000)
	assert.Equal(t, reverts.CodeNotFound, reverts.Code(err))
}

func TestUpgradeScoreCeiling(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	// repeated 99x top-ups each boost 99 points; the score clamps at the ceiling
	total := eth(1500)
	for i := 0; i < 25; i++ {
		add := new(big.Int).Mul(total, big.NewInt(99))
		_, err := r.Upgrade(alice, id, add, new(big.Int), 2000)
		require.NoError(t, err)
		total.Add(total, add)
	}
	node, _, _ := r.Get(id)
	assert.Equal(t, mesh.ScoreCeiling, node.Score)
}

func TestUpgradeRequiresActive(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	_, err := r.UpdatePerformance(id, 0, 6000, 2000)
	require.NoError(t, err)

	_, err = r.Upgrade(alice, id, eth(1500), new(big.Int), 3000)
	assert.Equal(t, reverts.CodeNodeNotActive, reverts.Code(err))
}

func TestPerformanceTiers(t *testing.T) {
	r := newRights(t)

	tests := []struct {
		score  uint32
		status rights.Status
	}{
		{12000, rights.StatusActive},
		{9000, rights.StatusActive},
		{8999, rights.StatusSlashedMinor},
		{5000, rights.StatusSlashedMinor},
		{4999, rights.StatusSlashedMajor},
		{2000, rights.StatusSlashedMajor},
		{1999, rights.StatusTerminated},
		{0, rights.StatusTerminated},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, rights.StatusForScore(tt.score), "score %d", tt.score)
	}

	// scores above the ceiling are clamped before evaluation
	id := mintStorage(t, r, alice, 1000)
	res, err := r.UpdatePerformance(id, 60, 20000, 2000)
	require.NoError(t, err)
	assert.Equal(t, mesh.ScoreCeiling, res.Score)
	assert.False(t, res.StatusChanged)
}

func TestMinorSlash(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	res, err := r.UpdatePerformance(id, 600, 8500, 2000)
	require.NoError(t, err)
	assert.True(t, res.StatusChanged)
	assert.Equal(t, rights.StatusSlashedMinor, res.Status)
	assert.Equal(t, mesh.SlashReasonMinor, res.Reason)

	// 5% of 1000000 milli-units
	assert.Equal(t, eth(50000), res.Penalty)

	node, _, _ := r.Get(id)
	assert.Equal(t, eth(950000), node.StakedToken)
	assert.Equal(t, eth(1500), node.StakedNative) // native never slashed
	assert.Equal(t, uint64(600), node.TotalUptime)
}

func TestMajorSlashFromMinor(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	_, err := r.UpdatePerformance(id, 0, 8500, 2000)
	require.NoError(t, err)

	// further decay: 15% of the remaining 950000
	res, err := r.UpdatePerformance(id, 0, 4000, 3000)
	require.NoError(t, err)
	assert.Equal(t, rights.StatusSlashedMajor, res.Status)
	assert.Equal(t, mesh.SlashReasonMajor, res.Reason)
	assert.Equal(t, eth(142500), res.Penalty)

	node, _, _ := r.Get(id)
	assert.Equal(t, eth(807500), node.StakedToken)
}

func TestRecoveryCarriesNoPenalty(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	_, err := r.UpdatePerformance(id, 0, 8500, 2000)
	require.NoError(t, err)

	// back above the active threshold: status changes, nothing slashed
	res, err := r.UpdatePerformance(id, 0, 9500, 3000)
	require.NoError(t, err)
	assert.True(t, res.StatusChanged)
	assert.Equal(t, rights.StatusActive, res.Status)
	assert.Equal(t, 0, res.Penalty.Sign())
	assert.Empty(t, res.Reason)

	node, _, _ := r.Get(id)
	assert.Equal(t, eth(950000), node.StakedToken) // prior minor slash not restored
}

func TestSameTierNoDoubleSlash(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	_, err := r.UpdatePerformance(id, 0, 8500, 2000)
	require.NoError(t, err)

	// another score inside the same tier must not slash again
	res, err := r.UpdatePerformance(id, 0, 7000, 3000)
	require.NoError(t, err)
	assert.False(t, res.StatusChanged)
	assert.Equal(t, 0, res.Penalty.Sign())

	node, _, _ := r.Get(id)
	assert.Equal(t, eth(950000), node.StakedToken)
}

func TestTermination(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	res, err := r.UpdatePerformance(id, 0, 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, rights.StatusTerminated, res.Status)
	assert.Equal(t, mesh.SlashReasonTerminated, res.Reason)
	assert.Equal(t, eth(1000000), res.Penalty) // entire token stake

	node, _, _ := r.Get(id)
	assert.Equal(t, 0, node.StakedToken.Sign())
	assert.Equal(t, eth(1500), node.StakedNative)

	// terminated nodes are inert
	_, err = r.UpdatePerformance(id, 0, 11000, 3000)
	assert.Equal(t, reverts.CodeAlreadyTerminated, reverts.Code(err))

	reward, err := r.EstimateReward(id, 100000)
	require.NoError(t, err)
	assert.Equal(t, 0, reward.Sign())
}

func TestTransfer(t *testing.T) {
	r := newRights(t)
	id0 := mintStorage(t, r, alice, 1000)
	id1 := mintStorage(t, r, alice, 1000)
	id2 := mintStorage(t, r, alice, 1000)

	require.NoError(t, r.Transfer(alice, id0, bob))

	owner, _ := r.OwnerOf(id0)
	assert.Equal(t, bob, owner)

	aliceIDs, err := r.TokensOf(alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{id1, id2}, aliceIDs)

	bobIDs, err := r.TokensOf(bob)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id0}, bobIDs)

	// former owner may no longer transfer
	err = r.Transfer(alice, id0, alice)
	assert.Equal(t, reverts.CodeNotOwner, reverts.Code(err))

	// transfer the middle token to exercise swap-with-last
	require.NoError(t, r.Transfer(alice, id1, bob))
	aliceIDs, _ = r.TokensOf(alice)
	assert.Equal(t, []uint64{id2}, aliceIDs)
	bobIDs, _ = r.TokensOf(bob)
	assert.ElementsMatch(t, []uint64{id0, id1}, bobIDs)
}

func TestBridge(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	require.NoError(t, r.Bridge(alice, id, "chain-a"))
	require.NoError(t, r.Bridge(alice, id, "chain-b"))

	node, _, _ := r.Get(id)
	assert.Equal(t, "chain-b", node.DestinationChain)

	err := r.Bridge(bob, id, "chain-c")
	assert.Equal(t, reverts.CodeNotOwner, reverts.Code(err))
}

func TestEstimateReward(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	// 3600s at rate 100, score 10000/10000, minimum stake
	reward, err := r.EstimateReward(id, 1000+3600)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(360000), reward)

	// nothing elapsed
	reward, err = r.EstimateReward(id, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, reward.Sign())
}

func TestEstimateRewardStakeMultiplier(t *testing.T) {
	r := newRights(t)
	id := mintStorage(t, r, alice, 1000)

	// double the minimum native stake doubles the accrual
	_, err := r.Upgrade(alice, id, eth(1500), new(big.Int), 1000)
	require.NoError(t, err)

	node, _, _ := r.Get(id)
	score := node.Score // boosted by the upgrade

	reward, err := r.EstimateReward(id, 1000+3600)
	require.NoError(t, err)

	base := new(big.Int).Mul(big.NewInt(100*3600), new(big.Int).SetUint64(uint64(score)))
	base.Div(base, big.NewInt(10000))
	expected := new(big.Int).Mul(base, big.NewInt(2))
	assert.Equal(t, expected, reward)
}

func TestUpdaterAuthorization(t *testing.T) {
	r := newRights(t)

	require.NoError(t, r.SetAdmin(alice))

	ok, err := r.IsAuthorizedUpdater(alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = r.IsAuthorizedUpdater(bob)
	assert.False(t, ok)

	require.NoError(t, r.SetUpdater(bob, true))
	ok, _ = r.IsAuthorizedUpdater(bob)
	assert.True(t, ok)

	require.NoError(t, r.SetUpdater(bob, false))
	ok, _ = r.IsAuthorizedUpdater(bob)
	assert.False(t, ok)
}

func TestTypeStats(t *testing.T) {
	r := newRights(t)
	id0 := mintStorage(t, r, alice, 1000)
	mintStorage(t, r, bob, 1000)
	_, err := r.Mint(alice, rights.TypeCompute, eth(3000), eth(2000000), "", 1000)
	require.NoError(t, err)

	_, err = r.UpdatePerformance(id0, 0, 6000, 2000)
	require.NoError(t, err)

	stats, err := r.Stats(rights.TypeStorage)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Count)
	assert.Equal(t, uint64(1), stats.ActiveCount)
	assert.Equal(t, eth(3000), stats.TotalNativeStaked)
	assert.Equal(t, uint32((6000+10000)/2), stats.AverageScore)

	stats, err = r.Stats(rights.TypeCompute)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Count)
}
