// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/runtime"
	"github.com/gridmesh/gridmesh/state"
	"github.com/gridmesh/gridmesh/tx"
	"github.com/gridmesh/gridmesh/xenv"
)

type testEnv struct {
	st *state.State
	rt *runtime.Runtime
	pk *ecdsa.PrivateKey
	me mesh.Address
}

func newTestEnv(t *testing.T) *testEnv {
	store, _ := lvldb.NewMem()
	st := state.New(store)

	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	me := mesh.Address(crypto.PubkeyToAddress(pk.PublicKey))

	require.NoError(t, st.SetBalance(me, new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))))

	return &testEnv{
		st: st,
		rt: runtime.New(st, &xenv.BlockContext{Number: 10, Time: 100000}),
		pk: pk,
		me: me,
	}
}

func (e *testEnv) sign(b *tx.Builder) *tx.Operation {
	return tx.MustSign(b.Build(), e.pk)
}

func (e *testEnv) nonce(t *testing.T) uint64 {
	nonce, err := e.st.GetNonce(e.me)
	require.NoError(t, err)
	return nonce
}

func TestExecuteRegisterNode(t *testing.T) {
	env := newTestEnv(t)

	op := env.sign(tx.NewBuilder().
		Method("registerNode").
		Args(struct{ Metadata string }{"node-1"}))

	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	assert.False(t, receipt.Reverted)
	assert.Equal(t, env.me, receipt.Origin)
	assert.Equal(t, "registerNode", receipt.Method)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, builtin.RegistryAddress, receipt.Events[0].Address)
	assert.Equal(t, builtin.NodeRegisteredEvent.ID(), receipt.Events[0].Topics[0])

	node, exists, err := builtin.Registry(env.st).Get(0)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, env.me, node.Owner)
	assert.Equal(t, uint64(100000), node.RegisteredAt)

	assert.Equal(t, uint64(1), env.nonce(t))
}

func TestRevertIsAtomic(t *testing.T) {
	env := newTestEnv(t)

	// staking to an unknown node reverts; the attached value must bounce
	op := env.sign(tx.NewBuilder().
		Method("stakeToNode").
		Value(big.NewInt(1e18)).
		Args(struct{ NodeID uint64 }{7}))

	balBefore, _ := env.st.GetBalance(env.me)
	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	assert.True(t, receipt.Reverted)
	assert.Contains(t, receipt.RevertReason, "unknown node")
	assert.Empty(t, receipt.Events)

	balAfter, _ := env.st.GetBalance(env.me)
	assert.Equal(t, balBefore, balAfter)
	targetBal, _ := env.st.GetBalance(builtin.ParticipationAddress)
	assert.Equal(t, 0, targetBal.Sign())

	// the nonce is consumed regardless
	assert.Equal(t, uint64(1), env.nonce(t))
}

func TestUnknownMethodReverts(t *testing.T) {
	env := newTestEnv(t)

	op := env.sign(tx.NewBuilder().Method("noSuchMethod"))
	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	assert.True(t, receipt.Reverted)
	assert.Contains(t, receipt.RevertReason, "unknown method")
}

func TestNonceAndExpiration(t *testing.T) {
	env := newTestEnv(t)

	// wrong nonce: rejected outright, no receipt
	op := env.sign(tx.NewBuilder().
		Nonce(5).
		Method("registerNode").
		Args(struct{ Metadata string }{""}))
	_, err := env.rt.ExecuteOperation(op)
	require.Error(t, err)
	assert.True(t, runtime.IsRejectedOp(err))
	assert.Equal(t, uint64(0), env.nonce(t))

	// expired: block 10 > expiration 9
	op = env.sign(tx.NewBuilder().
		Expiration(9).
		Method("registerNode").
		Args(struct{ Metadata string }{""}))
	_, err = env.rt.ExecuteOperation(op)
	require.Error(t, err)
	assert.True(t, runtime.IsRejectedOp(err))

	// replay of an executed op: nonce already consumed
	op = env.sign(tx.NewBuilder().
		Method("registerNode").
		Args(struct{ Metadata string }{""}))
	_, err = env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	_, err = env.rt.ExecuteOperation(op)
	require.Error(t, err)
	assert.True(t, runtime.IsRejectedOp(err))
}

func TestInsufficientBalanceReverts(t *testing.T) {
	env := newTestEnv(t)

	op := env.sign(tx.NewBuilder().
		Method("stakeToNode").
		Value(new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))).
		Args(struct{ NodeID uint64 }{0}))

	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	assert.True(t, receipt.Reverted)
	assert.Contains(t, receipt.RevertReason, "insufficient balance")
}

func TestMintNodeRightsFlow(t *testing.T) {
	env := newTestEnv(t)

	// seed config and token balance directly
	r := builtin.Rights(env.st)
	require.NoError(t, r.SetConfig(rights.TypeStorage, &rights.Config{
		MinNativeStake: big.NewInt(1e18),
		MinTokenStake:  big.NewInt(500),
		RewardRate:     big.NewInt(10),
		Active:         true,
	}))
	require.NoError(t, builtin.Token(env.st).Mint(env.me, big.NewInt(1000)))

	op := env.sign(tx.NewBuilder().
		Method("mintNodeRights").
		Value(big.NewInt(1e18)).
		Args(struct {
			NodeType   rights.NodeType
			TokenStake *big.Int
			Metadata   string
		}{rights.TypeStorage, big.NewInt(500), "storage-node"}))

	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	require.False(t, receipt.Reverted, receipt.RevertReason)

	owner, err := r.OwnerOf(0)
	require.NoError(t, err)
	assert.Equal(t, env.me, owner)

	// token stake escrowed into contract custody
	bal, _ := builtin.Token(env.st).BalanceOf(env.me)
	assert.Equal(t, big.NewInt(500), bal)
	escrow, _ := builtin.Token(env.st).BalanceOf(builtin.RightsAddress)
	assert.Equal(t, big.NewInt(500), escrow)

	// native value landed on the contract
	contractBal, _ := env.st.GetBalance(builtin.RightsAddress)
	assert.Equal(t, big.NewInt(1e18), contractBal)
}

func TestSlashBurnsEscrow(t *testing.T) {
	env := newTestEnv(t)

	r := builtin.Rights(env.st)
	require.NoError(t, r.SetAdmin(env.me))
	require.NoError(t, r.SetConfig(rights.TypeCompute, &rights.Config{
		MinNativeStake: big.NewInt(1e18),
		MinTokenStake:  big.NewInt(1000),
		RewardRate:     big.NewInt(10),
		Active:         true,
	}))
	require.NoError(t, builtin.Token(env.st).Mint(env.me, big.NewInt(1000)))

	op := env.sign(tx.NewBuilder().
		Method("mintNodeRights").
		Value(big.NewInt(1e18)).
		Args(struct {
			NodeType   rights.NodeType
			TokenStake *big.Int
			Metadata   string
		}{rights.TypeCompute, big.NewInt(1000), ""}))
	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	require.False(t, receipt.Reverted, receipt.RevertReason)

	// minor degradation: 5% of the escrowed 1000 burned
	op = env.sign(tx.NewBuilder().
		Nonce(1).
		Method("updatePerformance").
		Args(struct {
			NodeID      uint64
			UptimeDelta uint64
			Score       uint32
		}{0, 600, 8000}))
	receipt, err = env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	require.False(t, receipt.Reverted, receipt.RevertReason)

	// NodeSlashed then PerformanceUpdated
	require.Len(t, receipt.Events, 2)
	assert.Equal(t, builtin.NodeSlashedEvent.ID(), receipt.Events[0].Topics[0])
	assert.Equal(t, builtin.PerformanceUpdatedEvent.ID(), receipt.Events[1].Topics[0])

	escrow, _ := builtin.Token(env.st).BalanceOf(builtin.RightsAddress)
	assert.Equal(t, big.NewInt(950), escrow)

	node, _, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, rights.StatusSlashedMinor, node.Status)
	assert.Equal(t, big.NewInt(950), node.StakedToken)
}

func TestUpdatePerformanceUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, builtin.Rights(env.st).SetAdmin(
		mesh.Address(crypto.PubkeyToAddress(other.PublicKey))))

	op := env.sign(tx.NewBuilder().
		Method("updatePerformance").
		Args(struct {
			NodeID      uint64
			UptimeDelta uint64
			Score       uint32
		}{0, 0, 9000}))
	receipt, err := env.rt.ExecuteOperation(op)
	require.NoError(t, err)
	assert.True(t, receipt.Reverted)
	assert.Contains(t, receipt.RevertReason, "not an authorized updater")
}
