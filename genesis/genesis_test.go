// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/genesis"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

func mustAddr(t *testing.T, s string) mesh.Address {
	addr, err := mesh.ParseAddress(s)
	require.NoError(t, err)
	return addr
}

func TestDevnet(t *testing.T) {
	store, _ := lvldb.NewMem()
	stater := state.NewStater(store)

	blk, err := genesis.NewDevnet().Build(stater)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), blk.Header().Number())

	st := stater.NewState()
	accs := genesis.DevAccounts()
	require.Len(t, accs, 10)

	bal, err := st.GetBalance(accs[0].Address)
	require.NoError(t, err)
	assert.True(t, bal.Sign() > 0)

	tokBal, err := builtin.Token(st).BalanceOf(accs[0].Address)
	require.NoError(t, err)
	assert.True(t, tokBal.Sign() > 0)

	r := builtin.Rights(st)
	admin, err := r.Admin()
	require.NoError(t, err)
	assert.Equal(t, accs[0].Address, admin)

	cfg, err := r.GetConfig(rights.TypeStorage)
	require.NoError(t, err)
	assert.True(t, cfg.Active)
	assert.Equal(t, "1500000000000000000", cfg.MinNativeStake.String())
	assert.Equal(t, "1000000000000000000000", cfg.MinTokenStake.String())

	ok, err := r.IsAuthorizedUpdater(builtin.ParticipationAddress)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDevnetDeterministic(t *testing.T) {
	build := func() mesh.Bytes32 {
		store, _ := lvldb.NewMem()
		blk, err := genesis.NewDevnet().Build(state.NewStater(store))
		require.NoError(t, err)
		return blk.Header().ID()
	}
	assert.Equal(t, build(), build())
}

func TestCustomNet(t *testing.T) {
	yml := `
name: testnet
launchTime: 1700000000
admin: "0x0000000000000000000000000000000000000011"
accounts:
  - address: "0x0000000000000000000000000000000000000022"
    balance: "1000000000000000000"
    tokenBalance: "5000"
nodeTypes:
  - type: STORAGE
    minNativeStake: "1500000000000000000"
    minTokenStake: "1000"
    rewardRate: "10"
    maxCapacity: 100
    active: true
reporters:
  - "0x0000000000000000000000000000000000000033"
`
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	custom, err := genesis.LoadCustomGenesis(path)
	require.NoError(t, err)
	assert.Equal(t, "testnet", custom.Name)

	gene, err := genesis.NewCustomNet(custom)
	require.NoError(t, err)

	store, _ := lvldb.NewMem()
	stater := state.NewStater(store)
	blk, err := gene.Build(stater)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), blk.Header().Timestamp())

	st := stater.NewState()
	r := builtin.Rights(st)
	cfg, err := r.GetConfig(rights.TypeStorage)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cfg.MaxCapacity)

	// reporter allowlist is now restrictive
	listed, err := builtin.Participation(st).IsReporter(
		mustAddr(t, "0x0000000000000000000000000000000000000033"))
	require.NoError(t, err)
	assert.True(t, listed)
}

func TestCustomNetRejectsBadInput(t *testing.T) {
	_, err := genesis.NewCustomNet(&genesis.CustomGenesis{Admin: "nonsense"})
	assert.Error(t, err)

	_, err = genesis.NewCustomNet(&genesis.CustomGenesis{
		Admin:     "0x0000000000000000000000000000000000000011",
		NodeTypes: []genesis.CustomNodeType{{Type: "QUANTUM"}},
	})
	assert.Error(t, err)
}
