// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/gridmesh/api"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/genesis"
	"github.com/gridmesh/gridmesh/logdb"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/packer"
	"github.com/gridmesh/gridmesh/state"
	"github.com/gridmesh/gridmesh/tx"
)

type testServer struct {
	*httptest.Server
	packer *packer.Packer
	repo   *chain.Repository
}

func newTestServer(t *testing.T) *testServer {
	store, _ := lvldb.NewMem()
	stater := state.NewStater(store)

	genesisBlock, err := genesis.NewDevnet().Build(stater)
	require.NoError(t, err)
	repo, err := chain.NewRepository(store, genesisBlock)
	require.NoError(t, err)
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	pkr := packer.New(stater, repo, logDB)
	handler, closeAPI := api.New(repo, stater, pkr, logDB, api.Options{
		AllowedOrigins: "*",
		LogsLimit:      100,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		closeAPI()
	})
	return &testServer{srv, pkr, repo}
}

func (s *testServer) getJSON(t *testing.T, path string, out any) *http.Response {
	res, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func (s *testServer) postJSON(t *testing.T, path string, body, out any) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(s.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func submitAndPack(t *testing.T, s *testServer, op *tx.Operation) string {
	raw, err := rlp.EncodeToBytes(op)
	require.NoError(t, err)

	var submitted struct {
		ID string `json:"id"`
	}
	res := s.postJSON(t, "/operations", map[string]string{"raw": hexutil.Encode(raw)}, &submitted)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, submitted.ID)

	_, _, err = s.packer.Pack(s.repo.BestBlock().Header().Timestamp() + 5)
	require.NoError(t, err)
	return submitted.ID
}

func TestSubmitAndQueryNode(t *testing.T) {
	s := newTestServer(t)

	op := tx.MustSign(
		tx.NewBuilder().
			Method("registerNode").
			Args(struct{ Metadata string }{"dc-rack-42"}).
			Build(),
		genesis.DevAccounts()[0].PrivateKey)
	opID := submitAndPack(t, s, op)

	// receipt is queryable
	var receipt struct {
		Method   string `json:"method"`
		Reverted bool   `json:"reverted"`
	}
	res := s.getJSON(t, "/operations/"+opID+"/receipt", &receipt)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "registerNode", receipt.Method)
	assert.False(t, receipt.Reverted)

	// node is visible
	var node struct {
		ID       uint64 `json:"id"`
		Metadata string `json:"metadata"`
	}
	res = s.getJSON(t, "/nodes/0", &node)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "dc-rack-42", node.Metadata)

	var list []json.RawMessage
	res = s.getJSON(t, "/nodes", &list)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, list, 1)

	// unknown node 404s
	res = s.getJSON(t, "/nodes/99", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestBlocksEndpoint(t *testing.T) {
	s := newTestServer(t)

	var best struct {
		Number uint32 `json:"number"`
	}
	res := s.getJSON(t, "/blocks/best", &best)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, uint32(0), best.Number)

	res = s.getJSON(t, "/blocks/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRightsConfigsEndpoint(t *testing.T) {
	s := newTestServer(t)

	var configs []struct {
		NodeType string `json:"nodeType"`
		Active   bool   `json:"active"`
	}
	res := s.getJSON(t, "/rights/configs", &configs)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, configs, 3)
	assert.Equal(t, "STORAGE", configs[0].NodeType)
	assert.True(t, configs[0].Active)
}

func TestEventsEndpoint(t *testing.T) {
	s := newTestServer(t)

	op := tx.MustSign(
		tx.NewBuilder().
			Method("registerNode").
			Args(struct{ Metadata string }{"x"}).
			Build(),
		genesis.DevAccounts()[1].PrivateKey)
	submitAndPack(t, s, op)

	var events []struct {
		BlockNumber uint32 `json:"blockNumber"`
	}
	res := s.postJSON(t, "/logs/event", map[string]any{}, &events)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(1), events[0].BlockNumber)

	// over-limit queries are rejected
	res = s.postJSON(t, "/logs/event",
		map[string]any{"options": map[string]uint64{"limit": 1000, "offset": 0}}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestTokenAndRewardEndpoints(t *testing.T) {
	s := newTestServer(t)
	acc := genesis.DevAccounts()[0]

	op := tx.MustSign(
		tx.NewBuilder().
			Method("mintNodeRights").
			Value(big.NewInt(1500000000000000000)). // 1.5 native
			Args(struct {
				NodeType   uint8
				TokenStake *big.Int
				Metadata   string
			}{0, mustBig(t, "1000000000000000000000"), "eu-west"}).
			Build(),
		acc.PrivateKey)
	submitAndPack(t, s, op)

	// the token stake is escrowed, the native stake attached
	var holdings struct {
		Balance *big.Int `json:"balance"`
		Native  *big.Int `json:"native"`
	}
	res := s.getJSON(t, "/token/"+acc.Address.String(), &holdings)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, mustBig(t, "999000000000000000000000"), holdings.Balance)
	assert.Equal(t, mustBig(t, "999998500000000000000000"), holdings.Native)

	mintTime := s.repo.BestBlock().Header().Timestamp()
	var reward struct {
		TokenID uint64   `json:"tokenId"`
		Reward  *big.Int `json:"reward"`
	}
	res = s.getJSON(t, fmt.Sprintf("/rights/0/reward?at=%d", mintTime+3600), &reward)
	require.Equal(t, http.StatusOK, res.StatusCode)
	// rate 1e12 * 3600s at full score, stake exactly at minimum
	assert.Equal(t, mustBig(t, "3600000000000000"), reward.Reward)

	res = s.getJSON(t, "/rights/99/reward", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func mustBig(t *testing.T, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestRightsOwnerEndpoint(t *testing.T) {
	s := newTestServer(t)

	addr := genesis.DevAccounts()[0].Address
	var owned struct {
		TokenIDs []uint64 `json:"tokenIds"`
	}
	res := s.getJSON(t, fmt.Sprintf("/rights/owner/%s", addr), &owned)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, owned.TokenIDs)
}
