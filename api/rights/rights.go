// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rights exposes the node rights engine.
package rights

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

type Rights struct {
	stater *state.Stater
}

func New(stater *state.Stater) *Rights {
	return &Rights{stater}
}

// Token is the queryable view of a node-rights token.
type Token struct {
	ID               uint64       `json:"id"`
	Owner            mesh.Address `json:"owner"`
	NodeType         string       `json:"nodeType"`
	Status           string       `json:"status"`
	Score            uint32       `json:"score"`
	StakedNative     *big.Int     `json:"stakedNative"`
	StakedToken      *big.Int     `json:"stakedToken"`
	MintedAt         uint64       `json:"mintedAt"`
	LastRewardClaim  uint64       `json:"lastRewardClaim"`
	LastUpdate       uint64       `json:"lastUpdate"`
	TotalUptime      uint64       `json:"totalUptime"`
	Metadata         string       `json:"metadata"`
	Upgraded         bool         `json:"upgraded"`
	DestinationChain string       `json:"destinationChain,omitempty"`
	EstimatedReward  *big.Int     `json:"estimatedReward"`
}

// Config is the queryable view of a node type configuration.
type Config struct {
	NodeType string `json:"nodeType"`
	rights.Config
}

// parseTokenQuery extracts the token id path var and the optional
// ?at= estimation timestamp, defaulting to the wall clock.
func parseTokenQuery(req *http.Request) (id, at uint64, err error) {
	if id, err = strconv.ParseUint(mux.Vars(req)["id"], 10, 64); err != nil {
		return 0, 0, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	at = uint64(time.Now().Unix())
	if atStr := req.URL.Query().Get("at"); atStr != "" {
		if at, err = strconv.ParseUint(atStr, 10, 64); err != nil {
			return 0, 0, utils.BadRequest(errors.WithMessage(err, "at"))
		}
	}
	return id, at, nil
}

func (r *Rights) handleGetToken(w http.ResponseWriter, req *http.Request) error {
	id, at, err := parseTokenQuery(req)
	if err != nil {
		return err
	}

	st := r.stater.NewState()
	engine := builtin.Rights(st)
	node, exists, err := engine.Get(id)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NotFound(errors.New("no such token"))
	}
	owner, err := engine.OwnerOf(id)
	if err != nil {
		return err
	}
	reward, err := engine.EstimateReward(id, at)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Token{
		ID:               id,
		Owner:            owner,
		NodeType:         rights.NodeTypeName(node.NodeType),
		Status:           rights.StatusName(node.Status),
		Score:            node.Score,
		StakedNative:     node.StakedNative,
		StakedToken:      node.StakedToken,
		MintedAt:         node.MintedAt,
		LastRewardClaim:  node.LastRewardClaim,
		LastUpdate:       node.LastUpdate,
		TotalUptime:      node.TotalUptime,
		Metadata:         node.Metadata,
		Upgraded:         node.Upgraded,
		DestinationChain: node.DestinationChain,
		EstimatedReward:  reward,
	})
}

func (r *Rights) handleGetReward(w http.ResponseWriter, req *http.Request) error {
	id, at, err := parseTokenQuery(req)
	if err != nil {
		return err
	}

	st := r.stater.NewState()
	engine := builtin.Rights(st)
	if _, exists, err := engine.Get(id); err != nil {
		return err
	} else if !exists {
		return utils.NotFound(errors.New("no such token"))
	}
	reward, err := engine.EstimateReward(id, at)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"tokenId": id, "at": at, "reward": reward})
}

func (r *Rights) handleGetByOwner(w http.ResponseWriter, req *http.Request) error {
	owner, err := mesh.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}

	st := r.stater.NewState()
	ids, err := builtin.Rights(st).TokensOf(owner)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"owner": owner, "tokenIds": ids})
}

func (r *Rights) handleGetTypeStats(w http.ResponseWriter, req *http.Request) error {
	t, ok := rights.ParseNodeType(mux.Vars(req)["type"])
	if !ok {
		return utils.BadRequest(errors.New("unknown node type"))
	}

	st := r.stater.NewState()
	stats, err := builtin.Rights(st).Stats(t)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{
		"nodeType": rights.NodeTypeName(t),
		"stats":    stats,
	})
}

func (r *Rights) handleGetConfigs(w http.ResponseWriter, _ *http.Request) error {
	st := r.stater.NewState()
	engine := builtin.Rights(st)

	configs := make([]*Config, 0, 3)
	for _, t := range []rights.NodeType{rights.TypeStorage, rights.TypeCompute, rights.TypeBandwidth} {
		cfg, err := engine.GetConfig(t)
		if err != nil {
			return err
		}
		configs = append(configs, &Config{
			NodeType: rights.NodeTypeName(t),
			Config:   *cfg,
		})
	}
	return utils.WriteJSON(w, configs)
}

func (r *Rights) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/configs").
		Methods(http.MethodGet).
		Name("GET /rights/configs").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetConfigs))
	sub.Path("/owner/{address}").
		Methods(http.MethodGet).
		Name("GET /rights/owner/{address}").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetByOwner))
	sub.Path("/types/{type}/stats").
		Methods(http.MethodGet).
		Name("GET /rights/types/{type}/stats").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetTypeStats))
	sub.Path("/{id}/reward").
		Methods(http.MethodGet).
		Name("GET /rights/{id}/reward").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetReward))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /rights/{id}").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetToken))
}
