// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package nodes exposes the node registry and participation ledger.
package nodes

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/registry"
	"github.com/gridmesh/gridmesh/state"
)

const defaultListLimit = 100

type Nodes struct {
	stater *state.Stater
}

func New(stater *state.Stater) *Nodes {
	return &Nodes{stater}
}

// Node is the full queryable view of a registered node.
type Node struct {
	registry.Node
	UptimeTotal uint64   `json:"uptimeTotal"`
	LastUpdate  uint64   `json:"lastUpdate"`
	Earned      *big.Int `json:"earned"`
	Staked      *big.Int `json:"staked"`
}

func parseUint(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func (n *Nodes) handleGetNodes(w http.ResponseWriter, req *http.Request) error {
	offset, err := parseUint(req.URL.Query().Get("offset"), 0)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "offset"))
	}
	limit, err := parseUint(req.URL.Query().Get("limit"), defaultListLimit)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "limit"))
	}

	st := n.stater.NewState()
	list, err := builtin.Registry(st).Range(offset, limit)
	if err != nil {
		return err
	}
	nodes := make([]*Node, 0, len(list))
	for _, entry := range list {
		node, err := n.expand(st, entry)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	return utils.WriteJSON(w, nodes)
}

func (n *Nodes) handleGetNode(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}

	st := n.stater.NewState()
	entry, exists, err := builtin.Registry(st).Get(id)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NotFound(errors.New("no such node"))
	}
	node, err := n.expand(st, entry)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, node)
}

func (n *Nodes) expand(st *state.State, entry *registry.Node) (*Node, error) {
	p := builtin.Participation(st)
	stats, err := p.Stats(entry.ID)
	if err != nil {
		return nil, err
	}
	staked, err := p.StakeOf(entry.ID)
	if err != nil {
		return nil, err
	}
	return &Node{
		Node:        *entry,
		UptimeTotal: stats.UptimeTotal,
		LastUpdate:  stats.LastUpdate,
		Earned:      stats.Earned,
		Staked:      staked,
	}, nil
}

func (n *Nodes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /nodes").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetNodes))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /nodes/{id}").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetNode))
}
