// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the HTTP surface of the node.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/gridmesh/gridmesh/api/blocks"
	"github.com/gridmesh/gridmesh/api/events"
	"github.com/gridmesh/gridmesh/api/nodes"
	"github.com/gridmesh/gridmesh/api/operations"
	"github.com/gridmesh/gridmesh/api/rights"
	"github.com/gridmesh/gridmesh/api/subscriptions"
	"github.com/gridmesh/gridmesh/api/token"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/logdb"
	"github.com/gridmesh/gridmesh/packer"
	"github.com/gridmesh/gridmesh/state"
)

// Options of the api router.
type Options struct {
	AllowedOrigins string
	LogsLimit      uint64
	EnableMetrics  bool
}

// New return api router along with a close function for the hijacked
// subscription connections.
func New(
	repo *chain.Repository,
	stater *state.Stater,
	pkr *packer.Packer,
	logDB *logdb.LogDB,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	nodes.New(stater).
		Mount(router, "/nodes")
	rights.New(stater).
		Mount(router, "/rights")
	operations.New(repo, pkr).
		Mount(router, "/operations")
	token.New(stater).
		Mount(router, "/token")
	blocks.New(repo).
		Mount(router, "/blocks")
	if logDB != nil {
		events.New(logDB, opts.LogsLimit).
			Mount(router, "/logs/event")
	}
	subs := subscriptions.New(repo, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	return handler.ServeHTTP, subs.Close
}
