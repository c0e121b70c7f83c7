// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events serves filtered queries over indexed contract events.
package events

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/logdb"
)

type Events struct {
	db    *logdb.LogDB
	limit uint64
}

func New(db *logdb.LogDB, limit uint64) *Events {
	return &Events{db, limit}
}

func (e *Events) handleFilterEvents(w http.ResponseWriter, req *http.Request) error {
	var filter logdb.EventFilter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if filter.Options == nil {
		filter.Options = &logdb.Options{Limit: e.limit}
	} else if filter.Options.Limit > e.limit {
		return utils.BadRequest(errors.Errorf("options.limit exceeds the maximum of %d", e.limit))
	}

	events, err := e.db.FilterEvents(req.Context(), &filter)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*logdb.Event{}
	}
	return utils.WriteJSON(w, events)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /logs/event").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilterEvents))
}
