// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token serves reward-token and native-coin balances.
package token

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

type Token struct {
	stater *state.Stater
}

func New(stater *state.Stater) *Token {
	return &Token{stater}
}

// Account is the JSON view of an account's holdings.
type Account struct {
	Address mesh.Address `json:"address"`
	Balance *big.Int     `json:"balance"`
	Native  *big.Int     `json:"native"`
}

func (t *Token) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := mesh.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}

	st := t.stater.NewState()
	balance, err := builtin.Token(st).BalanceOf(addr)
	if err != nil {
		return err
	}
	native, err := st.GetBalance(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Account{
		Address: addr,
		Balance: balance,
		Native:  native,
	})
}

func (t *Token) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /token/{address}").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetAccount))
}
