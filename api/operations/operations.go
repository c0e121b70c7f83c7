// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package operations accepts signed operations and serves their receipts.
package operations

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/packer"
	"github.com/gridmesh/gridmesh/tx"
)

type Operations struct {
	repo   *chain.Repository
	packer *packer.Packer
}

func New(repo *chain.Repository, packer *packer.Packer) *Operations {
	return &Operations{repo, packer}
}

// RawOperation is the submission envelope: the RLP encoding of a signed
// operation, hex prefixed with 0x.
type RawOperation struct {
	Raw string `json:"raw"`
}

// Event is the JSON view of a contract event.
type Event struct {
	Address mesh.Address   `json:"address"`
	Topics  []mesh.Bytes32 `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// Receipt is the JSON view of an execution receipt.
type Receipt struct {
	OpID         mesh.Bytes32 `json:"opId"`
	Origin       mesh.Address `json:"origin"`
	Method       string       `json:"method"`
	Value        *big.Int     `json:"value"`
	Reverted     bool         `json:"reverted"`
	RevertReason string       `json:"revertReason,omitempty"`
	Events       []*Event     `json:"events"`
}

func convertReceipt(receipt *tx.Receipt) *Receipt {
	events := make([]*Event, 0, len(receipt.Events))
	for _, ev := range receipt.Events {
		events = append(events, &Event{
			Address: ev.Address,
			Topics:  ev.Topics,
			Data:    ev.Data,
		})
	}
	return &Receipt{
		OpID:         receipt.OpID,
		Origin:       receipt.Origin,
		Method:       receipt.Method,
		Value:        receipt.Value,
		Reverted:     receipt.Reverted,
		RevertReason: receipt.RevertReason,
		Events:       events,
	}
}

func (o *Operations) handleSubmitOperation(w http.ResponseWriter, req *http.Request) error {
	var raw RawOperation
	if err := utils.ParseJSON(req.Body, &raw); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	data, err := hexutil.Decode(raw.Raw)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "raw"))
	}
	var op tx.Operation
	if err := rlp.DecodeBytes(data, &op); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "raw"))
	}
	if err := o.packer.Add(&op); err != nil {
		return utils.BadRequest(err)
	}
	id, err := op.ID()
	if err != nil {
		return utils.BadRequest(err)
	}
	return utils.WriteJSON(w, utils.M{"id": id})
}

func (o *Operations) handleGetReceipt(w http.ResponseWriter, req *http.Request) error {
	id, err := mesh.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	receipt, err := o.repo.GetOpReceipt(id)
	if err != nil {
		if chain.IsNotFound(err) {
			return utils.NotFound(errors.New("no such operation"))
		}
		return err
	}
	return utils.WriteJSON(w, convertReceipt(receipt))
}

func (o *Operations) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /operations").
		HandlerFunc(utils.WrapHandlerFunc(o.handleSubmitOperation))
	sub.Path("/{id}/receipt").
		Methods(http.MethodGet).
		Name("GET /operations/{id}/receipt").
		HandlerFunc(utils.WrapHandlerFunc(o.handleGetReceipt))
}
