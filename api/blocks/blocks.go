// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package blocks serves the sealed block history.
package blocks

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/mesh"
)

type Blocks struct {
	repo *chain.Repository
}

func New(repo *chain.Repository) *Blocks {
	return &Blocks{repo}
}

// Block is the JSON view of a sealed block.
type Block struct {
	Number    uint32         `json:"number"`
	ID        mesh.Bytes32   `json:"id"`
	ParentID  mesh.Bytes32   `json:"parentID"`
	Timestamp uint64         `json:"timestamp"`
	Ops       []mesh.Bytes32 `json:"ops"`
}

func ConvertBlock(blk *block.Block) (*Block, error) {
	ops := blk.Operations()
	opIDs := make([]mesh.Bytes32, 0, len(ops))
	for _, op := range ops {
		id, err := op.ID()
		if err != nil {
			return nil, err
		}
		opIDs = append(opIDs, id)
	}
	header := blk.Header()
	return &Block{
		Number:    header.Number(),
		ID:        header.ID(),
		ParentID:  header.ParentID(),
		Timestamp: header.Timestamp(),
		Ops:       opIDs,
	}, nil
}

// getBlock resolves a revision: "best", a block number, or a 0x block id.
func (b *Blocks) getBlock(revision string) (*block.Block, error) {
	if revision == "" || revision == "best" {
		return b.repo.BestBlock(), nil
	}
	if strings.HasPrefix(revision, "0x") {
		id, err := mesh.ParseBytes32(revision)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "revision"))
		}
		return b.repo.GetBlock(id)
	}
	num, err := strconv.ParseUint(revision, 10, 32)
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "revision"))
	}
	return b.repo.GetBlockByNumber(uint32(num))
}

func (b *Blocks) handleGetBlock(w http.ResponseWriter, req *http.Request) error {
	blk, err := b.getBlock(mux.Vars(req)["revision"])
	if err != nil {
		if chain.IsNotFound(err) {
			return utils.WriteJSON(w, nil)
		}
		return err
	}
	converted, err := ConvertBlock(blk)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, converted)
}

func (b *Blocks) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/{revision}").
		Methods(http.MethodGet).
		Name("GET /blocks/{revision}").
		HandlerFunc(utils.WrapHandlerFunc(b.handleGetBlock))
}
