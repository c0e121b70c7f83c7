// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams sealed blocks and contract events over websocket.
package subscriptions

import (
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/gridmesh/gridmesh/api/blocks"
	"github.com/gridmesh/gridmesh/api/utils"
	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/log"
	"github.com/gridmesh/gridmesh/mesh"
)

const (
	pingPeriod = 10 * time.Second
	writeWait  = 5 * time.Second
)

var logger = log.New("pkg", "subscriptions")

type Subscriptions struct {
	repo     *chain.Repository
	upgrader *websocket.Upgrader

	wg   sync.WaitGroup
	done chan struct{}
}

func New(repo *chain.Repository, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		repo: repo,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// Close terminates all active subscriptions. The hijacked websocket
// connections are not covered by the http server's shutdown.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

// EventMessage is one contract event pushed to an event subscriber.
type EventMessage struct {
	BlockNumber uint32         `json:"blockNumber"`
	BlockID     mesh.Bytes32   `json:"blockID"`
	BlockTime   uint64         `json:"blockTime"`
	OpID        mesh.Bytes32   `json:"opId"`
	Address     mesh.Address   `json:"address"`
	Topics      []mesh.Bytes32 `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
}

func (s *Subscriptions) convertBlockEvents(blk *block.Block) ([]any, error) {
	receipts, err := s.repo.GetReceipts(blk.Header().ID())
	if err != nil {
		return nil, err
	}
	var msgs []any
	for _, receipt := range receipts {
		for _, ev := range receipt.Events {
			msgs = append(msgs, &EventMessage{
				BlockNumber: blk.Header().Number(),
				BlockID:     blk.Header().ID(),
				BlockTime:   blk.Header().Timestamp(),
				OpID:        receipt.OpID,
				Address:     ev.Address,
				Topics:      ev.Topics,
				Data:        ev.Data,
			})
		}
	}
	return msgs, nil
}

func (s *Subscriptions) handleSubscribeBlock(w http.ResponseWriter, req *http.Request) error {
	return s.stream(w, req, func(blk *block.Block) ([]any, error) {
		msg, err := blocks.ConvertBlock(blk)
		if err != nil {
			return nil, err
		}
		return []any{msg}, nil
	})
}

func (s *Subscriptions) handleSubscribeEvent(w http.ResponseWriter, req *http.Request) error {
	return s.stream(w, req, s.convertBlockEvents)
}

// stream upgrades the connection and pushes, for every block sealed after
// the subscription began, the messages produced by convert.
func (s *Subscriptions) stream(
	w http.ResponseWriter,
	req *http.Request,
	convert func(*block.Block) ([]any, error),
) error {
	position := s.repo.BestBlock().Header().Number()
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already responded
		return nil
	}
	s.wg.Add(1)
	defer func() {
		conn.Close()
		s.wg.Done()
	}()
	logger.Debug("subscription opened", "remote", conn.RemoteAddr())

	// drain incoming control frames
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	waiter := s.repo.NewBlockWaiter()
	for {
		for position < s.repo.BestBlock().Header().Number() {
			blk, err := s.repo.GetBlockByNumber(position + 1)
			if err != nil {
				return err
			}
			msgs, err := convert(blk)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					return nil
				}
			}
			position++
		}
		select {
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			return nil
		case <-closed:
			return nil
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-waiter.C():
		}
	}
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/block").
		Methods(http.MethodGet).
		Name("GET /subscriptions/block").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeBlock))
	sub.Path("/event").
		Methods(http.MethodGet).
		Name("GET /subscriptions/event").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvent))
}
