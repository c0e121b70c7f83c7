// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb indexes contract events into SQLite for rich filtering.
package logdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/tx"
)

const maxTopics = 4

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY,
	blockNumber INTEGER NOT NULL,
	blockID BLOB(32) NOT NULL,
	blockTime INTEGER NOT NULL,
	opID BLOB(32) NOT NULL,
	origin BLOB(20) NOT NULL,
	address BLOB(20) NOT NULL,
	topic0 BLOB(32),
	topic1 BLOB(32),
	topic2 BLOB(32),
	topic3 BLOB(32),
	data BLOB
);
CREATE INDEX IF NOT EXISTS event_i1 ON event(address, topic0, blockNumber);
CREATE INDEX IF NOT EXISTS event_i2 ON event(blockNumber);`

// LogDB is the searchable store of contract events.
type LogDB struct {
	db *sql.DB
}

// New opens or creates the event database at the given path.
func New(path string) (*LogDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=wal&cache=shared")
	if err != nil {
		return nil, err
	}
	// sqlite connections are not concurrency-safe for writes
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventTableSchema); err != nil {
		db.Close()
		return nil, errors.WithMessage(err, "create schema")
	}
	return &LogDB{db}, nil
}

// NewMem creates a transient in-memory event database.
func NewMem() (*LogDB, error) {
	return New("file::memory:")
}

// Close closes the database.
func (l *LogDB) Close() error {
	return l.db.Close()
}

// Commit indexes all events of the sealed block in one transaction.
func (l *LogDB) Commit(blk *block.Block, receipts tx.Receipts) error {
	dbtx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.Prepare(`INSERT INTO event(
		blockNumber, blockID, blockTime, opID, origin, address,
		topic0, topic1, topic2, topic3, data)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	header := blk.Header()
	blockID := header.ID()
	for _, receipt := range receipts {
		for _, ev := range receipt.Events {
			topics := make([]any, maxTopics)
			for i := range topics {
				if i < len(ev.Topics) {
					topics[i] = ev.Topics[i].Bytes()
				}
			}
			if _, err := stmt.Exec(
				header.Number(),
				blockID.Bytes(),
				header.Timestamp(),
				receipt.OpID.Bytes(),
				receipt.Origin.Bytes(),
				ev.Address.Bytes(),
				topics[0], topics[1], topics[2], topics[3],
				ev.Data,
			); err != nil {
				return err
			}
		}
	}
	return dbtx.Commit()
}

// Event is an indexed contract event with its chain position.
type Event struct {
	BlockNumber uint32          `json:"blockNumber"`
	BlockID     mesh.Bytes32    `json:"blockID"`
	BlockTime   uint64          `json:"blockTime"`
	OpID        mesh.Bytes32    `json:"opID"`
	Origin      mesh.Address    `json:"origin"`
	Address     mesh.Address    `json:"address"`
	Topics      []*mesh.Bytes32 `json:"topics"`
	Data        hexutil.Bytes   `json:"data"`
}

// Order of filter results.
type Order string

// Orders.
const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Options limits the result window.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EventFilter describes an event query.
// Nil criteria match everything; topic criteria are positional.
type EventFilter struct {
	Address   *mesh.Address               `json:"address"`
	Topics    [maxTopics]*mesh.Bytes32    `json:"topics"`
	FromBlock uint32                      `json:"fromBlock"`
	ToBlock   uint32                      `json:"toBlock"`
	Options   *Options                    `json:"options"`
	Order     Order                       `json:"order"`
}

// FilterEvents queries indexed events matching the filter.
func (l *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	query := `SELECT blockNumber, blockID, blockTime, opID, origin, address,
		topic0, topic1, topic2, topic3, data FROM event`

	var (
		conds []string
		args  []any
	)
	if filter != nil {
		conds = append(conds, "blockNumber >= ?")
		args = append(args, filter.FromBlock)
		if filter.ToBlock > 0 {
			conds = append(conds, "blockNumber <= ?")
			args = append(args, filter.ToBlock)
		}
		if filter.Address != nil {
			conds = append(conds, "address = ?")
			args = append(args, filter.Address.Bytes())
		}
		for i, topic := range filter.Topics {
			if topic != nil {
				conds = append(conds, fmt.Sprintf("topic%d = ?", i))
				args = append(args, topic.Bytes())
			}
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter != nil && filter.Order == DESC {
		query += " ORDER BY seq DESC"
	} else {
		query += " ORDER BY seq ASC"
	}
	if filter != nil && filter.Options != nil {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Options.Limit, filter.Options.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			ev      Event
			blockID []byte
			opID    []byte
			origin  []byte
			address []byte
			topics  [maxTopics][]byte
		)
		if err := rows.Scan(
			&ev.BlockNumber, &blockID, &ev.BlockTime, &opID, &origin, &address,
			&topics[0], &topics[1], &topics[2], &topics[3], &ev.Data,
		); err != nil {
			return nil, err
		}
		ev.BlockID = mesh.BytesToBytes32(blockID)
		ev.OpID = mesh.BytesToBytes32(opID)
		ev.Origin = mesh.BytesToAddress(origin)
		ev.Address = mesh.BytesToAddress(address)
		for _, raw := range topics {
			if len(raw) > 0 {
				topic := mesh.BytesToBytes32(raw)
				ev.Topics = append(ev.Topics, &topic)
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
