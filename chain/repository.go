// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain persists the sealed block history and execution receipts.
package chain

import (
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/gridmesh/gridmesh/block"
	"github.com/gridmesh/gridmesh/co"
	"github.com/gridmesh/gridmesh/kv"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/tx"
)

const (
	blockCacheLimit   = 512
	receiptCacheLimit = 512
)

var (
	bestKey = []byte("chain-best")

	errNotFound = errors.New("not found")
)

// IsNotFound tells whether err means block or receipt absence.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func blockKey(id mesh.Bytes32) []byte     { return append([]byte("b"), id.Bytes()...) }
func receiptsKey(id mesh.Bytes32) []byte  { return append([]byte("r"), id.Bytes()...) }
func opMetaKey(opID mesh.Bytes32) []byte  { return append([]byte("o"), opID.Bytes()...) }
func numberKey(num uint32) []byte {
	b := []byte("n....")
	binary.BigEndian.PutUint32(b[1:], num)
	return b
}

// OpMeta locates an executed operation inside the chain.
type OpMeta struct {
	BlockID mesh.Bytes32
	Index   uint64
}

// Repository is the append-only store of sealed blocks and their receipts.
// The chain is linear; there is no fork choice.
type Repository struct {
	store kv.GetPutter

	mu   sync.RWMutex
	best *block.Block

	blockCache   *lru.Cache
	receiptCache *lru.Cache

	newBlockSignal co.Signal
}

// NewRepository opens the repository, committing the genesis block if the
// store is empty. An existing store must match the given genesis.
func NewRepository(store kv.GetPutter, genesis *block.Block) (*Repository, error) {
	blockCache, _ := lru.New(blockCacheLimit)
	receiptCache, _ := lru.New(receiptCacheLimit)
	repo := &Repository{
		store:        store,
		blockCache:   blockCache,
		receiptCache: receiptCache,
	}

	has, err := store.Has(bestKey)
	if err != nil {
		return nil, err
	}
	if !has {
		if err := repo.saveBlock(genesis, nil); err != nil {
			return nil, err
		}
		if err := repo.setBest(genesis); err != nil {
			return nil, err
		}
		repo.best = genesis
		return repo, nil
	}

	bestID, err := store.Get(bestKey)
	if err != nil {
		return nil, err
	}
	best, err := repo.GetBlock(mesh.BytesToBytes32(bestID))
	if err != nil {
		return nil, errors.WithMessage(err, "load best block")
	}
	storedGenesis, err := repo.GetBlockByNumber(0)
	if err != nil {
		return nil, errors.WithMessage(err, "load genesis block")
	}
	if storedGenesis.Header().ID() != genesis.Header().ID() {
		return nil, errors.New("genesis mismatch")
	}
	repo.best = best
	return repo, nil
}

// BestBlock returns the newest sealed block.
func (r *Repository) BestBlock() *block.Block {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.best
}

// AddBlock appends a sealed block and its receipts to the chain.
// The block must directly extend the current best block.
func (r *Repository) AddBlock(blk *block.Block, receipts tx.Receipts) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if blk.Header().ParentID() != r.best.Header().ID() {
		return errors.New("block does not extend the best block")
	}
	if blk.Header().Number() != r.best.Header().Number()+1 {
		return errors.New("non-sequential block number")
	}
	if err := r.saveBlock(blk, receipts); err != nil {
		return err
	}
	if err := r.setBest(blk); err != nil {
		return err
	}
	r.best = blk
	r.newBlockSignal.Broadcast()
	return nil
}

// NewBlockWaiter returns a waiter woken whenever a block is appended.
func (r *Repository) NewBlockWaiter() co.Waiter {
	return r.newBlockSignal.NewWaiter()
}

func (r *Repository) saveBlock(blk *block.Block, receipts tx.Receipts) error {
	id := blk.Header().ID()

	batch := r.store.NewBatch()
	data, err := rlp.EncodeToBytes(blk)
	if err != nil {
		return err
	}
	if err := batch.Put(blockKey(id), data); err != nil {
		return err
	}
	if err := batch.Put(numberKey(blk.Header().Number()), id.Bytes()); err != nil {
		return err
	}

	if receipts != nil {
		data, err := rlp.EncodeToBytes(receipts)
		if err != nil {
			return err
		}
		if err := batch.Put(receiptsKey(id), data); err != nil {
			return err
		}
	}
	for i, op := range blk.Operations() {
		opID, err := op.ID()
		if err != nil {
			return err
		}
		meta, err := rlp.EncodeToBytes(&OpMeta{BlockID: id, Index: uint64(i)})
		if err != nil {
			return err
		}
		if err := batch.Put(opMetaKey(opID), meta); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	r.blockCache.Add(id, blk)
	if receipts != nil {
		r.receiptCache.Add(id, receipts)
	}
	return nil
}

func (r *Repository) setBest(blk *block.Block) error {
	return r.store.Put(bestKey, blk.Header().ID().Bytes())
}

// GetBlock retrieves a block by id.
func (r *Repository) GetBlock(id mesh.Bytes32) (*block.Block, error) {
	if cached, ok := r.blockCache.Get(id); ok {
		return cached.(*block.Block), nil
	}
	data, err := r.store.Get(blockKey(id))
	if err != nil {
		return nil, convertNotFound(r.store, err)
	}
	var blk block.Block
	if err := rlp.DecodeBytes(data, &blk); err != nil {
		return nil, err
	}
	r.blockCache.Add(id, &blk)
	return &blk, nil
}

// GetBlockByNumber retrieves a block by its height.
func (r *Repository) GetBlockByNumber(num uint32) (*block.Block, error) {
	data, err := r.store.Get(numberKey(num))
	if err != nil {
		return nil, convertNotFound(r.store, err)
	}
	return r.GetBlock(mesh.BytesToBytes32(data))
}

// GetReceipts retrieves the receipts of the block with the given id.
func (r *Repository) GetReceipts(id mesh.Bytes32) (tx.Receipts, error) {
	if cached, ok := r.receiptCache.Get(id); ok {
		return cached.(tx.Receipts), nil
	}
	data, err := r.store.Get(receiptsKey(id))
	if err != nil {
		return nil, convertNotFound(r.store, err)
	}
	var receipts tx.Receipts
	if err := rlp.DecodeBytes(data, &receipts); err != nil {
		return nil, err
	}
	r.receiptCache.Add(id, receipts)
	return receipts, nil
}

// GetOpReceipt locates and returns the receipt of an executed operation.
func (r *Repository) GetOpReceipt(opID mesh.Bytes32) (*tx.Receipt, error) {
	data, err := r.store.Get(opMetaKey(opID))
	if err != nil {
		return nil, convertNotFound(r.store, err)
	}
	var meta OpMeta
	if err := rlp.DecodeBytes(data, &meta); err != nil {
		return nil, err
	}
	receipts, err := r.GetReceipts(meta.BlockID)
	if err != nil {
		return nil, err
	}
	if meta.Index >= uint64(len(receipts)) {
		return nil, errNotFound
	}
	return receipts[meta.Index], nil
}

func convertNotFound(store kv.Getter, err error) error {
	if store.IsNotFound(err) {
		return errNotFound
	}
	return err
}
