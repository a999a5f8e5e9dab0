// Package txpool buffers transactions until they are included in proposed
// blocks.
package txpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/renproject/qbft/block"
)

// ErrPoolFull is returned when enqueuing into a Pool at capacity.
var ErrPoolFull = errors.New("pool is full")

// A Transaction is opaque application data.
type Transaction []byte

// Hash of the Transaction.
func (tx Transaction) Hash() common.Hash {
	return crypto.Keccak256Hash(tx)
}

type Transactions []Transaction

type Pool interface {
	Enqueue(Transaction) error
	Dequeue() (Transaction, bool)
	Remove(hash common.Hash) bool
	Len() int
}

type fifoPool struct {
	txsMu *sync.Mutex
	cap   int
	txs   Transactions
}

// FIFOPool is a First-In, First-Out transaction pool that is thread safe. It
// holds at most capacity transactions.
func FIFOPool(capacity int) Pool {
	return &fifoPool{
		txsMu: new(sync.Mutex),
		cap:   capacity,
		txs:   make(Transactions, 0, capacity),
	}
}

func (pool *fifoPool) Enqueue(tx Transaction) error {
	pool.txsMu.Lock()
	defer pool.txsMu.Unlock()

	if len(pool.txs) >= pool.cap {
		return fmt.Errorf("enqueuing tx=%v: %w", tx.Hash().Hex(), ErrPoolFull)
	}
	pool.txs = append(pool.txs, tx)
	return nil
}

func (pool *fifoPool) Dequeue() (Transaction, bool) {
	pool.txsMu.Lock()
	defer pool.txsMu.Unlock()

	if len(pool.txs) == 0 {
		return nil, false
	}
	tx := pool.txs[0]
	pool.txs = pool.txs[1:]
	return tx, true
}

// Remove the first Transaction with the given hash. It returns false if no
// such Transaction is in the pool.
func (pool *fifoPool) Remove(hash common.Hash) bool {
	pool.txsMu.Lock()
	defer pool.txsMu.Unlock()

	for i, tx := range pool.txs {
		if tx.Hash() == hash {
			pool.txs = append(pool.txs[:i], pool.txs[i+1:]...)
			return true
		}
	}
	return false
}

func (pool *fifoPool) Len() int {
	pool.txsMu.Lock()
	defer pool.txsMu.Unlock()

	return len(pool.txs)
}

// A Batcher drains transactions from a Pool into the content of proposed
// blocks. It implements the replica.BlockDataIterator interface.
type Batcher struct {
	pool   Pool
	maxTxs int
}

// NewBatcher returns a Batcher that includes at most maxTxs transactions in
// every block.
func NewBatcher(pool Pool, maxTxs int) *Batcher {
	return &Batcher{pool: pool, maxTxs: maxTxs}
}

// Next returns the RLP encoding of the next batch of transactions. The batch
// is empty when the pool is empty.
func (batcher *Batcher) Next() block.Data {
	batch := Transactions{}
	for len(batch) < batcher.maxTxs {
		tx, ok := batcher.pool.Dequeue()
		if !ok {
			break
		}
		batch = append(batch, tx)
	}
	data, err := rlp.EncodeToBytes(batch)
	if err != nil {
		panic(fmt.Errorf("invariant violation: encoding transactions: %v", err))
	}
	return data
}

// DecodeBatch returns the transactions in the content of a block built from
// a Batcher.
func DecodeBatch(data block.Data) (Transactions, error) {
	batch := Transactions{}
	if err := rlp.DecodeBytes(data, &batch); err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}
	return batch, nil
}
