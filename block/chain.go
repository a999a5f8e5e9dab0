package block

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/sig"
)

// A Commit is a finalised block together with the commit seals that
// finalised it.
type Commit struct {
	Block Block
	Round uint32
	Seals []sig.Signature
}

// A Chain stores finalised blocks in memory, indexed by hash and by number.
// It is safe for concurrent use.
type Chain struct {
	mu       *sync.RWMutex
	head     Commit
	byHash   map[common.Hash]Commit
	byNumber map[uint64]Commit
}

// NewChain returns a Chain that starts from the given genesis block.
func NewChain(genesis Block) *Chain {
	commit := Commit{Block: genesis}
	return &Chain{
		mu:       new(sync.RWMutex),
		head:     commit,
		byHash:   map[common.Hash]Commit{genesis.Hash(): commit},
		byNumber: map[uint64]Commit{genesis.Number(): commit},
	}
}

// Height of the head of the Chain.
func (chain *Chain) Height() uint64 {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	return chain.head.Block.Number()
}

// Head returns the most recently finalised block.
func (chain *Chain) Head() Block {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	return chain.head.Block
}

// Block finds the block with the given hash.
func (chain *Chain) Block(hash common.Hash) (Block, bool) {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	commit, ok := chain.byHash[hash]
	return commit.Block, ok
}

// CommitAt returns the commit at the given number.
func (chain *Chain) CommitAt(number uint64) (Commit, bool) {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	commit, ok := chain.byNumber[number]
	return commit, ok
}

// Extend the Chain with a commit for the next block. Importing the same block
// twice is a no-op.
func (chain *Chain) Extend(commit Commit) error {
	if commit.Block == nil {
		return fmt.Errorf("extending chain: nil block")
	}
	chain.mu.Lock()
	defer chain.mu.Unlock()

	if existing, ok := chain.byNumber[commit.Block.Number()]; ok && existing.Block.Hash() == commit.Block.Hash() {
		return nil
	}
	if commit.Block.Number() != chain.head.Block.Number()+1 {
		return fmt.Errorf("extending chain: expected number=%v, got number=%v", chain.head.Block.Number()+1, commit.Block.Number())
	}
	if standard, ok := commit.Block.(*Standard); ok && standard.Header().ParentHash != chain.head.Block.Hash() {
		return fmt.Errorf("extending chain: parent hash=%v does not match head hash=%v", standard.Header().ParentHash.Hex(), chain.head.Block.Hash().Hex())
	}
	chain.byHash[commit.Block.Hash()] = commit
	chain.byNumber[commit.Block.Number()] = commit
	chain.head = commit
	return nil
}
