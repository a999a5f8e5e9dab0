package replica

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/round"
)

// A Proposer builds the block proposed by a Replica when it is the proposer
// of a round, and no block has been prepared at the height.
type Proposer interface {
	BlockProposal(parent block.Block, id round.Identifier) block.Block
}

// A BlockDataIterator returns the content of the next proposed block.
type BlockDataIterator interface {
	Next() block.Data
}

// BlockDataFunc adapts a function into a BlockDataIterator.
type BlockDataFunc func() block.Data

// Next implements the BlockDataIterator interface.
func (f BlockDataFunc) Next() block.Data {
	return f()
}

// BlockProposer returns a Proposer that builds Standard blocks extending the
// parent, with content from the iterator.
func BlockProposer(proposer common.Address, blockDataIterator BlockDataIterator) Proposer {
	return &blockProposer{
		proposer:          proposer,
		blockDataIterator: blockDataIterator,
		now:               time.Now,
	}
}

type blockProposer struct {
	proposer          common.Address
	blockDataIterator BlockDataIterator
	now               func() time.Time
}

func (p *blockProposer) BlockProposal(parent block.Block, id round.Identifier) block.Block {
	timestamp := uint64(p.now().Unix())
	if standard, ok := parent.(*block.Standard); ok && standard.Header().Timestamp > timestamp {
		timestamp = standard.Header().Timestamp
	}
	content := p.blockDataIterator.Next()
	header := block.Header{
		ParentHash: parent.Hash(),
		Number:     id.Height,
		Timestamp:  timestamp,
		Proposer:   p.proposer,
		TxRoot:     crypto.Keccak256Hash(content),
	}
	return block.New(header, content)
}
