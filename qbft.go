// Package qbft exposes the types needed to run a QBFT validator. A Node
// finalizes one block per height on top of its Chain, and exchanges signed
// Messages with the other validators through a Broadcaster.
package qbft

import (
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/process"
	"github.com/renproject/qbft/replica"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

type (
	Block           = block.Block
	BlockValidator  = block.Validator
	BlockSchedule   = block.Schedule
	Chain           = block.Chain
	Commit          = block.Commit
	Message         = message.Message
	Messages        = message.Messages
	RoundIdentifier = round.Identifier
	Signer          = sig.Signer
	Signature       = sig.Signature
	ValidatorSet    = valset.Set
	Provider        = valset.Provider
	Scheduler       = schedule.Scheduler
	Options         = replica.Options
	Node            = replica.Replica
	Proposer        = replica.Proposer
	Broadcaster     = replica.Broadcaster
	Catcher         = process.Catcher
	Snapshot        = process.Snapshot
)

// DefaultOptions returns the default options for a Node.
func DefaultOptions() Options {
	return replica.DefaultOptions()
}

// New Node that finalizes blocks on top of the Chain, using the validator
// sets of the Provider and the proposers of the Scheduler.
func New(opts Options, signer Signer, chain *Chain, provider Provider, scheduler Scheduler, blocks BlockSchedule, proposer Proposer, broadcaster Broadcaster, catcher Catcher) (*Node, error) {
	return replica.New(opts, signer, chain, provider, scheduler, blocks, proposer, broadcaster, catcher)
}
