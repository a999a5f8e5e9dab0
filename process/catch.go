package process

import "github.com/renproject/qbft/message"

// A Catcher is used to publish events about potential malicious behaviour by
// other validators.
type Catcher interface {
	// DidReceiveMessageConflict is called when a new Message is received that
	// conflicts with an existing Message. Messages of the same kind are defined
	// to be in conflict when they are from the same author, height, and round,
	// but have different contents.
	//
	// For example, when proposing a block in any given height and round, an
	// honest validator should only ever propose one block. A malicious
	// validator might try to break consensus by proposing two different
	// blocks, resulting in two conflicting Proposals in the same height and
	// round.
	//
	// Round changes that carry conflicting prepared certificates for the same
	// prepared round are also reported, even when they come from different
	// authors.
	DidReceiveMessageConflict(conflicting, msg message.Message)
}

type catchAndIgnore struct{}

// CatchAndIgnore returns a Catcher that ignores all potentially malicious
// behaviour. It should only be used during testing, or when validators are
// known to be honest.
func CatchAndIgnore() Catcher {
	return catchAndIgnore{}
}

// DidReceiveMessageConflict does nothing.
func (catchAndIgnore) DidReceiveMessageConflict(conflicting, msg message.Message) {}
