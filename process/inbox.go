package process

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/valset"
)

// An Inbox stores validated messages of one kind for one round, at most one
// per author. Authors are tracked by their index in the validator set, and
// counted separately for every digest that they voted for.
type Inbox struct {
	kind       payload.Kind
	validators valset.Set
	votes      map[common.Hash]*bitset.BitSet
	messages   map[uint]message.Message
}

// NewInbox returns an empty Inbox for messages of the given kind. It panics if
// the kind is nil or the validator set is empty.
func NewInbox(kind payload.Kind, validators valset.Set) *Inbox {
	if kind == payload.KindNil {
		panic("invariant violation: message kind cannot be nil")
	}
	if validators.Size() == 0 {
		panic(fmt.Sprintf("invariant violation: validator set for %v inbox cannot be empty", kind))
	}
	return &Inbox{
		kind:       kind,
		validators: validators,
		votes:      map[common.Hash]*bitset.BitSet{},
		messages:   map[uint]message.Message{},
	}
}

// Insert a message from the given author, voting for the given digest. It
// returns the number of distinct authors that have voted for the digest, and
// whether or not the message was inserted. When the author has already sent a
// different message, the existing message is returned as conflicting and the
// new message is not inserted. Re-inserting the same message does nothing.
func (inbox *Inbox) Insert(author common.Address, digest common.Hash, msg message.Message) (n int, inserted bool, conflicting message.Message) {
	if msg.Kind() != inbox.kind {
		panic(fmt.Sprintf("pre-condition violation: expected kind %v, got kind %v", inbox.kind, msg.Kind()))
	}
	i, ok := inbox.validators.IndexOf(author)
	if !ok {
		panic(fmt.Sprintf("pre-condition violation: author %v is not a validator", author.Hex()))
	}
	index := uint(i)

	if existing, ok := inbox.messages[index]; ok {
		if existing.PayloadHash() != msg.PayloadHash() {
			conflicting = existing
		}
		return inbox.Count(digest), false, conflicting
	}

	votes, ok := inbox.votes[digest]
	if !ok {
		votes = bitset.New(uint(inbox.validators.Size()))
		inbox.votes[digest] = votes
	}
	votes.Set(index)
	inbox.messages[index] = msg
	return int(votes.Count()), true, nil
}

// Count returns the number of distinct authors that have voted for the
// digest.
func (inbox *Inbox) Count(digest common.Hash) int {
	votes, ok := inbox.votes[digest]
	if !ok {
		return 0
	}
	return int(votes.Count())
}

// Len returns the number of distinct authors that have sent a message,
// regardless of their digest.
func (inbox *Inbox) Len() int {
	return len(inbox.messages)
}

// Messages returns the messages that voted for the digest, ordered by the
// index of their authors in the validator set.
func (inbox *Inbox) Messages(digest common.Hash) message.Messages {
	votes, ok := inbox.votes[digest]
	if !ok {
		return nil
	}
	msgs := make(message.Messages, 0, votes.Count())
	for i, ok := votes.NextSet(0); ok; i, ok = votes.NextSet(i + 1) {
		msgs = append(msgs, inbox.messages[i])
	}
	return msgs
}

// All returns every message in the Inbox, ordered by the index of their
// authors in the validator set.
func (inbox *Inbox) All() message.Messages {
	msgs := make(message.Messages, 0, len(inbox.messages))
	for i := 0; i < inbox.validators.Size(); i++ {
		if msg, ok := inbox.messages[uint(i)]; ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

