// Package mq buffers consensus messages that arrive before the process has
// reached their height or round, so that they can be replayed later.
package mq

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/round"

	"go.uber.org/zap"
)

// A MessageQueue is used to sort incoming messages by their height and round,
// where messages with lower heights/rounds are found at the beginning of the
// queue. Every sender, identified by their address, has their own dedicated
// queue with its own dedicated maximum capacity. This limits how far in the
// future the MessageQueue will buffer messages, to prevent running out of
// memory. However, this also means that explicit resynchronisation is needed,
// because not all messages that are received are guaranteed to be kept.
// MessageQueues do not handle de-duplication, and are not safe for concurrent
// use.
type MessageQueue struct {
	opts         Options
	floor        uint64
	queuesByFrom map[common.Address][]message.Message
}

// New returns an empty MessageQueue.
func New(opts Options) MessageQueue {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return MessageQueue{
		opts:         opts,
		queuesByFrom: make(map[common.Address][]message.Message),
	}
}

// Consume messages from the MessageQueue that have round identifiers up to
// (and including) the given round identifier. The callback will be called for
// every message that is consumed, in order for each sender. All consumed
// messages will be dropped from the MessageQueue.
func (mq *MessageQueue) Consume(upTo round.Identifier, f func(message.Message)) (n int) {
	for from, q := range mq.queuesByFrom {
		for len(q) > 0 {
			if upTo.Less(q[0].RoundIdentifier()) {
				break
			}
			f(q[0])
			n++
			q = q[1:]
		}
		if len(q) == 0 {
			delete(mq.queuesByFrom, from)
			continue
		}
		mq.queuesByFrom[from] = q
	}
	return
}

// DropBelow drops all messages for heights lower than the given height, and
// returns how many were dropped. The height becomes the base from which
// MaxHeightsAhead is measured.
func (mq *MessageQueue) DropBelow(height uint64) (n int) {
	if height > mq.floor {
		mq.floor = height
	}
	for from, q := range mq.queuesByFrom {
		i := sort.Search(len(q), func(i int) bool {
			return q[i].RoundIdentifier().Height >= height
		})
		n += i
		if i == len(q) {
			delete(mq.queuesByFrom, from)
			continue
		}
		mq.queuesByFrom[from] = q[i:]
	}
	return
}

// Insert a message into the MessageQueue. This method assumes that the author
// of the message has already been recovered from its signature. It returns
// false if the message is too far ahead to be buffered.
func (mq *MessageQueue) Insert(from common.Address, msg message.Message) bool {
	id := msg.RoundIdentifier()
	if mq.opts.MaxHeightsAhead > 0 && id.Height > mq.floor+mq.opts.MaxHeightsAhead {
		mq.opts.Logger.Debug("message too far ahead",
			zap.String("from", from.Hex()),
			zap.Stringer("round", id),
			zap.Uint64("floor", mq.floor),
		)
		return false
	}

	// Load the queue from the map, and defer saving it back to the map.
	q := mq.queuesByFrom[from]
	if q == nil {
		q = make([]message.Message, 0, mq.opts.MaxCapacity)
	}
	defer func() { mq.queuesByFrom[from] = q }()

	// Find the index at which the message should be inserted to maintain
	// height/round ordering.
	insertAt := sort.Search(len(q), func(i int) bool {
		return id.Less(q[i].RoundIdentifier())
	})

	// Insert into the slice using the trick described at
	// https://github.com/golang/go/wiki/SliceTricks (which minimises
	// allocations and copying).
	q = append(q, nil)
	copy(q[insertAt+1:], q[insertAt:])
	q[insertAt] = msg

	// If the queue for this sender has exceeded its maximum capacity, then we
	// drop excess elements. This protects against adversaries that might seek
	// to cause an OOM by sending messages "from the far future".
	if len(q) > mq.opts.MaxCapacity {
		dropped := q[mq.opts.MaxCapacity]
		q = q[:mq.opts.MaxCapacity]
		mq.opts.Logger.Debug("queue at capacity",
			zap.String("from", from.Hex()),
			zap.Stringer("dropped", dropped.RoundIdentifier()),
		)
	}
	return true
}

// Len returns the number of messages in the MessageQueue.
func (mq *MessageQueue) Len() (n int) {
	for _, q := range mq.queuesByFrom {
		n += len(q)
	}
	return
}
