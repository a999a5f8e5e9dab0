package replica

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"

	"go.uber.org/zap"
)

// A Broadcaster is used to send signed messages to all validators, including
// the sender.
//
// For the consensus algorithm to work correctly, it is assumed that all honest
// validators will eventually deliver all messages to all other honest
// validators. The specific message ordering is not important. Broadcast must
// not wait for the messages to be handled, because handling a message can wait
// for the Replica that broadcast it.
type Broadcaster interface {
	Broadcast(message.Message)
}

// BroadcasterFunc adapts a function into a Broadcaster.
type BroadcasterFunc func(message.Message)

// Broadcast implements the Broadcaster interface.
func (f BroadcasterFunc) Broadcast(msg message.Message) {
	f(msg)
}

func (replica *Replica) broadcast(msg message.Message, err error) {
	if err != nil {
		replica.logger.Error("cannot sign message", zap.Error(err))
		return
	}
	replica.logger.Debug("broadcasting", zap.Stringer("message", msg))
	replica.broadcaster.Broadcast(msg)
}

func (replica *Replica) broadcastProposal(id round.Identifier, b block.Block, rcs []*message.RoundChange, prepares []payload.SignedData[payload.Prepare]) {
	signed := make([]payload.SignedData[payload.RoundChange], len(rcs))
	for i, rc := range rcs {
		signed[i] = rc.SignedPayload
	}
	replica.broadcast(message.NewProposal(id, b, signed, prepares, replica.signer))
}

func (replica *Replica) broadcastPrepare(id round.Identifier, digest common.Hash) {
	replica.broadcast(message.NewPrepare(id, digest, replica.signer))
}

func (replica *Replica) broadcastCommit(id round.Identifier, digest common.Hash) {
	replica.broadcast(message.NewCommit(id, digest, replica.signer))
}

func (replica *Replica) broadcastRoundChange(target round.Identifier, certificate *message.BlockWithCertificate) {
	replica.broadcast(message.NewRoundChange(target, certificate, replica.signer))
}
