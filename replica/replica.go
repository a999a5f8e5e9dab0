// Package replica drives a Process through consecutive heights. A Replica
// signs and broadcasts the messages that the Process asks for, proposes
// blocks when it is the proposer of a round, and extends its Chain with
// every finalized block.
package replica

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/process"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/timer"
	"github.com/renproject/qbft/validation"
	"github.com/renproject/qbft/valset"

	"go.uber.org/zap"
)

// ErrNotStarted is returned by Run when the Replica has not been started.
var ErrNotStarted = errors.New("replica has not started")

const eventBufferSize = 1024

// A Replica represents one validator in a replicated state machine. It signs
// Messages before sending them to other Replicas, and verifies Messages
// before accepting them from other Replicas.
type Replica struct {
	opts   Options
	logger *zap.Logger

	signer      sig.Signer
	chain       *block.Chain
	provider    valset.Provider
	scheduler   schedule.Scheduler
	proposer    Proposer
	broadcaster Broadcaster

	proc  *process.Process
	timer *timer.LinearTimer

	scope            event.SubscriptionScope
	roundAdvanced    chan process.RoundAdvanced
	proposalAccepted chan process.ProposalAccepted
	prepared         chan process.Prepared
	roundExpired     chan process.RoundExpired
	finalized        chan process.Finalized
	anomalies        chan process.Anomaly
}

// New returns a Replica that finalizes blocks on top of the given Chain. The
// Replica must be started before it handles messages, and run before it
// responds to them.
func New(
	opts Options,
	signer sig.Signer,
	chain *block.Chain,
	provider valset.Provider,
	scheduler schedule.Scheduler,
	blocks block.Schedule,
	proposer Proposer,
	broadcaster Broadcaster,
	catcher process.Catcher,
) (*Replica, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	recoverer, err := sig.NewCachingRecoverer(sig.NewRecoverer(), opts.RecovererCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating recoverer: %w", err)
	}
	logger := opts.Logger.With(zap.Stringer("validator", signer.Address()))

	factory := validation.NewFactory(
		validation.Options{Logger: logger, Metrics: opts.Metrics},
		provider,
		scheduler,
		blocks,
		recoverer,
	)
	replica := &Replica{
		opts:   opts,
		logger: logger,

		signer:      signer,
		chain:       chain,
		provider:    provider,
		scheduler:   scheduler,
		proposer:    proposer,
		broadcaster: broadcaster,

		roundAdvanced:    make(chan process.RoundAdvanced, eventBufferSize),
		proposalAccepted: make(chan process.ProposalAccepted, eventBufferSize),
		prepared:         make(chan process.Prepared, eventBufferSize),
		roundExpired:     make(chan process.RoundExpired, eventBufferSize),
		finalized:        make(chan process.Finalized, eventBufferSize),
		anomalies:        make(chan process.Anomaly, eventBufferSize),
	}
	replica.timer = timer.NewLinearTimer(opts.TimerOpts, func(timeout timer.Timeout) {
		replica.proc.OnRoundExpired(timeout.RoundIdentifier())
	})
	replica.proc = process.New(
		process.Options{Logger: logger, Metrics: opts.Metrics, Queue: opts.MessageQueueOpts},
		factory,
		replica.timer,
		catcher,
	)

	replica.scope.Track(replica.proc.SubscribeRoundAdvanced(replica.roundAdvanced))
	replica.scope.Track(replica.proc.SubscribeProposalAccepted(replica.proposalAccepted))
	replica.scope.Track(replica.proc.SubscribePrepared(replica.prepared))
	replica.scope.Track(replica.proc.SubscribeRoundExpired(replica.roundExpired))
	replica.scope.Track(replica.proc.SubscribeFinalized(replica.finalized))
	replica.scope.Track(replica.proc.SubscribeAnomaly(replica.anomalies))
	return replica, nil
}

// Start the height after the head of the Chain. Messages handled before
// Start are rejected.
func (replica *Replica) Start(ctx context.Context) error {
	return replica.proc.Start(ctx, replica.chain.Height()+1)
}

// Run responds to the events of the Process until the context is done. It
// proposes a block for the current round if the Replica is the proposer.
func (replica *Replica) Run(ctx context.Context) error {
	defer replica.scope.Close()
	defer replica.timer.Cancel()

	state := replica.proc.State()
	if state.Step == process.StepNil {
		return ErrNotStarted
	}
	replica.proposeAtRoundStart(state.Round)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-replica.proposalAccepted:
			replica.broadcastPrepare(ev.Round, ev.Proposal.Digest())

		case ev := <-replica.prepared:
			replica.broadcastCommit(ev.Round, ev.Certificate.Metadata.PreparedBlockHash)

		case ev := <-replica.roundExpired:
			replica.broadcastRoundChange(ev.Target, ev.Certificate)

		case ev := <-replica.roundAdvanced:
			if replica.proc.State().Round != ev.Round {
				continue
			}
			replica.propose(ev.Round, ev.Certificate, ev.RoundChanges)

		case ev := <-replica.finalized:
			if err := replica.commit(ctx, ev); err != nil {
				return err
			}

		case anomaly := <-replica.anomalies:
			replica.logger.Error("anomaly", zap.Stringer("anomaly", anomaly))
		}
	}
}

// Handle a message received from the network.
func (replica *Replica) Handle(ctx context.Context, msg message.Message) error {
	return replica.proc.Handle(ctx, msg)
}

// Address of the validator signing for the Replica.
func (replica *Replica) Address() common.Address {
	return replica.signer.Address()
}

// Height returns the height of the head of the Chain.
func (replica *Replica) Height() uint64 {
	return replica.chain.Height()
}

// Snapshot returns a summary of the state of the Process.
func (replica *Replica) Snapshot() process.Snapshot {
	return replica.proc.Snapshot()
}

func (replica *Replica) commit(ctx context.Context, finalized process.Finalized) error {
	if finalized.Height <= replica.chain.Height() {
		return nil
	}
	if err := replica.chain.Extend(finalized.Commit()); err != nil {
		return fmt.Errorf("extending chain at height=%v: %w", finalized.Height, err)
	}
	replica.logger.Info("finalized",
		zap.Uint64("height", finalized.Height),
		zap.Uint32("round", finalized.Round),
		zap.Stringer("block", finalized.Block.Hash()),
		zap.Int("seals", len(finalized.Seals)),
	)

	next := finalized.Height + 1
	if err := replica.proc.Start(ctx, next); err != nil {
		return err
	}
	replica.proposeAtRoundStart(round.New(next, 0))
	return nil
}

func (replica *Replica) proposeAtRoundStart(id round.Identifier) {
	state := replica.proc.State()
	if state.Round != id || state.Step != process.StepPreparing {
		return
	}
	replica.propose(id, nil, nil)
}

// propose broadcasts a Proposal for the round when the Replica is its
// proposer. A prepared certificate forces the certified block to be
// proposed again.
func (replica *Replica) propose(id round.Identifier, certificate *message.BlockWithCertificate, rcs []*message.RoundChange) {
	validators, err := replica.provider.ValidatorsAt(id.Height)
	if err != nil {
		replica.logger.Error("cannot load validators", zap.Uint64("height", id.Height), zap.Error(err))
		return
	}
	if replica.scheduler.Proposer(id, validators) != replica.signer.Address() {
		return
	}
	if certificate != nil {
		replica.broadcastProposal(id, certificate.Block, rcs, certificate.Prepares)
		return
	}
	replica.broadcastProposal(id, replica.proposer.BlockProposal(replica.chain.Head(), id), rcs, nil)
}
