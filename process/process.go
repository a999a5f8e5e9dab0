// Package process implements the round manager of a QBFT validator. A Process
// admits validated messages for its current height, counts them per round,
// and publishes events when quorums are reached: a proposal is accepted, a
// block is prepared, a height is finalized, or a quorum of round changes moves
// the Process to a later round. The Process never signs or sends messages
// itself. Drivers subscribe to its events and respond to them.
package process

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/mq"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/validation"

	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when a Process handles messages before it
	// has started a height.
	ErrNotStarted = errors.New("process has not started")
	// ErrStaleMessage is returned for messages that are valid, but are no
	// longer useful to the Process because it has moved on.
	ErrStaleMessage = errors.New("stale message")
	// ErrTooFarAhead is returned for messages from heights that are too far
	// ahead of the current height to be queued.
	ErrTooFarAhead = errors.New("message too far ahead")
	// ErrStaleHeight is returned when starting a height that is not greater
	// than the current height.
	ErrStaleHeight = errors.New("stale height")
)

// A Timer expires rounds. Expired rounds must be reported back to the Process
// using OnRoundExpired. Starting a round cancels any previously started round.
type Timer interface {
	StartRound(round.Identifier)
	Cancel()
}

// A Process defines the round manager of one validator. It is safe for
// concurrent use.
type Process struct {
	opts    Options
	factory *validation.Factory
	timer   Timer
	catcher Catcher

	mu           sync.Mutex
	state        State
	dispatcher   *validation.Dispatcher
	proposals    *Inbox
	prepares     *Inbox
	commits      *Inbox
	roundChanges map[uint32]*Inbox
	queue        mq.MessageQueue

	roundAdvancedFeed    event.Feed
	proposalAcceptedFeed event.Feed
	preparedFeed         event.Feed
	roundExpiredFeed     event.Feed
	finalizedFeed        event.Feed
	anomalyFeed          event.Feed
}

// New returns a Process that has not started any height. A nil Catcher
// defaults to CatchAndIgnore.
func New(opts Options, factory *validation.Factory, timer Timer, catcher Catcher) *Process {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if catcher == nil {
		catcher = CatchAndIgnore()
	}
	return &Process{
		opts:    opts,
		factory: factory,
		timer:   timer,
		catcher: catcher,

		roundChanges: map[uint32]*Inbox{},
		queue:        mq.New(opts.Queue),
	}
}

// Start the given height at round zero. Messages that were queued for the
// height are handled before Start returns.
func (p *Process) Start(ctx context.Context, height uint64) error {
	id := round.New(height, 0)
	dispatcher, err := p.factory.Dispatcher(id)
	if err != nil {
		return fmt.Errorf("starting height=%v: %w", height, err)
	}

	p.mu.Lock()
	if p.state.Step != StepNil && height <= p.state.Round.Height {
		current := p.state.Round.Height
		p.mu.Unlock()
		return fmt.Errorf("%w: cannot start height=%v at height=%v", ErrStaleHeight, height, current)
	}
	p.state = State{Round: id, Step: StepPreparing}
	p.dispatcher = dispatcher
	p.resetRound()
	p.roundChanges = map[uint32]*Inbox{}
	p.queue.DropBelow(height)
	// Future rounds are re-queued by Handle, but round changes for any round
	// must be counted now.
	replay := p.consume(round.New(height, ^uint32(0)))
	p.timer.StartRound(id)
	p.opts.Metrics.ObserveHeight(height)
	p.opts.Logger.Info("started height", zap.Uint64("height", height), zap.Int("queued", len(replay)))
	p.mu.Unlock()

	p.replay(ctx, replay)
	return nil
}

// Handle a message. Messages for the current round are validated and counted.
// Messages for later heights or rounds are queued until the Process reaches
// them, if their author is a member of the validator set at their height. Messages for earlier heights or rounds are dropped
// with ErrStaleMessage. Invalid messages are rejected with a
// *validation.Error.
func (p *Process) Handle(ctx context.Context, msg message.Message) error {
	p.mu.Lock()
	if p.state.Step == StepNil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	current, step, dispatcher := p.state.Round, p.state.Step, p.dispatcher

	id := msg.RoundIdentifier()
	stale := id.Height < current.Height || (id.Height == current.Height && step == StepFinalized)
	if !stale && id.Height == current.Height {
		if msg.Kind() == payload.KindRoundChange {
			stale = id.Round <= current.Round
		} else {
			stale = id.Round < current.Round
		}
	}
	if stale {
		p.mu.Unlock()
		p.opts.Logger.Debug("dropped stale message", zap.Stringer("message", msg), zap.Stringer("current", current))
		return ErrStaleMessage
	}
	if id.Height > current.Height || (msg.Kind() != payload.KindRoundChange && id.Round > current.Round) {
		defer p.mu.Unlock()
		return p.enqueue(msg)
	}
	p.mu.Unlock()

	// Validation can be slow, so it happens without holding the lock. The
	// result is discarded if the Process moves on in the meantime.
	author, err := dispatcher.Validate(ctx, msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.state.Round != current || p.state.Step == StepFinalized {
		p.mu.Unlock()
		p.opts.Logger.Debug("discarded message validated for stale round", zap.Stringer("message", msg), zap.Stringer("validated", current))
		return ErrStaleMessage
	}
	var events []interface{}
	var replay message.Messages
	switch msg := msg.(type) {
	case *message.Proposal:
		events, err = p.handleProposal(author, msg)
	case *message.Prepare:
		events = p.handlePrepare(author, msg)
	case *message.Commit:
		events = p.handleCommit(author, msg)
	case *message.RoundChange:
		events, replay, err = p.handleRoundChange(author, msg)
	}
	p.mu.Unlock()

	p.publish(events)
	p.replay(ctx, replay)
	return err
}

// OnRoundExpired moves the Process from preparing the expired round to
// changing rounds, and publishes a RoundExpired event targeting the next
// round. Expiries for rounds other than the latest started or requested round
// are ignored.
func (p *Process) OnRoundExpired(id round.Identifier) {
	p.mu.Lock()
	if (p.state.Step != StepPreparing && p.state.Step != StepRoundChanging) ||
		id.Height != p.state.Round.Height ||
		id.Round != p.state.Target {
		p.mu.Unlock()
		return
	}
	p.state.Step = StepRoundChanging
	p.state.Target = id.Round + 1
	expired := RoundExpired{
		Round:       id,
		Target:      id.Next(),
		Certificate: p.state.Certificate,
	}
	p.timer.StartRound(expired.Target)
	p.opts.Metrics.ObserveRoundExpired()
	p.opts.Logger.Info("round expired", zap.Stringer("round", id), zap.Stringer("target", expired.Target))
	p.mu.Unlock()

	p.publish([]interface{}{expired})
}

// State returns a copy of the current State of the Process.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a summary of the current State of the Process.
func (p *Process) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Snapshot()
}

// Queued returns the number of messages queued for later heights and rounds.
func (p *Process) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// SubscribeRoundAdvanced registers a channel for RoundAdvanced events.
func (p *Process) SubscribeRoundAdvanced(ch chan<- RoundAdvanced) event.Subscription {
	return p.roundAdvancedFeed.Subscribe(ch)
}

// SubscribeProposalAccepted registers a channel for ProposalAccepted events.
func (p *Process) SubscribeProposalAccepted(ch chan<- ProposalAccepted) event.Subscription {
	return p.proposalAcceptedFeed.Subscribe(ch)
}

// SubscribePrepared registers a channel for Prepared events.
func (p *Process) SubscribePrepared(ch chan<- Prepared) event.Subscription {
	return p.preparedFeed.Subscribe(ch)
}

// SubscribeRoundExpired registers a channel for RoundExpired events.
func (p *Process) SubscribeRoundExpired(ch chan<- RoundExpired) event.Subscription {
	return p.roundExpiredFeed.Subscribe(ch)
}

// SubscribeFinalized registers a channel for Finalized events.
func (p *Process) SubscribeFinalized(ch chan<- Finalized) event.Subscription {
	return p.finalizedFeed.Subscribe(ch)
}

// SubscribeAnomaly registers a channel for Anomaly events.
func (p *Process) SubscribeAnomaly(ch chan<- Anomaly) event.Subscription {
	return p.anomalyFeed.Subscribe(ch)
}

func (p *Process) handleProposal(author common.Address, proposal *message.Proposal) ([]interface{}, error) {
	_, inserted, conflicting := p.proposals.Insert(author, proposal.Digest(), proposal)
	if conflicting != nil {
		return p.equivocation(author, conflicting, proposal), nil
	}
	if !inserted {
		return nil, nil
	}
	if p.state.Step != StepPreparing {
		p.opts.Logger.Debug("ignored proposal while changing rounds", zap.Stringer("round", p.state.Round))
		return nil, ErrStaleMessage
	}

	p.state.Proposal = proposal
	p.dispatcher = p.dispatcher.WithDigest(proposal.Digest())
	p.opts.Logger.Debug("accepted proposal", zap.Stringer("round", p.state.Round), zap.String("digest", proposal.Digest().Hex()))

	events := []interface{}{ProposalAccepted{Round: p.state.Round, Proposal: proposal}}
	events = append(events, p.checkPrepared()...)
	events = append(events, p.checkFinalized()...)
	return events, nil
}

func (p *Process) handlePrepare(author common.Address, prepare *message.Prepare) []interface{} {
	_, inserted, conflicting := p.prepares.Insert(author, prepare.Digest(), prepare)
	if conflicting != nil {
		return p.equivocation(author, conflicting, prepare)
	}
	if !inserted {
		return nil
	}
	return p.checkPrepared()
}

func (p *Process) handleCommit(author common.Address, commit *message.Commit) []interface{} {
	_, inserted, conflicting := p.commits.Insert(author, commit.Digest(), commit)
	if conflicting != nil {
		return p.equivocation(author, conflicting, commit)
	}
	if !inserted {
		return nil
	}
	return p.checkFinalized()
}

func (p *Process) handleRoundChange(author common.Address, rc *message.RoundChange) ([]interface{}, message.Messages, error) {
	target := rc.RoundIdentifier().Round
	if target <= p.state.Round.Round {
		return nil, nil, ErrStaleMessage
	}
	inbox, ok := p.roundChanges[target]
	if !ok {
		inbox = NewInbox(payload.KindRoundChange, p.dispatcher.Validators())
		p.roundChanges[target] = inbox
	}
	n, inserted, conflicting := inbox.Insert(author, common.Hash{}, rc)
	if conflicting != nil {
		return p.equivocation(author, conflicting, rc), nil, nil
	}
	if !inserted || n < p.dispatcher.Validators().QuorumCount() {
		return nil, nil, nil
	}
	return p.advance(target)
}

// checkPrepared builds a prepared certificate once a quorum of prepares for the
// accepted proposal has been received.
func (p *Process) checkPrepared() []interface{} {
	proposal := p.state.Proposal
	if proposal == nil || p.prepared() {
		return nil
	}
	digest := proposal.Digest()
	if p.prepares.Count(digest) < p.dispatcher.Validators().QuorumCount() {
		return nil
	}

	msgs := p.prepares.Messages(digest)
	prepares := make([]payload.SignedData[payload.Prepare], 0, len(msgs))
	for _, msg := range msgs {
		prepares = append(prepares, msg.(*message.Prepare).SignedPayload)
	}
	p.state.Certificate = &message.BlockWithCertificate{
		Block: proposal.Block,
		Metadata: payload.PreparedRoundMetadata{
			PreparedRound:     p.state.Round.Round,
			PreparedBlockHash: digest,
		},
		Prepares: prepares,
	}
	p.opts.Logger.Debug("prepared block", zap.Stringer("round", p.state.Round), zap.String("digest", digest.Hex()))
	return []interface{}{Prepared{Round: p.state.Round, Certificate: p.state.Certificate}}
}

func (p *Process) prepared() bool {
	return p.state.Certificate != nil && p.state.Certificate.Metadata.PreparedRound == p.state.Round.Round
}

// checkFinalized finalizes the height once a quorum of commits for the
// accepted proposal has been received.
func (p *Process) checkFinalized() []interface{} {
	proposal := p.state.Proposal
	if proposal == nil || p.state.Step == StepFinalized {
		return nil
	}
	digest := proposal.Digest()
	if p.commits.Count(digest) < p.dispatcher.Validators().QuorumCount() {
		return nil
	}

	msgs := p.commits.Messages(digest)
	seals := make([]sig.Signature, 0, len(msgs))
	for _, msg := range msgs {
		seals = append(seals, msg.(*message.Commit).CommitSeal())
	}
	p.state.Step = StepFinalized
	p.timer.Cancel()
	p.opts.Metrics.ObserveFinalised()
	p.opts.Logger.Info("finalized block", zap.Stringer("round", p.state.Round), zap.String("digest", digest.Hex()), zap.Int("seals", len(seals)))
	return []interface{}{Finalized{
		Height: p.state.Round.Height,
		Round:  p.state.Round.Round,
		Block:  proposal.Block,
		Seals:  seals,
	}}
}

// advance moves the Process to the target round, after a quorum of round
// changes for the target round has been received.
func (p *Process) advance(target uint32) ([]interface{}, message.Messages, error) {
	id := p.state.Round.WithRound(target)
	dispatcher, err := p.factory.Dispatcher(id)
	if err != nil {
		return nil, nil, fmt.Errorf("advancing to %v: %w", id, err)
	}

	msgs := p.roundChanges[target].All()
	rcs := make([]*message.RoundChange, 0, len(msgs))
	for _, msg := range msgs {
		rcs = append(rcs, msg.(*message.RoundChange))
	}
	certificate, conflicts := HighestCertificate(rcs)

	events := make([]interface{}, 0, len(conflicts)+1)
	for _, conflict := range conflicts {
		p.catcher.DidReceiveMessageConflict(conflict[0], conflict[1])
		p.opts.Metrics.ObserveAnomaly(AnomalyConflictingCertificates.String())
		p.opts.Logger.Error("conflicting prepared certificates",
			zap.Stringer("round", id),
			zap.Stringer("first", conflict[0].PreparedMetadata()),
			zap.Stringer("second", conflict[1].PreparedMetadata()),
		)
		events = append(events, Anomaly{
			Kind:     AnomalyConflictingCertificates,
			Round:    id,
			Messages: message.Messages{conflict[0], conflict[1]},
		})
	}

	p.state.Round = id
	p.state.Step = StepPreparing
	p.state.Target = target
	p.state.Proposal = nil
	p.dispatcher = dispatcher
	p.resetRound()
	for r := range p.roundChanges {
		if r <= target {
			delete(p.roundChanges, r)
		}
	}
	p.timer.StartRound(id)
	p.opts.Metrics.ObserveRoundChange(target)
	p.opts.Logger.Info("advanced round", zap.Stringer("round", id), zap.Bool("certificate", certificate != nil))

	events = append(events, RoundAdvanced{
		Round:        id,
		Certificate:  certificate,
		RoundChanges: rcs,
	})
	return events, p.consume(id), nil
}

// HighestCertificate returns the prepared certificate with the highest
// prepared round among the round changes. Round changes that carry prepared
// certificates for the same prepared round but different blocks are returned
// as conflicts, in which case no certificate is returned.
func HighestCertificate(rcs []*message.RoundChange) (*message.BlockWithCertificate, [][2]*message.RoundChange) {
	var highest *message.BlockWithCertificate
	var conflicts [][2]*message.RoundChange
	byPreparedRound := map[uint32]*message.RoundChange{}
	for _, rc := range rcs {
		justification, err := rc.Justification()
		if err != nil {
			continue
		}
		certificate, ok := justification.(*message.BlockWithCertificate)
		if !ok {
			continue
		}
		preparedRound := certificate.Metadata.PreparedRound
		if existing, ok := byPreparedRound[preparedRound]; ok {
			if existing.PreparedMetadata().PreparedBlockHash != certificate.Metadata.PreparedBlockHash {
				conflicts = append(conflicts, [2]*message.RoundChange{existing, rc})
			}
			continue
		}
		byPreparedRound[preparedRound] = rc
		if highest == nil || preparedRound > highest.Metadata.PreparedRound {
			highest = certificate
		}
	}
	if len(conflicts) > 0 {
		return nil, conflicts
	}
	return highest, nil
}

func (p *Process) equivocation(author common.Address, conflicting, msg message.Message) []interface{} {
	p.catcher.DidReceiveMessageConflict(conflicting, msg)
	p.opts.Metrics.ObserveAnomaly(AnomalyEquivocation.String())
	p.opts.Logger.Error("equivocation",
		zap.Stringer("kind", msg.Kind()),
		zap.Stringer("round", msg.RoundIdentifier()),
		zap.String("author", author.Hex()),
	)
	return []interface{}{Anomaly{
		Kind:     AnomalyEquivocation,
		Round:    msg.RoundIdentifier(),
		Author:   author,
		Messages: message.Messages{conflicting, msg},
	}}
}

func (p *Process) resetRound() {
	validators := p.dispatcher.Validators()
	p.proposals = NewInbox(payload.KindProposal, validators)
	p.prepares = NewInbox(payload.KindPrepare, validators)
	p.commits = NewInbox(payload.KindCommit, validators)
}

func (p *Process) enqueue(msg message.Message) error {
	author, err := p.factory.Authenticate(msg)
	if err != nil {
		return err
	}
	if !p.queue.Insert(author, msg) {
		return fmt.Errorf("%w: %v at height=%v", ErrTooFarAhead, msg.RoundIdentifier(), p.state.Round.Height)
	}
	p.opts.Metrics.ObserveQueued()
	return nil
}

func (p *Process) consume(upTo round.Identifier) message.Messages {
	var msgs message.Messages
	p.queue.Consume(upTo, func(msg message.Message) {
		msgs = append(msgs, msg)
	})
	return msgs
}

func (p *Process) replay(ctx context.Context, msgs message.Messages) {
	for _, msg := range msgs {
		if err := p.Handle(ctx, msg); err != nil {
			p.opts.Logger.Debug("replayed message", zap.Stringer("message", msg), zap.Error(err))
		}
	}
}

func (p *Process) publish(events []interface{}) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case RoundAdvanced:
			p.roundAdvancedFeed.Send(ev)
		case ProposalAccepted:
			p.proposalAcceptedFeed.Send(ev)
		case Prepared:
			p.preparedFeed.Send(ev)
		case RoundExpired:
			p.roundExpiredFeed.Send(ev)
		case Finalized:
			p.finalizedFeed.Send(ev)
		case Anomaly:
			p.anomalyFeed.Send(ev)
		}
	}
}
