// Package validation decides whether consensus messages are authentic and
// legal. Every validator checks, in order, that the signature recovers to an
// author, that the author is a member of the validator set, that the message
// is for the expected round, and then the content specific to its kind. The
// first failed check rejects the message with an *Error.
//
// Validators are constructed for one round (or one height, for round
// changes) and one validator set snapshot. They hold no other state, and can
// be used concurrently.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/metrics"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"

	"go.uber.org/zap"
)

// A Factory builds Dispatchers for rounds, using the validator set that is
// active at the height of each round.
type Factory struct {
	opts      Options
	provider  valset.Provider
	scheduler schedule.Scheduler
	blocks    block.Schedule
	recoverer sig.Recoverer
}

// NewFactory returns a Factory. A nil Recoverer defaults to
// sig.NewRecoverer().
func NewFactory(opts Options, provider valset.Provider, scheduler schedule.Scheduler, blocks block.Schedule, recoverer sig.Recoverer) *Factory {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if recoverer == nil {
		recoverer = sig.NewRecoverer()
	}
	return &Factory{
		opts:      opts,
		provider:  provider,
		scheduler: scheduler,
		blocks:    blocks,
		recoverer: recoverer,
	}
}

// Recoverer returns the Recoverer used by all validators built by the
// Factory.
func (f *Factory) Recoverer() sig.Recoverer {
	return f.recoverer
}

// Authenticate recovers the author of a message and checks that it is a
// member of the validator set active at the height of the message. Nothing
// else about the message is checked. Rejections are logged and counted.
func (f *Factory) Authenticate(msg message.Message) (common.Address, error) {
	height := msg.RoundIdentifier().Height
	validators, err := f.provider.ValidatorsAt(height)
	if err != nil {
		return common.Address{}, fmt.Errorf("loading validators at height=%v: %w", height, err)
	}
	author, err := msg.Author(f.recoverer)
	if err != nil {
		err = newError(InvalidSignature, err, "cannot recover author of %v", msg.Kind())
		reject(f.opts.Logger, f.opts.Metrics, msg, common.Address{}, err)
		return common.Address{}, err
	}
	if !validators.Contains(author) {
		err = newError(UnknownSigner, nil, "%v author=%v is not a validator", msg.Kind(), author.Hex())
		reject(f.opts.Logger, f.opts.Metrics, msg, author, err)
		return author, err
	}
	return author, nil
}

// Dispatcher returns a Dispatcher for the given round.
func (f *Factory) Dispatcher(id round.Identifier) (*Dispatcher, error) {
	validators, err := f.provider.ValidatorsAt(id.Height)
	if err != nil {
		return nil, fmt.Errorf("loading validators at height=%v: %w", id.Height, err)
	}
	blockValidator := timedValidator{
		next:    f.blocks.BlockValidator(id.Height),
		metrics: f.opts.Metrics,
	}
	return &Dispatcher{
		logger:     f.opts.Logger,
		metrics:    f.opts.Metrics,
		id:         id,
		validators: validators,
		scheduler:  f.scheduler,
		blocks:     blockValidator,
		recoverer:  f.recoverer,
	}, nil
}

type handler func(d *Dispatcher, ctx context.Context, msg message.Message) (common.Address, error)

var handlers = map[payload.Kind]handler{
	payload.KindProposal:    (*Dispatcher).validateProposal,
	payload.KindPrepare:     (*Dispatcher).validatePrepare,
	payload.KindCommit:      (*Dispatcher).validateCommit,
	payload.KindRoundChange: (*Dispatcher).validateRoundChange,
}

// A Dispatcher validates messages of every kind for one round, dispatching
// each message to the validator for its kind. Round changes are accepted for
// any round at the height. Rejections are logged and counted.
type Dispatcher struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	id         round.Identifier
	validators valset.Set
	digest     *common.Hash
	scheduler  schedule.Scheduler
	blocks     block.Validator
	recoverer  sig.Recoverer
}

// WithDigest returns a copy of the Dispatcher that only accepts prepares and
// commits for the given block hash. Without a digest, prepares and commits
// are accepted for any block hash, and must be counted per block hash.
func (d *Dispatcher) WithDigest(digest common.Hash) *Dispatcher {
	copied := *d
	copied.digest = &digest
	return &copied
}

// RoundIdentifier returns the round of the Dispatcher.
func (d *Dispatcher) RoundIdentifier() round.Identifier {
	return d.id
}

// Validators returns the validator set snapshot used by the Dispatcher.
func (d *Dispatcher) Validators() valset.Set {
	return d.validators
}

// Validate the message and return its author.
func (d *Dispatcher) Validate(ctx context.Context, msg message.Message) (common.Address, error) {
	kind := msg.Kind()
	d.metrics.ObserveReceived(kind.String())

	h, ok := handlers[kind]
	if !ok {
		err := newError(InvalidPayload, nil, "unexpected message kind=%v", kind)
		d.reject(msg, common.Address{}, err)
		return common.Address{}, err
	}
	author, err := h(d, ctx, msg)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return author, err
		}
		d.reject(msg, author, err)
		return author, err
	}
	d.metrics.ObserveAccepted(kind.String())
	return author, nil
}

func (d *Dispatcher) reject(msg message.Message, author common.Address, err error) {
	reject(d.logger, d.metrics, msg, author, err)
}

func reject(logger *zap.Logger, m *metrics.Metrics, msg message.Message, author common.Address, err error) {
	kind, _ := KindOf(err)
	m.ObserveRejected(msg.Kind().String(), kind.String())
	logger.Warn("rejected message",
		zap.Stringer("message", msg.Kind()),
		zap.Stringer("kind", kind),
		zap.Stringer("round", msg.RoundIdentifier()),
		zap.String("author", author.Hex()),
		zap.String("reason", err.Error()),
	)
}

func (d *Dispatcher) digestOr(digest common.Hash) common.Hash {
	if d.digest != nil {
		return *d.digest
	}
	return digest
}

func (d *Dispatcher) validateProposal(ctx context.Context, msg message.Message) (common.Address, error) {
	proposal := msg.(*message.Proposal)
	return NewProposalValidator(d.validators, d.id, d.scheduler, d.blocks, d.recoverer).ValidateAndRecover(ctx, proposal)
}

func (d *Dispatcher) validatePrepare(ctx context.Context, msg message.Message) (common.Address, error) {
	prepare := msg.(*message.Prepare)
	return NewPrepareValidator(d.validators, d.id, d.digestOr(prepare.Digest()), d.recoverer).ValidateAndRecover(prepare.SignedPayload)
}

func (d *Dispatcher) validateCommit(ctx context.Context, msg message.Message) (common.Address, error) {
	commit := msg.(*message.Commit)
	return NewCommitValidator(d.validators, d.id, d.digestOr(commit.Digest()), d.recoverer).ValidateAndRecover(commit.SignedPayload)
}

func (d *Dispatcher) validateRoundChange(ctx context.Context, msg message.Message) (common.Address, error) {
	rc := msg.(*message.RoundChange)
	payloadValidator := NewRoundChangePayloadValidator(d.validators, d.id.Height, d.recoverer)
	return NewRoundChangeMessageValidator(payloadValidator, d.blocks, d.validators, d.id.Height, d.recoverer).ValidateAndRecover(ctx, rc)
}

type timedValidator struct {
	next    block.Validator
	metrics *metrics.Metrics
}

func (v timedValidator) ValidateBlock(ctx context.Context, b block.Block) block.Result {
	start := time.Now()
	defer func() { v.metrics.ObserveBlockValidation(time.Since(start)) }()
	return v.next.ValidateBlock(ctx, b)
}
