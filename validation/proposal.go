package validation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// A ProposalValidator validates proposals for one round.
type ProposalValidator struct {
	validators     valset.Set
	id             round.Identifier
	scheduler      schedule.Scheduler
	blockValidator block.Validator
	recoverer      sig.Recoverer
}

// NewProposalValidator returns a ProposalValidator for the given round.
func NewProposalValidator(validators valset.Set, id round.Identifier, scheduler schedule.Scheduler, blockValidator block.Validator, recoverer sig.Recoverer) *ProposalValidator {
	return &ProposalValidator{
		validators:     validators,
		id:             id,
		scheduler:      scheduler,
		blockValidator: blockValidator,
		recoverer:      recoverer,
	}
}

// Validate returns nil if the proposal is valid. It returns the context
// error, rather than a rejection, if the context is done while the block is
// being validated.
func (v *ProposalValidator) Validate(ctx context.Context, msg *message.Proposal) error {
	_, err := v.ValidateAndRecover(ctx, msg)
	return err
}

// ValidateAndRecover is like Validate, but also returns the author.
//
// Proposals in the first round must not be justified. Proposals in later
// rounds must be justified by a quorum of round changes for the round. If any
// of them carries prepared metadata, the proposed block must be the block
// prepared in the highest round, and the proposal must carry the prepares
// that certify it. Round changes that disagree on the block prepared in some
// round force no block.
func (v *ProposalValidator) ValidateAndRecover(ctx context.Context, msg *message.Proposal) (common.Address, error) {
	author, err := authorOf(msg.SignedPayload, v.validators, v.recoverer)
	if err != nil {
		return author, err
	}
	if err := checkRound(payload.KindProposal, msg.RoundIdentifier(), v.id); err != nil {
		return author, err
	}
	if proposer := v.scheduler.Proposer(v.id, v.validators); author != proposer {
		return author, newError(UnexpectedProposer, nil, "proposal by %v, expected %v", author.Hex(), proposer.Hex())
	}
	if msg.Block == nil {
		return author, newError(InvalidPayload, nil, "proposal without block")
	}
	if msg.Block.Hash() != msg.Digest() {
		return author, newError(HashMismatch, nil, "block hash=%v, proposal digest=%v", msg.Block.Hash().Hex(), msg.Digest().Hex())
	}
	if msg.Block.Number() != v.id.Height {
		return author, newError(RoundMismatch, nil, "block number=%v, expected %v", msg.Block.Number(), v.id.Height)
	}

	result := v.blockValidator.ValidateBlock(ctx, msg.Block)
	if err := ctx.Err(); err != nil {
		return author, err
	}
	if !result.Success {
		return author, newError(BlockInvalid, nil, "%v", result.Reason)
	}

	if err := v.validateJustification(msg); err != nil {
		return author, err
	}
	return author, nil
}

func (v *ProposalValidator) validateJustification(msg *message.Proposal) error {
	if v.id.Round == 0 {
		if len(msg.RoundChanges) > 0 || len(msg.Prepares) > 0 {
			return newError(InvalidJustification, nil, "first round proposal carries %v round changes and %v prepares", len(msg.RoundChanges), len(msg.Prepares))
		}
		return nil
	}

	payloadValidator := NewRoundChangePayloadValidator(v.validators, v.id.Height, v.recoverer)
	authors := make([]common.Address, 0, len(msg.RoundChanges))
	var highest *payload.PreparedRoundMetadata
	byPreparedRound := map[uint32]common.Hash{}
	conflicting := false
	for i, rc := range msg.RoundChanges {
		author, err := payloadValidator.ValidateAndRecover(rc)
		if err != nil {
			return newError(InvalidJustification, err, "round change %v of %v", i, len(msg.RoundChanges))
		}
		if !rc.Payload.Round.Equal(v.id) {
			return newError(InvalidJustification, nil, "round change for %v, expected %v", rc.Payload.Round, v.id)
		}
		authors = append(authors, author)
		metadata := rc.Payload.Prepared
		if metadata == nil {
			continue
		}
		if hash, ok := byPreparedRound[metadata.PreparedRound]; ok {
			conflicting = conflicting || hash != metadata.PreparedBlockHash
			continue
		}
		byPreparedRound[metadata.PreparedRound] = metadata.PreparedBlockHash
		if highest == nil || metadata.PreparedRound > highest.PreparedRound {
			highest = metadata
		}
	}
	if HasDuplicateAuthors(authors) {
		return newError(InvalidJustification, newError(DuplicateAuthor, nil, "round changes contain duplicate authors"), "round changes")
	}
	if quorum := v.validators.QuorumCount(); !HasSufficientEntries(len(authors), quorum) {
		return newError(InvalidJustification, nil, "%v round changes, expected at least %v", len(authors), quorum)
	}

	// Round changes that certify different blocks for the same round can
	// only come from a broken quorum. No block is forced, and the proposer
	// proposes a fresh one.
	if conflicting {
		highest = nil
	}
	if highest == nil {
		if len(msg.Prepares) > 0 {
			return newError(InvalidJustification, nil, "proposal carries prepares but no round change is prepared")
		}
		return nil
	}
	if highest.PreparedBlockHash != msg.Block.Hash() {
		return newError(InvalidJustification, nil, "block hash=%v, highest prepared block hash=%v", msg.Block.Hash().Hex(), highest.PreparedBlockHash.Hex())
	}
	preparedID := round.New(v.id.Height, highest.PreparedRound)
	if err := validateCertificate(v.validators, preparedID, highest.PreparedBlockHash, msg.Prepares, v.recoverer); err != nil {
		return newError(InvalidJustification, err, "prepared certificate")
	}
	return nil
}
