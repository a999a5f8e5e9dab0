package validation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// A RoundChangeMessageValidator validates round changes at one height,
// including the prepared certificate they may piggyback.
type RoundChangeMessageValidator struct {
	payloadValidator *RoundChangePayloadValidator
	blockValidator   block.Validator
	validators       valset.Set
	chainHeight      uint64
	recoverer        sig.Recoverer
}

// NewRoundChangeMessageValidator returns a RoundChangeMessageValidator. The
// validator set is the snapshot active at the chain height, and is used both
// for the quorum and to validate the piggybacked prepares.
func NewRoundChangeMessageValidator(payloadValidator *RoundChangePayloadValidator, blockValidator block.Validator, validators valset.Set, chainHeight uint64, recoverer sig.Recoverer) *RoundChangeMessageValidator {
	return &RoundChangeMessageValidator{
		payloadValidator: payloadValidator,
		blockValidator:   blockValidator,
		validators:       validators,
		chainHeight:      chainHeight,
		recoverer:        recoverer,
	}
}

// Validate returns nil if the round change is valid. It returns the context
// error, rather than a rejection, if the context is done while the block is
// being validated.
func (v *RoundChangeMessageValidator) Validate(ctx context.Context, msg *message.RoundChange) error {
	_, err := v.ValidateAndRecover(ctx, msg)
	return err
}

// ValidateAndRecover is like Validate, but also returns the author.
func (v *RoundChangeMessageValidator) ValidateAndRecover(ctx context.Context, msg *message.RoundChange) (common.Address, error) {
	author, err := v.payloadValidator.ValidateAndRecover(msg.SignedPayload)
	if err != nil {
		return author, newError(InvalidPayload, err, "round change payload")
	}

	metadata := msg.PreparedMetadata()
	if msg.ProposedBlock == nil {
		if metadata != nil {
			return author, newError(InconsistentRoundChange, nil, "prepared metadata without block")
		}
		return author, nil
	}

	result := v.blockValidator.ValidateBlock(ctx, msg.ProposedBlock)
	if err := ctx.Err(); err != nil {
		return author, err
	}
	if !result.Success {
		return author, newError(BlockInvalid, nil, "%v", result.Reason)
	}
	if metadata == nil {
		return author, newError(MissingPreparedMetadata, nil, "block without prepared metadata")
	}
	if metadata.PreparedBlockHash != msg.ProposedBlock.Hash() {
		return author, newError(HashMismatch, nil, "prepared block hash=%v, block hash=%v", metadata.PreparedBlockHash.Hex(), msg.ProposedBlock.Hash().Hex())
	}

	preparedID := round.New(v.chainHeight, metadata.PreparedRound)
	if err := validateCertificate(v.validators, preparedID, metadata.PreparedBlockHash, msg.Prepares, v.recoverer); err != nil {
		return author, err
	}
	return author, nil
}
