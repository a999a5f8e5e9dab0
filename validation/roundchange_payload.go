package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// A RoundChangePayloadValidator validates the signed payload of round changes
// at one height. Round changes can target any round at the height.
type RoundChangePayloadValidator struct {
	validators  valset.Set
	chainHeight uint64
	recoverer   sig.Recoverer
}

// NewRoundChangePayloadValidator returns a RoundChangePayloadValidator for the
// given height.
func NewRoundChangePayloadValidator(validators valset.Set, chainHeight uint64, recoverer sig.Recoverer) *RoundChangePayloadValidator {
	return &RoundChangePayloadValidator{
		validators:  validators,
		chainHeight: chainHeight,
		recoverer:   recoverer,
	}
}

// Validate returns nil if the payload is valid.
func (v *RoundChangePayloadValidator) Validate(signed payload.SignedData[payload.RoundChange]) error {
	_, err := v.ValidateAndRecover(signed)
	return err
}

// ValidateAndRecover is like Validate, but also returns the author. Prepared
// metadata, when present, must refer to a round before the target round.
func (v *RoundChangePayloadValidator) ValidateAndRecover(signed payload.SignedData[payload.RoundChange]) (common.Address, error) {
	author, err := authorOf(signed, v.validators, v.recoverer)
	if err != nil {
		return author, err
	}
	target := signed.Payload.Round
	if target.Height != v.chainHeight {
		return author, newError(RoundMismatch, nil, "round change for height=%v, expected height=%v", target.Height, v.chainHeight)
	}
	if metadata := signed.Payload.Prepared; metadata != nil && metadata.PreparedRound >= target.Round {
		return author, newError(RoundMismatch, nil, "prepared round=%v is not before target round=%v", metadata.PreparedRound, target.Round)
	}
	return author, nil
}

// ChainHeight returns the height of the validator.
func (v *RoundChangePayloadValidator) ChainHeight() uint64 {
	return v.chainHeight
}
