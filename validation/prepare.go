package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// A PrepareValidator validates prepares for one round and one block hash.
type PrepareValidator struct {
	validators valset.Set
	id         round.Identifier
	digest     common.Hash
	recoverer  sig.Recoverer
}

// NewPrepareValidator returns a PrepareValidator that accepts prepares signed
// by members of the validator set, for the given round and block hash.
func NewPrepareValidator(validators valset.Set, id round.Identifier, digest common.Hash, recoverer sig.Recoverer) *PrepareValidator {
	return &PrepareValidator{
		validators: validators,
		id:         id,
		digest:     digest,
		recoverer:  recoverer,
	}
}

// Validate returns nil if the prepare is valid.
func (v *PrepareValidator) Validate(signed payload.SignedData[payload.Prepare]) error {
	_, err := v.ValidateAndRecover(signed)
	return err
}

// ValidateAndRecover is like Validate, but also returns the author.
func (v *PrepareValidator) ValidateAndRecover(signed payload.SignedData[payload.Prepare]) (common.Address, error) {
	author, err := authorOf(signed, v.validators, v.recoverer)
	if err != nil {
		return author, err
	}
	if err := checkRound(payload.KindPrepare, signed.Payload.Round, v.id); err != nil {
		return author, err
	}
	if signed.Payload.Digest != v.digest {
		return author, newError(HashMismatch, nil, "prepare for digest=%v, expected digest=%v", signed.Payload.Digest.Hex(), v.digest.Hex())
	}
	return author, nil
}
