package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// A CommitValidator validates commits for one round and one block hash.
type CommitValidator struct {
	validators valset.Set
	id         round.Identifier
	digest     common.Hash
	recoverer  sig.Recoverer
}

// NewCommitValidator returns a CommitValidator that accepts commits signed by
// members of the validator set, for the given round and block hash.
func NewCommitValidator(validators valset.Set, id round.Identifier, digest common.Hash, recoverer sig.Recoverer) *CommitValidator {
	return &CommitValidator{
		validators: validators,
		id:         id,
		digest:     digest,
		recoverer:  recoverer,
	}
}

// Validate returns nil if the commit is valid.
func (v *CommitValidator) Validate(signed payload.SignedData[payload.Commit]) error {
	_, err := v.ValidateAndRecover(signed)
	return err
}

// ValidateAndRecover is like Validate, but also returns the author. The
// commit seal must be signed by the author of the commit.
func (v *CommitValidator) ValidateAndRecover(signed payload.SignedData[payload.Commit]) (common.Address, error) {
	author, err := authorOf(signed, v.validators, v.recoverer)
	if err != nil {
		return author, err
	}
	if err := checkRound(payload.KindCommit, signed.Payload.Round, v.id); err != nil {
		return author, err
	}
	if signed.Payload.Digest != v.digest {
		return author, newError(HashMismatch, nil, "commit for digest=%v, expected digest=%v", signed.Payload.Digest.Hex(), v.digest.Hex())
	}
	sealer, err := v.recoverer.Recover(v.digest, signed.Payload.CommitSeal)
	if err != nil {
		return author, newError(InvalidCommitSeal, err, "cannot recover commit seal")
	}
	if sealer != author {
		return author, newError(InvalidCommitSeal, nil, "commit seal by %v, expected %v", sealer.Hex(), author.Hex())
	}
	return author, nil
}
