package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// validateCertificate checks that the prepares are a quorum of valid prepares
// from distinct validators, for the given round and block hash. Duplicates
// are checked before the count, so that a certificate padded with copies of
// the same prepare is reported as such.
func validateCertificate(validators valset.Set, id round.Identifier, digest common.Hash, prepares []payload.SignedData[payload.Prepare], recoverer sig.Recoverer) error {
	prepareValidator := NewPrepareValidator(validators, id, digest, recoverer)

	if HasDuplicateAuthors(recoverableAuthors(prepares, recoverer)) {
		return newError(DuplicateAuthor, nil, "prepares for %v contain duplicate authors", id)
	}
	quorum := validators.QuorumCount()
	if !HasSufficientEntries(len(prepares), quorum) {
		return newError(InsufficientPrepares, nil, "%v prepares for %v, expected at least %v", len(prepares), id, quorum)
	}
	for i, prepare := range prepares {
		if err := prepareValidator.Validate(prepare); err != nil {
			return newError(InvalidPrepare, err, "prepare %v of %v", i, len(prepares))
		}
	}
	return nil
}
