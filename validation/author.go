package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/valset"
)

// authorOf recovers the author of a signed payload and checks that it is a
// member of the validator set.
func authorOf[P payload.Payload](signed payload.SignedData[P], validators valset.Set, recoverer sig.Recoverer) (common.Address, error) {
	author, err := signed.Author(recoverer)
	if err != nil {
		return common.Address{}, newError(InvalidSignature, err, "cannot recover author of %v", signed.Payload.Kind())
	}
	if !validators.Contains(author) {
		return author, newError(UnknownSigner, nil, "%v author=%v is not a validator", signed.Payload.Kind(), author.Hex())
	}
	return author, nil
}

func checkRound(kind payload.Kind, got, expected round.Identifier) error {
	if !got.Equal(expected) {
		return newError(RoundMismatch, nil, "%v for %v, expected %v", kind, got, expected)
	}
	return nil
}
