package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
)

// SignedData pairs a payload with the signature of its author. The author is
// not stored: it is recovered from the signature, and whether it belongs to
// the validator set is for validators to decide.
type SignedData[P Payload] struct {
	Payload   P
	Signature sig.Signature
}

// Sign a payload.
func Sign[P Payload](p P, signer sig.Signer) (SignedData[P], error) {
	signature, err := signer.Sign(Hash(p))
	if err != nil {
		return SignedData[P]{}, fmt.Errorf("signing %v payload: %w", p.Kind(), err)
	}
	return SignedData[P]{Payload: p, Signature: signature}, nil
}

// Hash returns the hash covered by the signature.
func (signed SignedData[P]) Hash() common.Hash {
	return Hash(signed.Payload)
}

// RoundIdentifier returns the round claimed by the payload.
func (signed SignedData[P]) RoundIdentifier() round.Identifier {
	return signed.Payload.RoundIdentifier()
}

// Author recovers the address that signed the payload.
func (signed SignedData[P]) Author(recoverer sig.Recoverer) (common.Address, error) {
	return recoverer.Recover(signed.Hash(), signed.Signature)
}
