// Package sig defines the recoverable secp256k1 signatures used to
// authenticate consensus payloads, and the interfaces used to produce them and
// to recover the address of their author.
package sig

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the number of bytes in a Signature.
const SignatureLength = crypto.SignatureLength

// ErrInvalidSignature is returned when no author can be recovered from a
// Signature.
var ErrInvalidSignature = errors.New("invalid signature")

// Signature defines the ECDSA signature of a Hash. Encoded as R, S, V.
type Signature [SignatureLength]byte

// Equal compares one Signature with another.
func (signature Signature) Equal(other Signature) bool {
	return signature == other
}

// String implements the `fmt.Stringer` interface for the Signature type.
func (signature Signature) String() string {
	return hex.EncodeToString(signature[:])
}

// A Signer signs hashes on behalf of one validator address.
type Signer interface {
	Address() common.Address
	Sign(hash common.Hash) (Signature, error)
}

// A Recoverer recovers the address of the author of a Signature. Recovery must
// be deterministic.
type Recoverer interface {
	Recover(hash common.Hash, signature Signature) (common.Address, error)
}

type recoverer struct{}

// NewRecoverer returns a Recoverer that performs public key recovery on every
// call.
func NewRecoverer() Recoverer {
	return recoverer{}
}

func (recoverer) Recover(hash common.Hash, signature Signature) (common.Address, error) {
	return Recover(hash, signature)
}

// Recover the address that produced the Signature over the Hash. Signatures
// with a malleable (upper half) S value are rejected.
func Recover(hash common.Hash, signature Signature) (common.Address, error) {
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:64])
	v := signature[64]
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, fmt.Errorf("%w: bad signature values", ErrInvalidSignature)
	}
	pubKey, err := crypto.SigToPub(hash[:], signature[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
