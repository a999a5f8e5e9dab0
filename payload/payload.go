// Package payload defines the signed contents of QBFT consensus messages and
// their canonical encoding. A signature always covers the keccak256 hash of
// the RLP encoding of the payload kind followed by the payload, so that a
// signature over one kind of payload can never be replayed as another kind.
package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
)

// Kind enumerates the different kinds of payload.
type Kind uint8

// Enumerate all valid Kind values.
const (
	KindNil Kind = iota
	KindProposal
	KindPrepare
	KindCommit
	KindRoundChange
)

// String implements the `fmt.Stringer` interface for the Kind type.
func (kind Kind) String() string {
	switch kind {
	case KindProposal:
		return "Proposal"
	case KindPrepare:
		return "Prepare"
	case KindCommit:
		return "Commit"
	case KindRoundChange:
		return "RoundChange"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(kind))
	}
}

// A Payload is the part of a consensus message covered by its signature. The
// set of payloads is closed.
type Payload interface {
	Kind() Kind
	RoundIdentifier() round.Identifier

	isPayload()
}

// A Proposal payload commits the proposer to the hash of the proposed block.
type Proposal struct {
	Round  round.Identifier
	Digest common.Hash
}

// Kind implements the Payload interface.
func (Proposal) Kind() Kind { return KindProposal }

// RoundIdentifier implements the Payload interface.
func (p Proposal) RoundIdentifier() round.Identifier { return p.Round }

func (Proposal) isPayload() {}

// A Prepare payload is a vote for the proposed block at a round.
type Prepare struct {
	Round  round.Identifier
	Digest common.Hash
}

// Kind implements the Payload interface.
func (Prepare) Kind() Kind { return KindPrepare }

// RoundIdentifier implements the Payload interface.
func (p Prepare) RoundIdentifier() round.Identifier { return p.Round }

func (Prepare) isPayload() {}

// A Commit payload is a vote to finalise the proposed block at a round. The
// CommitSeal is the author's signature over the block hash, and ends up in
// the header of the finalised block.
type Commit struct {
	Round      round.Identifier
	Digest     common.Hash
	CommitSeal sig.Signature
}

// Kind implements the Payload interface.
func (Commit) Kind() Kind { return KindCommit }

// RoundIdentifier implements the Payload interface.
func (p Commit) RoundIdentifier() round.Identifier { return p.Round }

func (Commit) isPayload() {}

// PreparedRoundMetadata identifies the round in which the author of a round
// change last observed a quorum of prepares, and the hash of the block that
// was prepared.
type PreparedRoundMetadata struct {
	PreparedRound     uint32
	PreparedBlockHash common.Hash
}

// String implements the `fmt.Stringer` interface.
func (metadata PreparedRoundMetadata) String() string {
	return fmt.Sprintf("PreparedRoundMetadata(Round=%v,Hash=%v)", metadata.PreparedRound, metadata.PreparedBlockHash.Hex())
}

// A RoundChange payload is a vote to move to the target round. Prepared is
// nil when the author has not prepared any block at this height.
type RoundChange struct {
	Round    round.Identifier
	Prepared *PreparedRoundMetadata `rlp:"nil"`
}

// Kind implements the Payload interface.
func (RoundChange) Kind() Kind { return KindRoundChange }

// RoundIdentifier implements the Payload interface.
func (p RoundChange) RoundIdentifier() round.Identifier { return p.Round }

func (RoundChange) isPayload() {}

type envelope struct {
	Kind    Kind
	Payload rlp.RawValue
}

// Encode returns the canonical encoding of a payload.
func Encode(p Payload) ([]byte, error) {
	data, err := rlp.EncodeToBytes(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %v payload: %w", p.Kind(), err)
	}
	return rlp.EncodeToBytes(envelope{Kind: p.Kind(), Payload: data})
}

// Decode a payload from its canonical encoding.
func Decode(data []byte) (Payload, error) {
	env := envelope{}
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	var p Payload
	var err error
	switch env.Kind {
	case KindProposal:
		v := Proposal{}
		err = rlp.DecodeBytes(env.Payload, &v)
		p = v
	case KindPrepare:
		v := Prepare{}
		err = rlp.DecodeBytes(env.Payload, &v)
		p = v
	case KindCommit:
		v := Commit{}
		err = rlp.DecodeBytes(env.Payload, &v)
		p = v
	case KindRoundChange:
		v := RoundChange{}
		err = rlp.DecodeBytes(env.Payload, &v)
		p = v
	default:
		return nil, fmt.Errorf("decoding envelope: unexpected kind %v", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %v payload: %w", env.Kind, err)
	}
	return p, nil
}

// Hash returns the keccak256 hash of the canonical encoding of a payload. It
// is the hash covered by the payload signature.
func Hash(p Payload) common.Hash {
	data, err := Encode(p)
	if err != nil {
		panic(fmt.Errorf("invariant violation: %v", err))
	}
	return crypto.Keccak256Hash(data)
}
