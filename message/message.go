// Package message defines the consensus messages exchanged by validators.
// Every message wraps a signed payload and may piggyback the data needed to
// justify it. Messages are immutable once constructed and are assumed to have
// been decoded by the transport before they reach this module.
package message

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
)

// Messages defines a wrapper type around the []Message type.
type Messages []Message

// A Message is one of Proposal, Prepare, Commit or RoundChange. The set of
// messages is closed.
type Message interface {
	fmt.Stringer

	Kind() payload.Kind
	RoundIdentifier() round.Identifier
	PayloadHash() common.Hash
	Signature() sig.Signature
	Author(recoverer sig.Recoverer) (common.Address, error)

	isMessage()
}

// A Proposal proposes a block for a round. Proposals for rounds after the
// first must be justified by a quorum of round changes for the round and, if
// any of them carries prepared metadata, by the prepares that certify the
// block that was prepared in the highest round.
type Proposal struct {
	SignedPayload payload.SignedData[payload.Proposal]
	Block         block.Block
	RoundChanges  []payload.SignedData[payload.RoundChange]
	Prepares      []payload.SignedData[payload.Prepare]
}

// NewProposal signs a Proposal for the block.
func NewProposal(id round.Identifier, b block.Block, roundChanges []payload.SignedData[payload.RoundChange], prepares []payload.SignedData[payload.Prepare], signer sig.Signer) (*Proposal, error) {
	signed, err := payload.Sign(payload.Proposal{Round: id, Digest: b.Hash()}, signer)
	if err != nil {
		return nil, err
	}
	return &Proposal{
		SignedPayload: signed,
		Block:         b,
		RoundChanges:  roundChanges,
		Prepares:      prepares,
	}, nil
}

// Kind implements the Message interface.
func (*Proposal) Kind() payload.Kind { return payload.KindProposal }

// RoundIdentifier implements the Message interface.
func (m *Proposal) RoundIdentifier() round.Identifier { return m.SignedPayload.RoundIdentifier() }

// PayloadHash implements the Message interface.
func (m *Proposal) PayloadHash() common.Hash { return m.SignedPayload.Hash() }

// Signature implements the Message interface.
func (m *Proposal) Signature() sig.Signature { return m.SignedPayload.Signature }

// Author implements the Message interface.
func (m *Proposal) Author(recoverer sig.Recoverer) (common.Address, error) {
	return m.SignedPayload.Author(recoverer)
}

// Digest returns the hash of the proposed block that was signed.
func (m *Proposal) Digest() common.Hash { return m.SignedPayload.Payload.Digest }

// String implements the `fmt.Stringer` interface for the Proposal type.
func (m *Proposal) String() string {
	return fmt.Sprintf("Proposal(%v,Digest=%v,RoundChanges=%v,Prepares=%v)", m.RoundIdentifier(), m.Digest().Hex(), len(m.RoundChanges), len(m.Prepares))
}

func (*Proposal) isMessage() {}

// A Prepare is a vote for the proposed block.
type Prepare struct {
	SignedPayload payload.SignedData[payload.Prepare]
}

// NewPrepare signs a Prepare for the digest.
func NewPrepare(id round.Identifier, digest common.Hash, signer sig.Signer) (*Prepare, error) {
	signed, err := payload.Sign(payload.Prepare{Round: id, Digest: digest}, signer)
	if err != nil {
		return nil, err
	}
	return &Prepare{SignedPayload: signed}, nil
}

// Kind implements the Message interface.
func (*Prepare) Kind() payload.Kind { return payload.KindPrepare }

// RoundIdentifier implements the Message interface.
func (m *Prepare) RoundIdentifier() round.Identifier { return m.SignedPayload.RoundIdentifier() }

// PayloadHash implements the Message interface.
func (m *Prepare) PayloadHash() common.Hash { return m.SignedPayload.Hash() }

// Signature implements the Message interface.
func (m *Prepare) Signature() sig.Signature { return m.SignedPayload.Signature }

// Author implements the Message interface.
func (m *Prepare) Author(recoverer sig.Recoverer) (common.Address, error) {
	return m.SignedPayload.Author(recoverer)
}

// Digest returns the hash of the block being prepared.
func (m *Prepare) Digest() common.Hash { return m.SignedPayload.Payload.Digest }

// String implements the `fmt.Stringer` interface for the Prepare type.
func (m *Prepare) String() string {
	return fmt.Sprintf("Prepare(%v,Digest=%v)", m.RoundIdentifier(), m.Digest().Hex())
}

func (*Prepare) isMessage() {}

// A Commit is a vote to finalise the proposed block. It carries a commit
// seal: the author's signature over the block hash.
type Commit struct {
	SignedPayload payload.SignedData[payload.Commit]
}

// NewCommit signs a Commit for the digest, sealing the digest with the same
// signer.
func NewCommit(id round.Identifier, digest common.Hash, signer sig.Signer) (*Commit, error) {
	seal, err := signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sealing digest=%v: %w", digest.Hex(), err)
	}
	signed, err := payload.Sign(payload.Commit{Round: id, Digest: digest, CommitSeal: seal}, signer)
	if err != nil {
		return nil, err
	}
	return &Commit{SignedPayload: signed}, nil
}

// Kind implements the Message interface.
func (*Commit) Kind() payload.Kind { return payload.KindCommit }

// RoundIdentifier implements the Message interface.
func (m *Commit) RoundIdentifier() round.Identifier { return m.SignedPayload.RoundIdentifier() }

// PayloadHash implements the Message interface.
func (m *Commit) PayloadHash() common.Hash { return m.SignedPayload.Hash() }

// Signature implements the Message interface.
func (m *Commit) Signature() sig.Signature { return m.SignedPayload.Signature }

// Author implements the Message interface.
func (m *Commit) Author(recoverer sig.Recoverer) (common.Address, error) {
	return m.SignedPayload.Author(recoverer)
}

// Digest returns the hash of the block being committed.
func (m *Commit) Digest() common.Hash { return m.SignedPayload.Payload.Digest }

// CommitSeal returns the author's signature over the block hash.
func (m *Commit) CommitSeal() sig.Signature { return m.SignedPayload.Payload.CommitSeal }

// String implements the `fmt.Stringer` interface for the Commit type.
func (m *Commit) String() string {
	return fmt.Sprintf("Commit(%v,Digest=%v)", m.RoundIdentifier(), m.Digest().Hex())
}

func (*Commit) isMessage() {}

// A RoundChange is a vote to move to the round in its payload. When the
// author has prepared a block at this height, the message piggybacks the
// block and the prepares that certify it.
type RoundChange struct {
	SignedPayload payload.SignedData[payload.RoundChange]
	ProposedBlock block.Block
	Prepares      []payload.SignedData[payload.Prepare]
}

// NewRoundChange signs a RoundChange for the target round. The certificate
// is nil when nothing has been prepared.
func NewRoundChange(target round.Identifier, certificate *BlockWithCertificate, signer sig.Signer) (*RoundChange, error) {
	p := payload.RoundChange{Round: target}
	rc := &RoundChange{}
	if certificate != nil {
		metadata := certificate.Metadata
		p.Prepared = &metadata
		rc.ProposedBlock = certificate.Block
		rc.Prepares = certificate.Prepares
	}
	signed, err := payload.Sign(p, signer)
	if err != nil {
		return nil, err
	}
	rc.SignedPayload = signed
	return rc, nil
}

// Kind implements the Message interface.
func (*RoundChange) Kind() payload.Kind { return payload.KindRoundChange }

// RoundIdentifier implements the Message interface.
func (m *RoundChange) RoundIdentifier() round.Identifier { return m.SignedPayload.RoundIdentifier() }

// PayloadHash implements the Message interface.
func (m *RoundChange) PayloadHash() common.Hash { return m.SignedPayload.Hash() }

// Signature implements the Message interface.
func (m *RoundChange) Signature() sig.Signature { return m.SignedPayload.Signature }

// Author implements the Message interface.
func (m *RoundChange) Author(recoverer sig.Recoverer) (common.Address, error) {
	return m.SignedPayload.Author(recoverer)
}

// PreparedMetadata returns the prepared metadata in the signed payload, or
// nil.
func (m *RoundChange) PreparedMetadata() *payload.PreparedRoundMetadata {
	return m.SignedPayload.Payload.Prepared
}

// String implements the `fmt.Stringer` interface for the RoundChange type.
func (m *RoundChange) String() string {
	prepared := "<nil>"
	if metadata := m.PreparedMetadata(); metadata != nil {
		prepared = metadata.String()
	}
	return fmt.Sprintf("RoundChange(%v,Prepared=%v,Block=%v,Prepares=%v)", m.RoundIdentifier(), prepared, m.ProposedBlock != nil, len(m.Prepares))
}

func (*RoundChange) isMessage() {}
