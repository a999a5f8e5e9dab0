package process

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
)

// RoundAdvanced is published when a quorum of round changes moves the Process
// to a later round. The Certificate is the prepared certificate with the
// highest prepared round among the round changes, or nil when none of them
// was prepared. The proposer of the new round must re-propose the block of the
// Certificate, justified by the RoundChanges.
type RoundAdvanced struct {
	Round        round.Identifier
	Certificate  *message.BlockWithCertificate
	RoundChanges []*message.RoundChange
}

// ProposalAccepted is published when a valid proposal for the current round
// has been received.
type ProposalAccepted struct {
	Round    round.Identifier
	Proposal *message.Proposal
}

// Prepared is published when a quorum of prepares for the accepted proposal
// has been received. The Certificate becomes the prepared certificate of the
// Process for its height.
type Prepared struct {
	Round       round.Identifier
	Certificate *message.BlockWithCertificate
}

// RoundExpired is published when the timer of a round expires before the
// height is finalized. The Target is the round that should be requested with
// a round change, and the Certificate (possibly nil) is the latest prepared
// certificate of the Process.
type RoundExpired struct {
	Round       round.Identifier
	Target      round.Identifier
	Certificate *message.BlockWithCertificate
}

// Finalized is published when a quorum of commits for the accepted proposal
// has been received.
type Finalized struct {
	Height uint64
	Round  uint32
	Block  block.Block
	Seals  []sig.Signature
}

// Commit returns the finalized block with its commit seals.
func (finalized Finalized) Commit() block.Commit {
	return block.Commit{
		Block: finalized.Block,
		Round: finalized.Round,
		Seals: finalized.Seals,
	}
}

// AnomalyKind enumerates the safety anomalies detected by a Process.
type AnomalyKind uint8

// Define all AnomalyKinds.
const (
	AnomalyNil AnomalyKind = iota
	// AnomalyEquivocation is an author that sent two different messages of
	// the same kind for the same round.
	AnomalyEquivocation
	// AnomalyConflictingCertificates is a pair of quorum-backed prepared
	// certificates for different blocks in the same round.
	AnomalyConflictingCertificates
)

// String implements the `fmt.Stringer` interface.
func (kind AnomalyKind) String() string {
	switch kind {
	case AnomalyNil:
		return "Nil"
	case AnomalyEquivocation:
		return "Equivocation"
	case AnomalyConflictingCertificates:
		return "ConflictingCertificates"
	default:
		return fmt.Sprintf("AnomalyKind(%d)", uint8(kind))
	}
}

// An Anomaly is published when a Process detects behaviour that can only be
// explained by a bug or by Byzantine validators. Anomalies are never resolved
// by the Process.
type Anomaly struct {
	Kind     AnomalyKind
	Round    round.Identifier
	Author   common.Address
	Messages message.Messages
}

// String implements the `fmt.Stringer` interface.
func (anomaly Anomaly) String() string {
	return fmt.Sprintf("Anomaly(Kind=%v,Round=%v,Author=%v)", anomaly.Kind, anomaly.Round, anomaly.Author.Hex())
}
