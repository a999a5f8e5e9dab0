package message

import (
	"errors"

	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/payload"
)

var (
	// ErrMetadataWithoutBlock is returned when a round change carries
	// prepared metadata but no block.
	ErrMetadataWithoutBlock = errors.New("prepared metadata without block")
	// ErrBlockWithoutMetadata is returned when a round change carries a block
	// but no prepared metadata.
	ErrBlockWithoutMetadata = errors.New("block without prepared metadata")
)

// A Justification is what a round change carries to justify the block that
// should be proposed in the target round. It is either NoBlock or a
// BlockWithCertificate.
type Justification interface {
	isJustification()
}

// NoBlock is the Justification of an author that has not prepared any block
// at the height.
type NoBlock struct{}

func (NoBlock) isJustification() {}

// A BlockWithCertificate is the Justification of an author that has prepared
// a block: the block, the round in which it was prepared, and the quorum of
// prepares that certify it.
type BlockWithCertificate struct {
	Block    block.Block
	Metadata payload.PreparedRoundMetadata
	Prepares []payload.SignedData[payload.Prepare]
}

func (*BlockWithCertificate) isJustification() {}

// Justification returns the variant carried by the round change. It returns
// an error when exactly one of the block and the prepared metadata is
// present. It does not validate the certificate.
func (m *RoundChange) Justification() (Justification, error) {
	metadata := m.PreparedMetadata()
	switch {
	case m.ProposedBlock == nil && metadata == nil:
		return NoBlock{}, nil
	case m.ProposedBlock == nil:
		return nil, ErrMetadataWithoutBlock
	case metadata == nil:
		return nil, ErrBlockWithoutMetadata
	default:
		return &BlockWithCertificate{
			Block:    m.ProposedBlock,
			Metadata: *metadata,
			Prepares: m.Prepares,
		}, nil
	}
}
