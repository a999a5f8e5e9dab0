// Package round defines the Identifier used to tag every consensus message
// with the height and round at which it was produced. Identifiers are totally
// ordered, first by height and then by round, and are the equality key that
// every message in a round must match.
package round

import (
	"fmt"

	"github.com/renproject/surge"
)

// An Identifier is a (height, round) pair. Identifiers are immutable values.
type Identifier struct {
	Height uint64 `json:"height"`
	Round  uint32 `json:"round"`
}

// New returns the Identifier for the given height and round.
func New(height uint64, round uint32) Identifier {
	return Identifier{Height: height, Round: round}
}

// Compare returns -1 if id orders before other, 1 if it orders after other,
// and 0 if they are equal.
func (id Identifier) Compare(other Identifier) int {
	switch {
	case id.Height < other.Height:
		return -1
	case id.Height > other.Height:
		return 1
	case id.Round < other.Round:
		return -1
	case id.Round > other.Round:
		return 1
	default:
		return 0
	}
}

// Less returns true if id orders strictly before other.
func (id Identifier) Less(other Identifier) bool {
	return id.Compare(other) < 0
}

// Equal returns true if both the height and round are the same.
func (id Identifier) Equal(other Identifier) bool {
	return id.Height == other.Height && id.Round == other.Round
}

// Next returns the Identifier for the following round at the same height.
func (id Identifier) Next() Identifier {
	return Identifier{Height: id.Height, Round: id.Round + 1}
}

// WithRound returns the Identifier at the same height with the given round.
func (id Identifier) WithRound(round uint32) Identifier {
	return Identifier{Height: id.Height, Round: round}
}

// String implements the `fmt.Stringer` interface.
func (id Identifier) String() string {
	return fmt.Sprintf("Identifier(Height=%v,Round=%v)", id.Height, id.Round)
}

// SizeHint implements the `surge.SizeHinter` interface.
func (id Identifier) SizeHint() int {
	return surge.SizeHint(id.Height) +
		surge.SizeHint(id.Round)
}

// Marshal implements the `surge.Marshaler` interface.
func (id Identifier) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.Marshal(id.Height, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling height=%v: %v", id.Height, err)
	}
	buf, rem, err = surge.Marshal(id.Round, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling round=%v: %v", id.Round, err)
	}
	return buf, rem, nil
}

// Unmarshal implements the `surge.Unmarshaler` interface.
func (id *Identifier) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.Unmarshal(&id.Height, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling height: %v", err)
	}
	buf, rem, err = surge.Unmarshal(&id.Round, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling round: %v", err)
	}
	return buf, rem, nil
}
