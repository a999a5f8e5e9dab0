package process

import (
	"fmt"

	"github.com/renproject/surge"
)

// Step of a Process within its current round.
type Step uint8

// Define all Steps.
const (
	// StepNil is the Step of a Process that has not started a height.
	StepNil Step = iota
	// StepPreparing is the Step of a Process that is waiting for a proposal,
	// and for prepares and commits for the proposed block.
	StepPreparing
	// StepRoundChanging is the Step of a Process whose round has expired, and
	// that is waiting for a quorum of round changes.
	StepRoundChanging
	// StepFinalized is the terminal Step of a height.
	StepFinalized
)

// String implements the `fmt.Stringer` interface.
func (step Step) String() string {
	switch step {
	case StepNil:
		return "Nil"
	case StepPreparing:
		return "Preparing"
	case StepRoundChanging:
		return "RoundChanging"
	case StepFinalized:
		return "Finalized"
	default:
		return fmt.Sprintf("Step(%d)", uint8(step))
	}
}

// SizeHint of how many bytes will be needed to represent steps in
// binary.
func (Step) SizeHint() int {
	return 1
}

// Marshal this step into binary.
func (step Step) Marshal(buf []byte, rem int) ([]byte, int, error) {
	return surge.Marshal(uint8(step), buf, rem)
}

// Unmarshal into this step from binary.
func (step *Step) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	return surge.Unmarshal((*uint8)(step), buf, rem)
}
