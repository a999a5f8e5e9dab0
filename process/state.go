package process

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/round"
	"github.com/renproject/surge"
)

// The State of a Process at its current height.
type State struct {
	Round round.Identifier
	Step  Step
	// Target is the latest round requested by the Process after its rounds
	// expired. It is never lower than the current round.
	Target uint32
	// Proposal is the proposal accepted in the current round, if any.
	Proposal *message.Proposal
	// Certificate is the prepared certificate with the highest prepared round
	// that the Process has seen at its height, if any.
	Certificate *message.BlockWithCertificate
}

// Snapshot returns a binary friendly summary of the State.
func (state State) Snapshot() Snapshot {
	snapshot := Snapshot{
		Round:  state.Round,
		Step:   state.Step,
		Target: state.Target,
	}
	if state.Proposal != nil {
		snapshot.ProposalDigest = state.Proposal.Digest()
	}
	if state.Certificate != nil {
		snapshot.PreparedRound = state.Certificate.Metadata.PreparedRound
		snapshot.PreparedBlockHash = state.Certificate.Metadata.PreparedBlockHash
	}
	return snapshot
}

// A Snapshot summarises the State of a Process for crash diagnostics. Zero
// hashes mean that there is no accepted proposal, or no prepared certificate.
type Snapshot struct {
	Round             round.Identifier
	Step              Step
	Target            uint32
	ProposalDigest    common.Hash
	PreparedRound     uint32
	PreparedBlockHash common.Hash
}

// Equal compares one Snapshot with another.
func (snapshot Snapshot) Equal(other Snapshot) bool {
	return snapshot == other
}

// String implements the `fmt.Stringer` interface.
func (snapshot Snapshot) String() string {
	return fmt.Sprintf("Snapshot(Round=%v,Step=%v,Target=%v,ProposalDigest=%v,PreparedRound=%v,PreparedBlockHash=%v)",
		snapshot.Round, snapshot.Step, snapshot.Target, snapshot.ProposalDigest.Hex(), snapshot.PreparedRound, snapshot.PreparedBlockHash.Hex())
}

// SizeHint implements the `surge.SizeHinter` interface.
func (snapshot Snapshot) SizeHint() int {
	return surge.SizeHint(snapshot.Round) +
		surge.SizeHint(snapshot.Step) +
		surge.SizeHint(snapshot.Target) +
		surge.SizeHint(snapshot.ProposalDigest[:]) +
		surge.SizeHint(snapshot.PreparedRound) +
		surge.SizeHint(snapshot.PreparedBlockHash[:])
}

// Marshal implements the `surge.Marshaler` interface.
func (snapshot Snapshot) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := snapshot.Round.Marshal(buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling round=%v: %v", snapshot.Round, err)
	}
	buf, rem, err = snapshot.Step.Marshal(buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling step=%v: %v", snapshot.Step, err)
	}
	buf, rem, err = surge.Marshal(snapshot.Target, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling target=%v: %v", snapshot.Target, err)
	}
	buf, rem, err = surge.Marshal(snapshot.ProposalDigest[:], buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling proposal digest=%v: %v", snapshot.ProposalDigest.Hex(), err)
	}
	buf, rem, err = surge.Marshal(snapshot.PreparedRound, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling prepared round=%v: %v", snapshot.PreparedRound, err)
	}
	buf, rem, err = surge.Marshal(snapshot.PreparedBlockHash[:], buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling prepared block hash=%v: %v", snapshot.PreparedBlockHash.Hex(), err)
	}
	return buf, rem, nil
}

// Unmarshal implements the `surge.Unmarshaler` interface.
func (snapshot *Snapshot) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := snapshot.Round.Unmarshal(buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling round: %v", err)
	}
	buf, rem, err = snapshot.Step.Unmarshal(buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling step: %v", err)
	}
	buf, rem, err = surge.Unmarshal(&snapshot.Target, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling target: %v", err)
	}
	buf, rem, err = unmarshalHash(&snapshot.ProposalDigest, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling proposal digest: %v", err)
	}
	buf, rem, err = surge.Unmarshal(&snapshot.PreparedRound, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling prepared round: %v", err)
	}
	buf, rem, err = unmarshalHash(&snapshot.PreparedBlockHash, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling prepared block hash: %v", err)
	}
	return buf, rem, nil
}

func unmarshalHash(hash *common.Hash, buf []byte, rem int) ([]byte, int, error) {
	var raw []byte
	buf, rem, err := surge.Unmarshal(&raw, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if len(raw) != common.HashLength {
		return buf, rem, fmt.Errorf("expected %v bytes, got %v bytes", common.HashLength, len(raw))
	}
	copy(hash[:], raw)
	return buf, rem, nil
}
