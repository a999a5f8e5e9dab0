package validation

import (
	"errors"
	"fmt"
)

// Kind classifies why a message was rejected.
type Kind uint8

// Enumerate all rejection kinds.
const (
	KindNil Kind = iota
	InvalidSignature
	UnknownSigner
	RoundMismatch
	InconsistentRoundChange
	BlockInvalid
	MissingPreparedMetadata
	HashMismatch
	DuplicateAuthor
	InsufficientPrepares
	InvalidPayload
	InvalidPrepare
	InvalidCommitSeal
	UnexpectedProposer
	InvalidJustification
)

// String implements the `fmt.Stringer` interface for the Kind type.
func (kind Kind) String() string {
	switch kind {
	case InvalidSignature:
		return "InvalidSignature"
	case UnknownSigner:
		return "UnknownSigner"
	case RoundMismatch:
		return "RoundMismatch"
	case InconsistentRoundChange:
		return "InconsistentRoundChange"
	case BlockInvalid:
		return "BlockInvalid"
	case MissingPreparedMetadata:
		return "MissingPreparedMetadata"
	case HashMismatch:
		return "HashMismatch"
	case DuplicateAuthor:
		return "DuplicateAuthor"
	case InsufficientPrepares:
		return "InsufficientPrepares"
	case InvalidPayload:
		return "InvalidPayload"
	case InvalidPrepare:
		return "InvalidPrepare"
	case InvalidCommitSeal:
		return "InvalidCommitSeal"
	case UnexpectedProposer:
		return "UnexpectedProposer"
	case InvalidJustification:
		return "InvalidJustification"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(kind))
	}
}

// Error implements the error interface, so that a Kind can be used as the
// target of `errors.Is`.
//
//  if errors.Is(err, validation.DuplicateAuthor) {
//      ...
//  }
//
func (kind Kind) Error() string {
	return kind.String()
}

// An Error is returned when a message is rejected. Cause is set when the
// rejection was caused by a nested rejection (for example, one invalid
// prepare inside a round change).
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (err *Error) Error() string {
	if err.Cause != nil {
		return fmt.Sprintf("%v: %v: %v", err.Kind, err.Reason, err.Cause)
	}
	return fmt.Sprintf("%v: %v", err.Kind, err.Reason)
}

// Unwrap returns the cause.
func (err *Error) Unwrap() error {
	return err.Cause
}

// Is returns true when the target is the Kind of this Error.
func (err *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == err.Kind
}

// KindOf returns the Kind of the outermost Error in the chain, and false if
// there is none.
func KindOf(err error) (Kind, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return KindNil, false
}
