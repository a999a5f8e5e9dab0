package block

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// A Result is the outcome of validating a block. Reason is empty when the
// block is valid.
type Result struct {
	Success bool
	Reason  string
}

// Valid returns a successful Result.
func Valid() Result {
	return Result{Success: true}
}

// Invalid returns an unsuccessful Result with a formatted reason.
func Invalid(format string, args ...interface{}) Result {
	return Result{Success: false, Reason: fmt.Sprintf(format, args...)}
}

// A Validator decides whether a proposed block is acceptable. Implementations
// must be deterministic: every honest node must reach the same decision for
// the same block. Validation can be expensive, so implementations should
// return early when the context is done. The caller treats a done context as
// a cancellation, not as a rejection.
type Validator interface {
	ValidateBlock(ctx context.Context, b Block) Result
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc func(ctx context.Context, b Block) Result

// ValidateBlock implements the Validator interface.
func (f ValidatorFunc) ValidateBlock(ctx context.Context, b Block) Result {
	return f(ctx, b)
}

// A Schedule returns the Validator that applies at a height. Validation rules
// can change at height boundaries (for example, at a hard fork).
type Schedule interface {
	BlockValidator(height uint64) Validator
}

type fixedSchedule struct {
	validator Validator
}

// FixedSchedule returns a Schedule that uses the same Validator at every
// height.
func FixedSchedule(validator Validator) Schedule {
	return fixedSchedule{validator: validator}
}

func (schedule fixedSchedule) BlockValidator(uint64) Validator {
	return schedule.validator
}

// Default limits used by the StructuralValidator.
const (
	DefaultMaxExtraBytes = 32
	DefaultMaxDrift      = 15 * time.Second
)

// A StructuralValidator checks the parts of a Standard block that do not
// depend on application state. When a Chain is given, the block must also
// extend its head.
type StructuralValidator struct {
	MaxExtraBytes int
	MaxDrift      time.Duration
	Now           func() time.Time
	Chain         *Chain
}

// NewStructuralValidator returns a StructuralValidator with default limits
// that does not check ancestry.
func NewStructuralValidator() StructuralValidator {
	return StructuralValidator{
		MaxExtraBytes: DefaultMaxExtraBytes,
		MaxDrift:      DefaultMaxDrift,
		Now:           time.Now,
	}
}

// WithChain returns a copy of the validator that requires blocks to extend
// the head of the given Chain.
func (v StructuralValidator) WithChain(chain *Chain) StructuralValidator {
	v.Chain = chain
	return v
}

// ValidateBlock implements the Validator interface.
func (v StructuralValidator) ValidateBlock(ctx context.Context, b Block) Result {
	if err := ctx.Err(); err != nil {
		return Invalid("validation cancelled: %v", err)
	}
	standard, ok := b.(*Standard)
	if !ok {
		return Invalid("unexpected block type %T", b)
	}
	header := standard.Header()
	if header.Number == 0 {
		return Invalid("block number must be positive")
	}
	if header.Proposer == (common.Address{}) {
		return Invalid("block has no proposer")
	}
	if v.MaxExtraBytes > 0 && len(header.Extra) > v.MaxExtraBytes {
		return Invalid("extra data has %v bytes, expected at most %v", len(header.Extra), v.MaxExtraBytes)
	}
	if v.Now != nil {
		limit := v.Now().Add(v.MaxDrift)
		if time.Unix(int64(header.Timestamp), 0).After(limit) {
			return Invalid("timestamp=%v is in the future", header.Timestamp)
		}
	}
	if v.Chain != nil {
		head := v.Chain.Head()
		if header.Number != head.Number()+1 {
			return Invalid("block number=%v does not extend head number=%v", header.Number, head.Number())
		}
		if header.ParentHash != head.Hash() {
			return Invalid("parent hash=%v does not match head hash=%v", header.ParentHash.Hex(), head.Hash().Hex())
		}
		if parent, ok := head.(*Standard); ok && header.Timestamp < parent.Header().Timestamp {
			return Invalid("timestamp=%v is before parent timestamp=%v", header.Timestamp, parent.Header().Timestamp)
		}
	}
	return Valid()
}
