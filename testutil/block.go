package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/renproject/qbft/block"
)

// RandomBlock returns a random block at the given number that passes the
// block.StructuralValidator.
func RandomBlock(number uint64) *block.Standard {
	return block.New(block.Header{
		ParentHash: RandomHash(),
		Number:     number,
		Timestamp:  uint64(time.Now().Unix()),
		Proposer:   RandomAddress(),
		TxRoot:     RandomHash(),
	}, RandomHash().Bytes())
}

// A MockBlockValidator returns the same result for every block, and counts
// how many times it was called.
type MockBlockValidator struct {
	mu     *sync.Mutex
	result block.Result
	calls  int
	delay  time.Duration
}

// AcceptAll returns a MockBlockValidator that accepts every block.
func AcceptAll() *MockBlockValidator {
	return &MockBlockValidator{mu: new(sync.Mutex), result: block.Valid()}
}

// RejectAll returns a MockBlockValidator that rejects every block with the
// given reason.
func RejectAll(reason string) *MockBlockValidator {
	return &MockBlockValidator{mu: new(sync.Mutex), result: block.Invalid("%v", reason)}
}

// WithDelay makes the MockBlockValidator wait before returning, or until the
// context is done.
func (v *MockBlockValidator) WithDelay(delay time.Duration) *MockBlockValidator {
	v.delay = delay
	return v
}

// ValidateBlock implements the block.Validator interface.
func (v *MockBlockValidator) ValidateBlock(ctx context.Context, b block.Block) block.Result {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()

	if v.delay > 0 {
		select {
		case <-time.After(v.delay):
		case <-ctx.Done():
			return block.Invalid("cancelled: %v", ctx.Err())
		}
	}
	return v.result
}

// Calls returns the number of blocks validated.
func (v *MockBlockValidator) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
