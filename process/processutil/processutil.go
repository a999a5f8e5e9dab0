// Package processutil provides mocks and random values for testing the round
// manager.
package processutil

import (
	"math/rand"
	"sync"

	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/process"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/testutil"
	"github.com/renproject/qbft/validation"
	"github.com/renproject/qbft/valset"

	"go.uber.org/zap"
)

// TimerCallbacks implements the process.Timer interface using optional
// callbacks.
type TimerCallbacks struct {
	StartRoundCallback func(round.Identifier)
	CancelCallback     func()
}

// StartRound calls the StartRoundCallback, if any.
func (timer TimerCallbacks) StartRound(id round.Identifier) {
	if timer.StartRoundCallback == nil {
		return
	}
	timer.StartRoundCallback(id)
}

// Cancel calls the CancelCallback, if any.
func (timer TimerCallbacks) Cancel() {
	if timer.CancelCallback == nil {
		return
	}
	timer.CancelCallback()
}

// MockTimer implements the process.Timer interface by recording every started
// round. Rounds never expire on their own.
type MockTimer struct {
	mu        *sync.Mutex
	started   []round.Identifier
	cancelled int
}

// NewMockTimer returns a MockTimer that has not started any round.
func NewMockTimer() *MockTimer {
	return &MockTimer{mu: new(sync.Mutex)}
}

// StartRound records the round.
func (timer *MockTimer) StartRound(id round.Identifier) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.started = append(timer.started, id)
}

// Cancel records the cancellation.
func (timer *MockTimer) Cancel() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.cancelled++
}

// Started returns every started round, in order.
func (timer *MockTimer) Started() []round.Identifier {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return append([]round.Identifier{}, timer.started...)
}

// Latest returns the latest started round.
func (timer *MockTimer) Latest() (round.Identifier, bool) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if len(timer.started) == 0 {
		return round.Identifier{}, false
	}
	return timer.started[len(timer.started)-1], true
}

// Cancelled returns how many times the timer was cancelled.
func (timer *MockTimer) Cancelled() int {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.cancelled
}

// CatcherCallback implements the process.Catcher interface using an optional
// callback.
type CatcherCallback struct {
	Callback func(conflicting, msg message.Message)
}

// DidReceiveMessageConflict calls the Callback, if any.
func (catcher CatcherCallback) DidReceiveMessageConflict(conflicting, msg message.Message) {
	if catcher.Callback == nil {
		return
	}
	catcher.Callback(conflicting, msg)
}

// NewFactory returns a validation Factory for a static validator set, with a
// round-robin proposer schedule, that logs nothing.
func NewFactory(validators valset.Set, blockValidator block.Validator) *validation.Factory {
	return validation.NewFactory(
		validation.DefaultOptions().WithLogger(zap.NewNop()),
		valset.Static(validators),
		schedule.RoundRobin(),
		block.FixedSchedule(blockValidator),
		nil,
	)
}

// NewProcess returns a Process for a static validator set that accepts every
// block, together with its MockTimer.
func NewProcess(validators valset.Set, catcher process.Catcher) (*process.Process, *MockTimer) {
	timer := NewMockTimer()
	opts := process.DefaultOptions().WithLogger(zap.NewNop())
	return process.New(opts, NewFactory(validators, testutil.AcceptAll()), timer, catcher), timer
}

// RandomStep returns a random Step, including unknown Steps.
func RandomStep(r *rand.Rand) process.Step {
	switch r.Int() % 10 {
	case 0:
		return process.StepNil
	case 1:
		return process.StepPreparing
	case 2:
		return process.StepRoundChanging
	case 3:
		return process.StepFinalized
	default:
		return process.Step(r.Intn(256))
	}
}

// RandomSnapshot returns a random Snapshot.
func RandomSnapshot(r *rand.Rand) process.Snapshot {
	snapshot := process.Snapshot{
		Round:  round.New(r.Uint64(), r.Uint32()),
		Step:   RandomStep(r),
		Target: r.Uint32(),
	}
	if r.Int()%2 == 0 {
		snapshot.ProposalDigest = testutil.RandomHash()
	}
	if r.Int()%2 == 0 {
		snapshot.PreparedRound = r.Uint32()
		snapshot.PreparedBlockHash = testutil.RandomHash()
	}
	return snapshot
}
