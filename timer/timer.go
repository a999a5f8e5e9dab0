// Package timer schedules the expiry of consensus rounds.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/renproject/qbft/round"

	"github.com/renproject/surge"
)

// Timeout represents an event emitted by the Linear Timer whenever
// a scheduled round expires
type Timeout struct {
	Height uint64
	Round  uint32
}

// RoundIdentifier returns the round that expired.
func (timeout Timeout) RoundIdentifier() round.Identifier {
	return round.New(timeout.Height, timeout.Round)
}

// SizeHint implements surge SizeHinter for Timeout
func (timeout Timeout) SizeHint() int {
	return surge.SizeHint(timeout.Height) +
		surge.SizeHint(timeout.Round)
}

// Marshal implements surge Marshaler for Timeout
func (timeout Timeout) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.Marshal(timeout.Height, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling Height=%v: %v", timeout.Height, err)
	}
	buf, rem, err = surge.Marshal(timeout.Round, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling Round=%v: %v", timeout.Round, err)
	}

	return buf, rem, nil
}

// Unmarshal implements surge Unmarshaler for Timeout
func (timeout *Timeout) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.Unmarshal(&timeout.Height, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling Height: %v", err)
	}
	buf, rem, err = surge.Unmarshal(&timeout.Round, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling Round: %v", err)
	}

	return buf, rem, nil
}

// LinearTimer defines a timer that expires consensus rounds. At most one
// round is pending at any time: starting a round cancels the previous one.
// The timeout scales linearly with the consensus round.
type LinearTimer struct {
	opts          Options
	handleTimeout func(Timeout)

	mu         sync.Mutex
	generation uint64
	pending    *time.Timer
}

// NewLinearTimer constructs a new Linear Timer from the input options and the
// callback that handles expired rounds. The callback is called from its own
// goroutine.
func NewLinearTimer(opts Options, handleTimeout func(Timeout)) *LinearTimer {
	return &LinearTimer{
		opts:          opts,
		handleTimeout: handleTimeout,
	}
}

// StartRound schedules the expiry of the given round with a timeout period
// appropriately calculated for the consensus round.
func (t *LinearTimer) StartRound(id round.Identifier) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stop()
	if t.handleTimeout == nil {
		return
	}

	generation := t.generation
	timeout := Timeout{Height: id.Height, Round: id.Round}
	duration := t.Duration(id.Round)
	t.opts.Logger.Debugf("scheduling timeout for %v in %v", id, duration)
	t.pending = time.AfterFunc(duration, func() {
		t.mu.Lock()
		if t.generation != generation {
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.mu.Unlock()

		t.opts.Logger.Debugf("round expired at %v", id)
		t.handleTimeout(timeout)
	})
}

// Cancel the pending round expiry, if any. A cancelled round never reaches
// the callback, even when its timer has already fired.
func (t *LinearTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stop()
}

// Duration returns how long the given round lasts before it expires.
func (t *LinearTimer) Duration(r uint32) time.Duration {
	return t.opts.RoundTimeout(r)
}

func (t *LinearTimer) stop() {
	t.generation++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
