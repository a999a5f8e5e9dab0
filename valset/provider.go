package valset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

// A Provider returns the validator set that is active at a height. The set
// can only change at height boundaries. Providers must be safe for concurrent
// use.
type Provider interface {
	ValidatorsAt(height uint64) (Set, error)
}

type static struct {
	set Set
}

// Static returns a Provider that returns the same Set at every height.
func Static(set Set) Provider {
	return static{set: set}
}

func (provider static) ValidatorsAt(uint64) (Set, error) {
	return provider.set, nil
}

// A Change is published by a Registry when a new validator set is scheduled.
type Change struct {
	Height uint64
	Set    Set
}

// A Registry is a Provider whose validator set can be changed from a height
// onwards. Changes can only be scheduled for heights that have not already
// been served, so every height observes exactly one set.
type Registry struct {
	mu       *sync.RWMutex
	heights  []uint64
	sets     map[uint64]Set
	served   uint64
	anyServe bool
	feed     event.Feed
}

// NewRegistry returns a Registry that uses the genesis Set from height zero.
func NewRegistry(genesis Set) *Registry {
	return &Registry{
		mu:      new(sync.RWMutex),
		heights: []uint64{0},
		sets:    map[uint64]Set{0: genesis},
	}
}

// ValidatorsAt implements the Provider interface.
func (registry *Registry) ValidatorsAt(height uint64) (Set, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if !registry.anyServe || height > registry.served {
		registry.served = height
		registry.anyServe = true
	}

	// Find the last change at or before the height. There is always a change
	// at height zero.
	i := sort.Search(len(registry.heights), func(i int) bool {
		return registry.heights[i] > height
	})
	return registry.sets[registry.heights[i-1]], nil
}

// ScheduleChange makes the Set active from the given height onwards. It
// returns an error if the height has already been served.
func (registry *Registry) ScheduleChange(height uint64, set Set) error {
	if set.Size() == 0 {
		return ErrEmpty
	}
	registry.mu.Lock()
	if registry.anyServe && height <= registry.served {
		registry.mu.Unlock()
		return fmt.Errorf("scheduling change at height=%v: height=%v has already been served", height, registry.served)
	}
	if _, ok := registry.sets[height]; !ok {
		registry.heights = append(registry.heights, height)
		sort.Slice(registry.heights, func(i, j int) bool {
			return registry.heights[i] < registry.heights[j]
		})
	}
	registry.sets[height] = set
	registry.mu.Unlock()

	registry.feed.Send(Change{Height: height, Set: set})
	return nil
}

// Subscribe to changes. The subscription must be unsubscribed when it is no
// longer needed. Sends on the channel are blocking, so the channel should be
// buffered or drained.
func (registry *Registry) Subscribe(ch chan<- Change) event.Subscription {
	return registry.feed.Subscribe(ch)
}
