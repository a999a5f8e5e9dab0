// Package valset defines immutable snapshots of the validator set, the quorum
// policy derived from them, and providers that return the snapshot that
// applies at a height.
package valset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrEmpty is returned when constructing a Set with no validators.
	ErrEmpty = errors.New("empty validator set")
	// ErrDuplicate is returned when constructing a Set where the same
	// validator appears more than once.
	ErrDuplicate = errors.New("duplicate validator")
)

// A Set is an ordered, duplicate-free snapshot of validator addresses. The
// order is the order used by proposer schedules. Sets are immutable and safe
// to share.
type Set struct {
	addrs   []common.Address
	indices map[common.Address]int
}

// New returns a Set containing the given addresses, in order.
func New(addrs []common.Address) (Set, error) {
	if len(addrs) == 0 {
		return Set{}, ErrEmpty
	}
	set := Set{
		addrs:   make([]common.Address, len(addrs)),
		indices: make(map[common.Address]int, len(addrs)),
	}
	for i, addr := range addrs {
		if _, ok := set.indices[addr]; ok {
			return Set{}, fmt.Errorf("%w: %v", ErrDuplicate, addr.Hex())
		}
		set.addrs[i] = addr
		set.indices[addr] = i
	}
	return set, nil
}

// MustNew is like New, but panics on error. It is intended for tests and
// static configuration.
func MustNew(addrs []common.Address) Set {
	set, err := New(addrs)
	if err != nil {
		panic(fmt.Errorf("invariant violation: %v", err))
	}
	return set
}

// Size returns the number of validators.
func (set Set) Size() int {
	return len(set.addrs)
}

// Contains returns true if the address is a member of the Set.
func (set Set) Contains(addr common.Address) bool {
	_, ok := set.indices[addr]
	return ok
}

// IndexOf returns the position of the address in the Set, and false if it is
// not a member.
func (set Set) IndexOf(addr common.Address) (int, bool) {
	i, ok := set.indices[addr]
	return i, ok
}

// At returns the address at the given position. It panics when the position
// is out of range.
func (set Set) At(i int) common.Address {
	return set.addrs[i]
}

// Addresses returns a copy of the addresses in the Set.
func (set Set) Addresses() []common.Address {
	addrs := make([]common.Address, len(set.addrs))
	copy(addrs, set.addrs)
	return addrs
}

// QuorumCount returns the number of distinct validators needed to form a
// quorum in this Set.
func (set Set) QuorumCount() int {
	return QuorumCount(len(set.addrs))
}

// Equal returns true if both Sets contain the same addresses in the same
// order.
func (set Set) Equal(other Set) bool {
	if len(set.addrs) != len(other.addrs) {
		return false
	}
	for i := range set.addrs {
		if set.addrs[i] != other.addrs[i] {
			return false
		}
	}
	return true
}

// String implements the `fmt.Stringer` interface for the Set type.
func (set Set) String() string {
	hexes := make([]string, len(set.addrs))
	for i, addr := range set.addrs {
		hexes[i] = addr.Hex()
	}
	return fmt.Sprintf("Set(%v)", strings.Join(hexes, ","))
}
