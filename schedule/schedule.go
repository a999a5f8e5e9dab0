// Package schedule defines interfaces and implementations for scheduling
// validators as block proposers. At any given height and round, exactly one
// validator is expected to take responsibility for proposing a block, and
// this is determined by the Scheduler.
//
// It is important that all validators agree on the schedule. That is, at any
// given height and round, all validators must arrive at the same decision
// regarding which validator is expected to be the proposer. This is done by
// making the schedule deterministic and locally computable from the validator
// set snapshot that is active at the height.
package schedule

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/valset"
)

// A Scheduler is used to determine which validator is expected to propose a
// block at any given height and round. Schedulers are expected to be safe for
// concurrent use.
type Scheduler interface {
	// Proposer returns the address that is expected to propose a block at the
	// given round identifier. If the validator set is empty, it returns the
	// zero address.
	//
	//  proposer := scheduler.Proposer(proposal.RoundIdentifier(), validators)
	//  Expect(author).To(Equal(proposer))
	//
	Proposer(id round.Identifier, validators valset.Set) common.Address
}

type roundRobin struct{}

// RoundRobin returns a Scheduler that uses a round-robin scheduling algorithm
// to select a proposer. Round-robin scheduling has the advantage of being very
// easy to implement and understand, but has the disadvantage of being unfair.
// As such, it should be avoided when the proposer is expected to receive a
// larger block reward than non-proposers.
func RoundRobin() Scheduler {
	return roundRobin{}
}

// Proposer is selected using the sum of the height and round, modulo the
// number of validators.
func (roundRobin) Proposer(id round.Identifier, validators valset.Set) common.Address {
	n := uint64(validators.Size())
	if n == 0 {
		return common.Address{}
	}
	return validators.At(int((id.Height + uint64(id.Round)) % n))
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(id round.Identifier, validators valset.Set) common.Address

// Proposer implements the Scheduler interface.
func (f SchedulerFunc) Proposer(id round.Identifier, validators valset.Set) common.Address {
	return f(id, validators)
}
