package schedule_test

import (
	"math/rand"
	"testing/quick"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/valset"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Round-robin scheduler", func() {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	randomSet := func() valset.Set {
		addrs := make([]common.Address, 1+r.Intn(20))
		for i := range addrs {
			r.Read(addrs[i][:])
		}
		return valset.MustNew(addrs)
	}

	Context("when scheduling `n` times", func() {
		Context("when only incrementing the height", func() {
			It("should schedule each validator `n` times", func() {
				f := func(n uint8) bool {
					// Clamp n to be less than 100.
					k := int(n) % 100

					validators := randomSet()
					scheduler := schedule.RoundRobin()

					// Call the Proposer method n times for each validator,
					// incrementing the height by exactly 1 each time.
					counts := map[common.Address]int{}
					for i := 0; i < k*validators.Size(); i++ {
						proposer := scheduler.Proposer(round.New(uint64(i), 0), validators)
						counts[proposer]++
					}

					// Expect each validator to have been returned n times.
					for _, addr := range validators.Addresses() {
						Expect(counts[addr]).To(Equal(k))
					}
					return true
				}
				Expect(quick.Check(f, nil)).To(Succeed())
			})
		})

		Context("when only incrementing the round", func() {
			It("should schedule each validator `n` times", func() {
				f := func(height uint64, n uint8) bool {
					k := int(n) % 100

					validators := randomSet()
					scheduler := schedule.RoundRobin()

					counts := map[common.Address]int{}
					for i := 0; i < k*validators.Size(); i++ {
						proposer := scheduler.Proposer(round.New(height%1000, uint32(i)), validators)
						counts[proposer]++
					}

					for _, addr := range validators.Addresses() {
						Expect(counts[addr]).To(Equal(k))
					}
					return true
				}
				Expect(quick.Check(f, nil)).To(Succeed())
			})
		})
	})

	Context("when scheduling the next round", func() {
		It("should select the next validator", func() {
			loop := func(height uint64, r32 uint16) bool {
				validators := randomSet()
				if validators.Size() < 2 {
					return true
				}
				scheduler := schedule.RoundRobin()
				id := round.New(height%1000, uint32(r32))
				current, _ := validators.IndexOf(scheduler.Proposer(id, validators))
				next, _ := validators.IndexOf(scheduler.Proposer(id.Next(), validators))
				Expect(next).To(Equal((current + 1) % validators.Size()))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})
	})

	Context("when the validator set is empty", func() {
		It("should return the zero address", func() {
			f := func(height uint64, r32 uint32) bool {
				proposer := schedule.RoundRobin().Proposer(round.New(height, r32), valset.Set{})
				Expect(proposer).To(Equal(common.Address{}))
				return true
			}
			Expect(quick.Check(f, nil)).To(Succeed())
		})
	})
})
