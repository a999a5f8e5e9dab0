package timer_test

import (
	"io"
	"math/rand"
	"reflect"
	"testing/quick"
	"time"

	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/testutil"
	"github.com/renproject/qbft/timer"
	"github.com/renproject/surge/surgeutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timer", func() {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	newTimer := func(timeout time.Duration, scaling float64) (*timer.LinearTimer, chan timer.Timeout) {
		opts := timer.DefaultOptions().
			WithLogOutput(io.Discard).
			WithTimeout(timeout).
			WithTimeoutScaling(scaling)
		timeouts := make(chan timer.Timeout, 10)
		return timer.NewLinearTimer(opts, func(timeout timer.Timeout) {
			timeouts <- timeout
		}), timeouts
	}

	Context("marshaling and unmarshaling", func() {
		t := reflect.TypeOf(timer.Timeout{})

		It("should be the same after marshalling and unmarshalling", func() {
			loop := func() bool {
				Expect(surgeutil.MarshalUnmarshalCheck(t)).To(Succeed())
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		It("should not panic when fuzzing", func() {
			loop := func() bool {
				Expect(func() { surgeutil.Fuzz(t) }).ToNot(Panic())
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		Context("marshalling", func() {
			It("should return an error when the buffer is too small", func() {
				loop := func() bool {
					Expect(surgeutil.MarshalBufTooSmall(t)).To(Succeed())
					return true
				}
				Expect(quick.Check(loop, nil)).To(Succeed())
			})

			It("should return an error when the memory quota is too small", func() {
				loop := func() bool {
					Expect(surgeutil.MarshalRemTooSmall(t)).To(Succeed())
					return true
				}
				Expect(quick.Check(loop, nil)).To(Succeed())
			})
		})

		Context("unmarshalling", func() {
			It("should return an error when the buffer is too small", func() {
				loop := func() bool {
					Expect(surgeutil.UnmarshalBufTooSmall(t)).To(Succeed())
					return true
				}
				Expect(quick.Check(loop, nil)).To(Succeed())
			})

			It("should return an error when the memory quota is too small", func() {
				loop := func() bool {
					Expect(surgeutil.UnmarshalRemTooSmall(t)).To(Succeed())
					return true
				}
				Expect(quick.Check(loop, nil)).To(Succeed())
			})
		})
	})

	Context("computing durations", func() {
		It("should scale linearly with the round", func() {
			loop := func() bool {
				timeout := time.Duration(1+r.Intn(100)) * time.Second
				linearTimer, _ := newTimer(timeout, 0.5)
				rnd := uint32(r.Intn(1000))
				Expect(linearTimer.Duration(rnd)).To(Equal(timeout + time.Duration(float64(timeout)*float64(rnd)*0.5)))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		It("should be constant without a scaling factor", func() {
			linearTimer, _ := newTimer(time.Second, 0)
			Expect(linearTimer.Duration(0)).To(Equal(time.Second))
			Expect(linearTimer.Duration(1000)).To(Equal(time.Second))
		})

		It("should extend odd rounds by a fraction of the timeout", func() {
			linearTimer, _ := newTimer(2*time.Second, 0.5)
			Expect(linearTimer.Duration(1)).To(Equal(3 * time.Second))
			Expect(linearTimer.Duration(3)).To(Equal(5 * time.Second))
		})

		It("should never exceed the max timeout", func() {
			opts := timer.DefaultOptions().
				WithLogOutput(io.Discard).
				WithTimeout(time.Second).
				WithTimeoutScaling(1).
				WithMaxTimeout(5 * time.Second)
			linearTimer := timer.NewLinearTimer(opts, nil)
			Expect(linearTimer.Duration(2)).To(Equal(3 * time.Second))
			Expect(linearTimer.Duration(4)).To(Equal(5 * time.Second))
			Expect(linearTimer.Duration(100)).To(Equal(5 * time.Second))
		})
	})

	Context("when starting a round", func() {
		It("should expire the round after its timeout", func() {
			loop := func() bool {
				// 5 millisecond <= timeout <= 20 millisecond
				timeout := time.Duration(5+r.Intn(16)) * time.Millisecond
				linearTimer, timeouts := newTimer(timeout, 0)
				id := round.New(testutil.RandomHeight(), testutil.RandomRound())

				start := time.Now()
				linearTimer.StartRound(id)

				var expired timer.Timeout
				Eventually(timeouts, time.Second).Should(Receive(&expired))
				Expect(time.Since(start)).To(BeNumerically(">=", timeout))
				Expect(expired.RoundIdentifier()).To(Equal(id))
				Consistently(timeouts, 3*timeout).ShouldNot(Receive())
				return true
			}
			Expect(quick.Check(loop, &quick.Config{MaxCount: 10})).To(Succeed())
		})

		It("should replace the previously started round", func() {
			linearTimer, timeouts := newTimer(20*time.Millisecond, 0)
			id := testutil.RandomIdentifier()

			linearTimer.StartRound(id)
			linearTimer.StartRound(id.Next())

			var expired timer.Timeout
			Eventually(timeouts, time.Second).Should(Receive(&expired))
			Expect(expired.RoundIdentifier()).To(Equal(id.Next()))
			Consistently(timeouts, 100*time.Millisecond).ShouldNot(Receive())
		})

		It("should do nothing without a callback", func() {
			opts := timer.DefaultOptions().WithLogOutput(io.Discard).WithTimeout(time.Millisecond)
			linearTimer := timer.NewLinearTimer(opts, nil)
			Expect(func() {
				linearTimer.StartRound(testutil.RandomIdentifier())
				time.Sleep(10 * time.Millisecond)
			}).ToNot(Panic())
		})
	})

	Context("when cancelling a round", func() {
		It("should never expire the round", func() {
			linearTimer, timeouts := newTimer(20*time.Millisecond, 0)
			linearTimer.StartRound(testutil.RandomIdentifier())
			linearTimer.Cancel()
			Consistently(timeouts, 100*time.Millisecond).ShouldNot(Receive())

			// cancelling twice is fine
			linearTimer.Cancel()
		})
	})
})
