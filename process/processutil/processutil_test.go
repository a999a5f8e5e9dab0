package processutil_test

import (
	"math/rand"
	"time"

	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/process"
	"github.com/renproject/qbft/process/processutil"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Process utilities", func() {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	Context("when generating random snapshots", func() {
		It("should not generate the same snapshot multiple times", func() {
			snapshots := make([]process.Snapshot, 100)
			for i := range snapshots {
				snapshots[i] = processutil.RandomSnapshot(r)
			}
			all := true
			for i := range snapshots {
				if !snapshots[0].Equal(snapshots[i]) {
					all = false
					break
				}
			}
			Expect(all).To(BeFalse())
		})
	})

	Context("when using callbacks", func() {
		It("should do nothing without callbacks", func() {
			Expect(func() {
				processutil.TimerCallbacks{}.StartRound(testutil.RandomIdentifier())
				processutil.TimerCallbacks{}.Cancel()
				processutil.CatcherCallback{}.DidReceiveMessageConflict(nil, nil)
			}).ToNot(Panic())
		})

		It("should forward to the callbacks", func() {
			var started round.Identifier
			cancelled := false
			timer := processutil.TimerCallbacks{
				StartRoundCallback: func(id round.Identifier) { started = id },
				CancelCallback:     func() { cancelled = true },
			}
			id := testutil.RandomIdentifier()
			timer.StartRound(id)
			timer.Cancel()
			Expect(started).To(Equal(id))
			Expect(cancelled).To(BeTrue())

			var conflicts []message.Message
			catcher := processutil.CatcherCallback{Callback: func(conflicting, msg message.Message) {
				conflicts = append(conflicts, conflicting, msg)
			}}
			validators := testutil.NewValidators(1)
			prepare := testutil.Prepare(validators.Signers[0], id, testutil.RandomHash())
			catcher.DidReceiveMessageConflict(prepare, prepare)
			Expect(conflicts).To(HaveLen(2))
		})
	})

	Context("when using a mock timer", func() {
		It("should record started rounds and cancellations", func() {
			timer := processutil.NewMockTimer()
			_, ok := timer.Latest()
			Expect(ok).To(BeFalse())

			id := testutil.RandomIdentifier()
			timer.StartRound(id)
			timer.StartRound(id.Next())
			timer.Cancel()

			Expect(timer.Started()).To(Equal([]round.Identifier{id, id.Next()}))
			latest, ok := timer.Latest()
			Expect(ok).To(BeTrue())
			Expect(latest).To(Equal(id.Next()))
			Expect(timer.Cancelled()).To(Equal(1))
		})
	})
})
