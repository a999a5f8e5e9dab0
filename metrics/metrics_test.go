package metrics_test

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/renproject/qbft/metrics"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metrics", func() {
	Context("when observing messages", func() {
		It("should count messages by kind and reason", func() {
			m := metrics.New("test", prometheus.NewRegistry())
			m.ObserveReceived("Prepare")
			m.ObserveReceived("Prepare")
			m.ObserveAccepted("Prepare")
			m.ObserveRejected("Prepare", "HashMismatch")
			m.ObserveQueued()

			Expect(testutil.ToFloat64(m.MessagesReceived.WithLabelValues("Prepare"))).To(Equal(2.0))
			Expect(testutil.ToFloat64(m.MessagesAccepted.WithLabelValues("Prepare"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.MessagesRejected.WithLabelValues("Prepare", "HashMismatch"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.MessagesQueued)).To(Equal(1.0))
		})
	})

	Context("when observing rounds", func() {
		It("should track the current height and round", func() {
			m := metrics.New("test", prometheus.NewRegistry())
			m.ObserveHeight(10)
			m.ObserveRoundChange(3)
			m.ObserveRoundExpired()
			m.ObserveFinalised()
			m.ObserveAnomaly("ConflictingCertificates")

			Expect(testutil.ToFloat64(m.CurrentHeight)).To(Equal(10.0))
			Expect(testutil.ToFloat64(m.CurrentRound)).To(Equal(3.0))
			Expect(testutil.ToFloat64(m.RoundChanges)).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.RoundsExpired)).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.BlocksFinalised)).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.Anomalies.WithLabelValues("ConflictingCertificates"))).To(Equal(1.0))

			m.ObserveHeight(11)
			Expect(testutil.ToFloat64(m.CurrentRound)).To(Equal(0.0))
		})
	})

	Context("when registering", func() {
		It("should register every collector", func() {
			reg := prometheus.NewRegistry()
			m := metrics.New("", reg)
			m.ObserveBlockValidation(time.Millisecond)
			m.ObserveReceived("Commit")
			m.ObserveAccepted("Commit")
			m.ObserveRejected("Commit", "InvalidCommitSeal")
			m.ObserveAnomaly("Equivocation")

			families, err := reg.Gather()
			Expect(err).ToNot(HaveOccurred())
			names := map[string]bool{}
			for _, family := range families {
				names[family.GetName()] = true
			}
			Expect(names).To(HaveKey("qbft_block_validation_latency_seconds"))
			Expect(names).To(HaveKey("qbft_messages_received_total"))
			Expect(names).To(HaveKey("qbft_height"))
		})

		It("should fail to register twice with the same registry", func() {
			reg := prometheus.NewRegistry()
			metrics.New("twice", reg)
			Expect(func() { metrics.New("twice", reg) }).To(Panic())
		})
	})

	Context("when the metrics are nil", func() {
		It("should not panic", func() {
			var m *metrics.Metrics
			Expect(func() {
				m.ObserveReceived("Prepare")
				m.ObserveAccepted("Prepare")
				m.ObserveRejected("Prepare", "HashMismatch")
				m.ObserveQueued()
				m.ObserveRoundChange(1)
				m.ObserveRoundExpired()
				m.ObserveFinalised()
				m.ObserveAnomaly("Equivocation")
				m.ObserveHeight(1)
				m.ObserveBlockValidation(time.Second)
			}).ToNot(Panic())
		})
	})
})
