// Package metrics provides Prometheus metrics for the consensus engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is used when no namespace is given.
const DefaultNamespace = "qbft"

// Metrics holds all Prometheus metrics for the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Message metrics
	MessagesReceived *prometheus.CounterVec
	MessagesAccepted *prometheus.CounterVec
	MessagesRejected *prometheus.CounterVec
	MessagesQueued   prometheus.Counter

	// Round metrics
	RoundChanges    prometheus.Counter
	RoundsExpired   prometheus.Counter
	BlocksFinalised prometheus.Counter
	Anomalies       *prometheus.CounterVec
	CurrentHeight   prometheus.Gauge
	CurrentRound    prometheus.Gauge

	// Block metrics
	BlockValidationLatency prometheus.Histogram
}

// New creates metrics with the given namespace and registers them with the
// given registerer. A nil registerer creates metrics that are not registered
// anywhere.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)
	return &Metrics{
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of consensus messages received",
		}, []string{"kind"}),
		MessagesAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_accepted_total",
			Help:      "Total number of consensus messages that passed validation",
		}, []string{"kind"}),
		MessagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Total number of consensus messages that failed validation",
		}, []string{"kind", "reason"}),
		MessagesQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_queued_total",
			Help:      "Total number of messages buffered for a future height",
		}),

		RoundChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_changes_total",
			Help:      "Total number of rounds advanced by a round change quorum",
		}),
		RoundsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_expired_total",
			Help:      "Total number of local round timeouts",
		}),
		BlocksFinalised: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_finalised_total",
			Help:      "Total number of heights finalised",
		}),
		Anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Total number of safety anomalies observed",
		}, []string{"kind"}),
		CurrentHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "height",
			Help:      "Current consensus height",
		}),
		CurrentRound: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round",
			Help:      "Current consensus round",
		}),

		BlockValidationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_validation_latency_seconds",
			Help:      "Block validation latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
}

// ObserveReceived records a received message of the given kind.
func (m *Metrics) ObserveReceived(kind string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(kind).Inc()
}

// ObserveAccepted records a message of the given kind that passed validation.
func (m *Metrics) ObserveAccepted(kind string) {
	if m == nil {
		return
	}
	m.MessagesAccepted.WithLabelValues(kind).Inc()
}

// ObserveRejected records a message of the given kind that failed validation
// for the given reason.
func (m *Metrics) ObserveRejected(kind, reason string) {
	if m == nil {
		return
	}
	m.MessagesRejected.WithLabelValues(kind, reason).Inc()
}

// ObserveQueued records a message buffered for a future height.
func (m *Metrics) ObserveQueued() {
	if m == nil {
		return
	}
	m.MessagesQueued.Inc()
}

// ObserveRoundChange records the round advancing to the given round.
func (m *Metrics) ObserveRoundChange(round uint32) {
	if m == nil {
		return
	}
	m.RoundChanges.Inc()
	m.CurrentRound.Set(float64(round))
}

// ObserveRoundExpired records a local round timeout.
func (m *Metrics) ObserveRoundExpired() {
	if m == nil {
		return
	}
	m.RoundsExpired.Inc()
}

// ObserveFinalised records a finalised height.
func (m *Metrics) ObserveFinalised() {
	if m == nil {
		return
	}
	m.BlocksFinalised.Inc()
}

// ObserveAnomaly records a safety anomaly of the given kind.
func (m *Metrics) ObserveAnomaly(kind string) {
	if m == nil {
		return
	}
	m.Anomalies.WithLabelValues(kind).Inc()
}

// ObserveHeight records the start of a height.
func (m *Metrics) ObserveHeight(height uint64) {
	if m == nil {
		return
	}
	m.CurrentHeight.Set(float64(height))
	m.CurrentRound.Set(0)
}

// ObserveBlockValidation records how long a block validation took.
func (m *Metrics) ObserveBlockValidation(d time.Duration) {
	if m == nil {
		return
	}
	m.BlockValidationLatency.Observe(d.Seconds())
}
