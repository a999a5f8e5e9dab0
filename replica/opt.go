package replica

import (
	"github.com/renproject/qbft/metrics"
	"github.com/renproject/qbft/mq"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/timer"

	"go.uber.org/zap"
)

// DefaultMaxHeightsAhead is how many heights ahead of its current height a
// Replica buffers messages by default.
const DefaultMaxHeightsAhead = 16

// Options represent the options for a QBFT Replica
type Options struct {
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
	MessageQueueOpts mq.Options
	TimerOpts        timer.Options
	// RecovererCacheSize bounds the number of recovered signature authors
	// that are cached.
	RecovererCacheSize int
}

// DefaultOptions returns the default options for a QBFT Replica
func DefaultOptions() Options {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return Options{
		Logger:             logger,
		MessageQueueOpts:   mq.DefaultOptions().WithLogger(logger).WithMaxHeightsAhead(DefaultMaxHeightsAhead),
		TimerOpts:          timer.DefaultOptions(),
		RecovererCacheSize: sig.DefaultCacheSize,
	}
}

// WithLogger updates the logger used in the Replica with the provided logger
func (opts Options) WithLogger(logger *zap.Logger) Options {
	opts.Logger = logger
	opts.MessageQueueOpts = opts.MessageQueueOpts.WithLogger(logger)
	return opts
}

// WithMetrics updates the metrics recorded by the Replica
func (opts Options) WithMetrics(m *metrics.Metrics) Options {
	opts.Metrics = m
	return opts
}

// WithMqOptions updates the Replica's message queue options
func (opts Options) WithMqOptions(mqOpts mq.Options) Options {
	opts.MessageQueueOpts = mqOpts
	return opts
}

// WithTimerOptions updates the Replica's round timer options
func (opts Options) WithTimerOptions(timerOpts timer.Options) Options {
	opts.TimerOpts = timerOpts
	return opts
}

// WithRecovererCacheSize updates the number of recovered authors cached by
// the Replica
func (opts Options) WithRecovererCacheSize(size int) Options {
	opts.RecovererCacheSize = size
	return opts
}
