package process

import (
	"github.com/renproject/qbft/metrics"
	"github.com/renproject/qbft/mq"

	"go.uber.org/zap"
)

// Options represent the options for a Process
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Queue   mq.Options
}

// DefaultOptions returns the default options for a Process
func DefaultOptions() Options {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return Options{
		Logger: logger,
		Queue:  mq.DefaultOptions().WithLogger(logger),
	}
}

// WithLogger updates the logger used by the Process, and by its message queue
func (opts Options) WithLogger(logger *zap.Logger) Options {
	opts.Logger = logger
	opts.Queue = opts.Queue.WithLogger(logger)
	return opts
}

// WithMetrics updates the metrics used to count round changes, expired rounds
// and finalized heights
func (opts Options) WithMetrics(m *metrics.Metrics) Options {
	opts.Metrics = m
	return opts
}

// WithMaxQueueCapacity updates the maximum number of future messages buffered
// for each author
func (opts Options) WithMaxQueueCapacity(capacity int) Options {
	opts.Queue = opts.Queue.WithMaxCapacity(capacity)
	return opts
}

// WithMaxHeightsAhead updates how many heights ahead of the current height
// future messages are queued
func (opts Options) WithMaxHeightsAhead(heights uint64) Options {
	opts.Queue = opts.Queue.WithMaxHeightsAhead(heights)
	return opts
}
