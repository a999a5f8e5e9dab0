package validation

import (
	"github.com/renproject/qbft/metrics"

	"go.uber.org/zap"
)

// Options represent the options for a validation Factory
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// DefaultOptions returns the default options for a validation Factory
func DefaultOptions() Options {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return Options{
		Logger: logger,
	}
}

// WithLogger updates the logger used to report rejected messages
func (opts Options) WithLogger(logger *zap.Logger) Options {
	opts.Logger = logger
	return opts
}

// WithMetrics updates the metrics used to count validated messages
func (opts Options) WithMetrics(m *metrics.Metrics) Options {
	opts.Metrics = m
	return opts
}
