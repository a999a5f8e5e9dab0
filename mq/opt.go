package mq

import "go.uber.org/zap"

// DefaultMaxCapacity is the number of messages buffered for each sender by
// default.
const DefaultMaxCapacity = 1000

// Options define the Message Queue options
type Options struct {
	Logger *zap.Logger
	// MaxCapacity bounds the number of messages buffered for each sender.
	// Messages for the highest rounds are dropped first.
	MaxCapacity int
	// MaxHeightsAhead bounds how far above the lowest kept height a message
	// can be before it is refused. Zero means unbounded.
	MaxHeightsAhead uint64
}

// DefaultOptions returns the default options as used by the Message Queue
func DefaultOptions() Options {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return Options{
		Logger:      logger,
		MaxCapacity: DefaultMaxCapacity,
	}
}

// WithLogger updates the logger used to report dropped messages
func (opts Options) WithLogger(logger *zap.Logger) Options {
	opts.Logger = logger
	return opts
}

// WithMaxCapacity updates the maximum capacity of the queue of each sender
func (opts Options) WithMaxCapacity(capacity int) Options {
	opts.MaxCapacity = capacity
	return opts
}

// WithMaxHeightsAhead updates how many heights ahead of the current one are
// buffered
func (opts Options) WithMaxHeightsAhead(heights uint64) Options {
	opts.MaxHeightsAhead = heights
	return opts
}
