package timer

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout is the timeout of round zero
	DefaultTimeout = 20 * time.Second

	// DefaultTimeoutScaling is the fraction of DefaultTimeout added for every
	// round after round zero
	DefaultTimeoutScaling = 0.5
)

// Options represent the options for a Linear Timer. Round r expires after
// Timeout + Timeout*r*TimeoutScaling, bounded by MaxTimeout when it is
// positive.
type Options struct {
	Logger         logrus.FieldLogger
	Timeout        time.Duration
	TimeoutScaling float64
	MaxTimeout     time.Duration
}

// DefaultOptions returns the default options for a Linear Timer
func DefaultOptions() Options {
	return Options{
		Logger:         timerLogger(logrus.New()),
		Timeout:        DefaultTimeout,
		TimeoutScaling: DefaultTimeoutScaling,
	}
}

// RoundTimeout returns how long round r lasts before it expires.
func (opts Options) RoundTimeout(r uint32) time.Duration {
	duration := opts.Timeout + time.Duration(float64(opts.Timeout)*float64(r)*opts.TimeoutScaling)
	if opts.MaxTimeout > 0 && duration > opts.MaxTimeout {
		return opts.MaxTimeout
	}
	return duration
}

// WithLogger replaces the logger of the Linear Timer
func (opts Options) WithLogger(logger logrus.FieldLogger) Options {
	opts.Logger = logger
	return opts
}

// WithLogLevel updates the log level of the Linear Timer's logger, keeping
// its output
func (opts Options) WithLogLevel(level logrus.Level) Options {
	logger := opts.baseLogger()
	logger.SetLevel(level)
	opts.Logger = timerLogger(logger)
	return opts
}

// WithLogOutput updates where the Linear Timer's logger will log data to,
// keeping its level
func (opts Options) WithLogOutput(output io.Writer) Options {
	logger := opts.baseLogger()
	logger.SetOutput(output)
	opts.Logger = timerLogger(logger)
	return opts
}

// WithTimeout updates the timeout of round zero
func (opts Options) WithTimeout(timeout time.Duration) Options {
	opts.Timeout = timeout
	return opts
}

// WithTimeoutScaling updates the timeout scaling factor of the Linear Timer
func (opts Options) WithTimeoutScaling(timeoutScaling float64) Options {
	opts.TimeoutScaling = timeoutScaling
	return opts
}

// WithMaxTimeout bounds the timeout of late rounds
func (opts Options) WithMaxTimeout(maxTimeout time.Duration) Options {
	opts.MaxTimeout = maxTimeout
	return opts
}

// baseLogger returns a new logger with the level and output of the current
// one, so that options copied from each other never share a logger.
func (opts Options) baseLogger() *logrus.Logger {
	logger := logrus.New()
	if entry, ok := opts.Logger.(*logrus.Entry); ok && entry.Logger != nil {
		logger.SetLevel(entry.Logger.GetLevel())
		logger.SetOutput(entry.Logger.Out)
		logger.SetFormatter(entry.Logger.Formatter)
	}
	return logger
}

func timerLogger(logger *logrus.Logger) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"lib": "qbft",
		"pkg": "timer",
		"com": "timer",
	})
}
