package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	ValidatorsKey  = "validators"
	HeightsKey     = "heights"
	TimeoutKey     = "timeout"
	SilentKey      = "silent"
	VerboseKey     = "verbose"
	MetricsAddrKey = "metrics-addr"
	BatchSizeKey   = "batch-size"
	TxIntervalKey  = "tx-interval"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.Int(ValidatorsKey, 4, "Number of validators in the network")
	flags.Uint64(HeightsKey, 5, "Number of heights that every validator must finalize")
	flags.Duration(TimeoutKey, time.Second, "Timeout of the first round at every height")
	flags.IntSlice(SilentKey, nil, "Indices of validators whose proposals are never delivered")
	flags.Bool(VerboseKey, false, "Log every message that is sent")
	flags.String(MetricsAddrKey, "", "Address to serve Prometheus metrics on, disabled when empty")
	flags.Int(BatchSizeKey, 16, "Maximum number of transactions in a block")
	flags.Duration(TxIntervalKey, 10*time.Millisecond, "Interval between transactions submitted to the network")
}

type Config struct {
	Validators  int
	Heights     uint64
	Timeout     time.Duration
	Silent      []int
	Verbose     bool
	MetricsAddr string
	BatchSize   int
	TxInterval  time.Duration
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	validators, err := flags.GetInt(ValidatorsKey)
	if err != nil {
		return nil, err
	}
	if validators < 1 {
		return nil, fmt.Errorf("--%s must be positive, got %v", ValidatorsKey, validators)
	}

	heights, err := flags.GetUint64(HeightsKey)
	if err != nil {
		return nil, err
	}

	timeout, err := flags.GetDuration(TimeoutKey)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("--%s must be positive, got %v", TimeoutKey, timeout)
	}

	silent, err := flags.GetIntSlice(SilentKey)
	if err != nil {
		return nil, err
	}
	for _, i := range silent {
		if i < 0 || i >= validators {
			return nil, fmt.Errorf("--%s index %v is not a validator", SilentKey, i)
		}
	}

	verbose, err := flags.GetBool(VerboseKey)
	if err != nil {
		return nil, err
	}

	metricsAddr, err := flags.GetString(MetricsAddrKey)
	if err != nil {
		return nil, err
	}

	batchSize, err := flags.GetInt(BatchSizeKey)
	if err != nil {
		return nil, err
	}
	if batchSize < 0 {
		return nil, fmt.Errorf("--%s must not be negative, got %v", BatchSizeKey, batchSize)
	}

	txInterval, err := flags.GetDuration(TxIntervalKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		Validators:  validators,
		Heights:     heights,
		Timeout:     timeout,
		Silent:      silent,
		Verbose:     verbose,
		MetricsAddr: metricsAddr,
		BatchSize:   batchSize,
		TxInterval:  txInterval,
	}, nil
}
