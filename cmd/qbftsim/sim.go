package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/metrics"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/process"
	"github.com/renproject/qbft/replica"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/sig/ecdsa"
	"github.com/renproject/qbft/timer"
	"github.com/renproject/qbft/txpool"
	"github.com/renproject/qbft/valset"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"
)

const poolCapacity = 4096

type simulation struct {
	ctx       context.Context
	logger    *zap.Logger
	recoverer sig.Recoverer
	silent    map[common.Address]bool
	nodes     []*replica.Replica
	chains    []*block.Chain
	pools     []txpool.Pool
}

// Run a network of validators until all of them have finalized the
// configured number of heights, or the context is done.
func Run(ctx context.Context, config *Config) error {
	logger, err := newLogger(config.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	signers := make([]sig.Signer, config.Validators)
	addrs := make([]common.Address, config.Validators)
	for i := range signers {
		if signers[i], err = ecdsa.NewRandom(); err != nil {
			return fmt.Errorf("creating validator %v: %w", i, err)
		}
		addrs[i] = signers[i].Address()
	}
	set, err := valset.New(addrs)
	if err != nil {
		return err
	}
	registry := valset.NewRegistry(set)

	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.DefaultNamespace, reg)

	recoverer, err := sig.NewCachingRecoverer(sig.NewRecoverer(), sig.DefaultCacheSize)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sim := &simulation{
		ctx:       ctx,
		logger:    logger,
		recoverer: recoverer,
		silent:    map[common.Address]bool{},
	}
	for _, i := range config.Silent {
		sim.silent[addrs[i]] = true
	}

	opts := replica.DefaultOptions().
		WithLogger(logger).
		WithMetrics(m).
		WithTimerOptions(timer.DefaultOptions().WithTimeout(config.Timeout).WithLogLevel(logrus.WarnLevel))
	for _, signer := range signers {
		addr := signer.Address()
		chain := block.NewChain(block.Genesis())
		pool := txpool.FIFOPool(poolCapacity)
		node, err := replica.New(
			opts,
			signer,
			chain,
			registry,
			schedule.RoundRobin(),
			block.FixedSchedule(block.NewStructuralValidator().WithChain(chain)),
			replica.BlockProposer(addr, txpool.NewBatcher(pool, config.BatchSize)),
			replica.BroadcasterFunc(sim.broadcast),
			nil,
		)
		if err != nil {
			return err
		}
		sim.nodes = append(sim.nodes, node)
		sim.chains = append(sim.chains, chain)
		sim.pools = append(sim.pools, pool)
	}

	for _, node := range sim.nodes {
		if err := node.Start(ctx); err != nil {
			return err
		}
	}
	logger.Info("started network", zap.Int("validators", len(sim.nodes)), zap.Int("silent", len(sim.silent)))

	g, gctx := errgroup.WithContext(ctx)
	for _, node := range sim.nodes {
		node := node
		g.Go(func() error { return node.Run(gctx) })
	}
	if config.TxInterval > 0 {
		g.Go(func() error { return sim.submit(gctx, config.TxInterval) })
	}
	if config.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, config.MetricsAddr, reg) })
	}
	g.Go(func() error {
		defer cancel()
		return sim.wait(gctx, config.Heights)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return sim.report(config.Heights)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return config.Build()
}

func (sim *simulation) broadcast(msg message.Message) {
	if msg.Kind() == payload.KindProposal {
		if author, err := msg.Author(sim.recoverer); err == nil && sim.silent[author] {
			sim.logger.Debug("withheld proposal", zap.Stringer("from", author), zap.Stringer("round", msg.RoundIdentifier()))
			return
		}
	}
	for _, node := range sim.nodes {
		node := node
		go func() {
			err := node.Handle(sim.ctx, msg)
			if err != nil && !errors.Is(err, process.ErrStaleMessage) {
				sim.logger.Debug("message not handled", zap.Stringer("to", node.Address()), zap.Stringer("message", msg), zap.Error(err))
			}
		}()
	}
}

// submit sends a random transaction to a random validator at every interval.
func (sim *simulation) submit(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		tx := make(txpool.Transaction, 32)
		if _, err := rand.Read(tx); err != nil {
			return fmt.Errorf("generating transaction: %w", err)
		}
		i := mrand.Intn(len(sim.pools))
		if err := sim.pools[i].Enqueue(tx); err != nil {
			sim.logger.Warn("transaction dropped", zap.Stringer("to", sim.nodes[i].Address()), zap.Error(err))
		}
	}
}

func (sim *simulation) wait(ctx context.Context, heights uint64) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if sim.minHeight() >= heights {
				return nil
			}
		}
	}
}

func (sim *simulation) minHeight() uint64 {
	lowest := ^uint64(0)
	for _, node := range sim.nodes {
		if h := node.Height(); h < lowest {
			lowest = h
		}
	}
	return lowest
}

// report logs the finalized chain, and returns an error if any two
// validators finalized different blocks at the same height.
func (sim *simulation) report(heights uint64) error {
	for height := uint64(1); height <= heights; height++ {
		commit, ok := sim.chains[0].CommitAt(height)
		if !ok {
			return fmt.Errorf("no block at height=%v", height)
		}
		for i, chain := range sim.chains[1:] {
			other, ok := chain.CommitAt(height)
			if !ok || other.Block.Hash() != commit.Block.Hash() {
				return fmt.Errorf("validator %v diverged at height=%v", i+1, height)
			}
		}
		fields := []zap.Field{
			zap.Uint64("height", height),
			zap.Uint32("round", commit.Round),
			zap.Stringer("hash", commit.Block.Hash()),
			zap.Int("seals", len(commit.Seals)),
		}
		if standard, ok := commit.Block.(*block.Standard); ok {
			txs, err := txpool.DecodeBatch(standard.Content())
			if err != nil {
				return fmt.Errorf("block at height=%v: %w", height, err)
			}
			fields = append(fields, zap.Stringer("proposer", standard.Header().Proposer), zap.Int("txs", len(txs)))
		}
		sim.logger.Info("block", fields...)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
