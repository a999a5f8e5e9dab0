package replica_test

import (
	"context"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/process"
	"github.com/renproject/qbft/replica"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/schedule"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/testutil"
	"github.com/renproject/qbft/timer"
	"github.com/renproject/qbft/valset"
	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// network delivers every broadcast message to every replica, including the
// sender, in its own goroutine.
type network struct {
	ctx      context.Context
	replicas []*replica.Replica
	chains   []*block.Chain
	drop     func(msg message.Message) bool
}

func newNetwork(ctx context.Context, validators testutil.Validators, timeout time.Duration, drop func(message.Message) bool) *network {
	n := &network{ctx: ctx, drop: drop}
	opts := replica.DefaultOptions().
		WithLogger(zap.NewNop()).
		WithTimerOptions(timer.DefaultOptions().WithTimeout(timeout).WithLogOutput(io.Discard))
	for i := 0; i < validators.Set.Size(); i++ {
		addr := validators.Set.At(i)
		chain := block.NewChain(block.Genesis())
		r, err := replica.New(
			opts,
			validators.Signer(addr),
			chain,
			valset.Static(validators.Set),
			schedule.RoundRobin(),
			block.FixedSchedule(block.NewStructuralValidator().WithChain(chain)),
			replica.BlockProposer(addr, replica.BlockDataFunc(func() block.Data {
				return block.Data(addr.Bytes())
			})),
			replica.BroadcasterFunc(n.broadcast),
			nil,
		)
		Expect(err).ToNot(HaveOccurred())
		n.replicas = append(n.replicas, r)
		n.chains = append(n.chains, chain)
	}
	return n
}

func (n *network) broadcast(msg message.Message) {
	if n.drop != nil && n.drop(msg) {
		return
	}
	for _, r := range n.replicas {
		r := r
		go r.Handle(n.ctx, msg)
	}
}

func (n *network) run(ctx context.Context) *errgroup.Group {
	for _, r := range n.replicas {
		Expect(r.Start(ctx)).To(Succeed())
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range n.replicas {
		r := r
		g.Go(func() error { return r.Run(gctx) })
	}
	return g
}

func (n *network) minHeight() uint64 {
	lowest := ^uint64(0)
	for _, r := range n.replicas {
		if h := r.Height(); h < lowest {
			lowest = h
		}
	}
	return lowest
}

func (n *network) expectConsistentChains(upTo uint64) {
	for height := uint64(1); height <= upTo; height++ {
		expected, ok := n.chains[0].CommitAt(height)
		Expect(ok).To(BeTrue())
		for _, chain := range n.chains[1:] {
			commit, ok := chain.CommitAt(height)
			Expect(ok).To(BeTrue())
			Expect(commit.Block.Hash()).To(Equal(expected.Block.Hash()))
		}
	}
}

func silentProposals(author common.Address) func(message.Message) bool {
	recoverer := sig.NewRecoverer()
	return func(msg message.Message) bool {
		if msg.Kind() != payload.KindProposal {
			return false
		}
		from, err := msg.Author(recoverer)
		return err == nil && from == author
	}
}

var _ = Describe("Replica", func() {
	Context("when the replica has not started", func() {
		It("should not run", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			n := newNetwork(ctx, testutil.NewValidators(4), time.Second, nil)
			Expect(n.replicas[0].Run(ctx)).To(Equal(replica.ErrNotStarted))
		})

		It("should reject messages", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			validators := testutil.NewValidators(4)
			n := newNetwork(ctx, validators, time.Second, nil)
			msg := testutil.Prepare(validators.Signers[0], round.New(1, 0), testutil.RandomHash())
			Expect(n.replicas[0].Handle(ctx, msg)).To(Equal(process.ErrNotStarted))
		})
	})

	Context("when all validators are honest", func() {
		It("should finalize the same blocks at every height", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			validators := testutil.NewValidators(4)
			n := newNetwork(ctx, validators, time.Second, nil)
			g := n.run(ctx)

			Eventually(n.minHeight, 20*time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 3))
			cancel()
			Expect(g.Wait()).To(Succeed())

			n.expectConsistentChains(3)
			for height := uint64(1); height <= 3; height++ {
				commit, _ := n.chains[0].CommitAt(height)
				Expect(len(commit.Seals)).To(BeNumerically(">=", validators.Set.QuorumCount()))
				standard := commit.Block.(*block.Standard)
				parent, _ := n.chains[0].CommitAt(height - 1)
				Expect(standard.Header().ParentHash).To(Equal(parent.Block.Hash()))
			}
		})
	})

	Context("when the proposer of the first round is silent", func() {
		It("should change rounds and finalize a block proposed by another validator", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			validators := testutil.NewValidators(4)
			silent := schedule.RoundRobin().Proposer(round.New(1, 0), validators.Set)
			n := newNetwork(ctx, validators, 100*time.Millisecond, silentProposals(silent))
			g := n.run(ctx)

			Eventually(n.minHeight, 20*time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 2))
			cancel()
			Expect(g.Wait()).To(Succeed())

			n.expectConsistentChains(2)
			commit, ok := n.chains[0].CommitAt(1)
			Expect(ok).To(BeTrue())
			Expect(commit.Round).To(BeNumerically(">=", 1))
			Expect(commit.Block.(*block.Standard).Header().Proposer).ToNot(Equal(silent))
		})
	})
})
