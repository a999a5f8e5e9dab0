package txpool_test

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"

	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/txpool"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func randomTransaction() txpool.Transaction {
	tx := make(txpool.Transaction, 1+mrand.Intn(64))
	if _, err := rand.Read(tx); err != nil {
		panic(err)
	}
	return tx
}

var _ = Describe("Transaction pool", func() {
	for _, capacity := range []int{1, 100, 5000} {
		capacity := capacity

		Context(fmt.Sprintf("when a new FIFOPool is created with capacity = %d", capacity), func() {
			It("should dequeue transactions in the order they were enqueued", func() {
				pool := txpool.FIFOPool(capacity)
				txs := make(txpool.Transactions, capacity)
				for i := range txs {
					txs[i] = randomTransaction()
					Expect(pool.Enqueue(txs[i])).To(Succeed())
				}
				Expect(pool.Len()).To(Equal(capacity))

				for i := range txs {
					tx, ok := pool.Dequeue()
					Expect(ok).To(BeTrue())
					Expect(tx).To(Equal(txs[i]))
				}
				tx, ok := pool.Dequeue()
				Expect(ok).To(BeFalse())
				Expect(tx).To(BeNil())
			})

			It("should error on enqueuing when the pool is full", func() {
				pool := txpool.FIFOPool(capacity)
				for i := 0; i < capacity; i++ {
					Expect(pool.Enqueue(randomTransaction())).To(Succeed())
				}
				Expect(pool.Enqueue(randomTransaction())).To(MatchError(txpool.ErrPoolFull))

				_, ok := pool.Dequeue()
				Expect(ok).To(BeTrue())
				Expect(pool.Enqueue(randomTransaction())).To(Succeed())
			})

			It("should remove existing transactions", func() {
				pool := txpool.FIFOPool(capacity)
				txs := make(txpool.Transactions, capacity)
				for i := range txs {
					txs[i] = randomTransaction()
					Expect(pool.Enqueue(txs[i])).To(Succeed())
				}
				removed := txs[mrand.Intn(capacity)]
				Expect(pool.Remove(removed.Hash())).To(BeTrue())
				Expect(pool.Remove(randomTransaction().Hash())).To(BeFalse())
				Expect(pool.Len()).To(Equal(capacity - 1))
			})
		})
	}

	Context("when batching transactions into blocks", func() {
		It("should include at most the maximum number of transactions", func() {
			pool := txpool.FIFOPool(100)
			txs := make(txpool.Transactions, 10)
			for i := range txs {
				txs[i] = randomTransaction()
				Expect(pool.Enqueue(txs[i])).To(Succeed())
			}
			batcher := txpool.NewBatcher(pool, 4)

			batch, err := txpool.DecodeBatch(batcher.Next())
			Expect(err).ToNot(HaveOccurred())
			Expect(batch).To(Equal(txs[:4]))

			batch, err = txpool.DecodeBatch(batcher.Next())
			Expect(err).ToNot(HaveOccurred())
			Expect(batch).To(Equal(txs[4:8]))

			batch, err = txpool.DecodeBatch(batcher.Next())
			Expect(err).ToNot(HaveOccurred())
			Expect(batch).To(Equal(txs[8:]))
			Expect(pool.Len()).To(Equal(0))
		})

		It("should produce an empty batch when the pool is empty", func() {
			batcher := txpool.NewBatcher(txpool.FIFOPool(1), 4)
			batch, err := txpool.DecodeBatch(batcher.Next())
			Expect(err).ToNot(HaveOccurred())
			Expect(batch).To(BeEmpty())
		})

		It("should reject content that is not a batch", func() {
			_, err := txpool.DecodeBatch(block.Data{0xff})
			Expect(err).To(HaveOccurred())
		})
	})
})
