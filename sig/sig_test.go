package sig_test

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing/quick"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/sig/ecdsa"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type countingRecoverer struct {
	calls int
}

func (r *countingRecoverer) Recover(hash common.Hash, signature sig.Signature) (common.Address, error) {
	r.calls++
	return sig.Recover(hash, signature)
}

var _ = Describe("Signatures", func() {

	randomHash := func() common.Hash {
		hash := common.Hash{}
		_, err := rand.Read(hash[:])
		Expect(err).ToNot(HaveOccurred())
		return hash
	}

	Context("when testing equality of signatures", func() {
		It("should return true for empty signatures", func() {
			lhs := sig.Signature{}
			rhs := sig.Signature{}
			Expect(lhs.Equal(rhs)).To(BeTrue())
			Expect(lhs.String()).To(Equal(rhs.String()))
		})

		It("should return false for two random signatures", func() {
			lhs := sig.Signature{}
			_, err := rand.Read(lhs[:])
			Expect(err).ToNot(HaveOccurred())
			rhs := sig.Signature{}
			_, err = rand.Read(rhs[:])
			Expect(err).ToNot(HaveOccurred())
			Expect(lhs.Equal(rhs)).To(BeFalse())
		})
	})

	Context("when recovering the author of a signature", func() {
		It("should return the address of the signer", func() {
			loop := func() bool {
				signer, err := ecdsa.NewRandom()
				Expect(err).ToNot(HaveOccurred())
				hash := randomHash()
				signature, err := signer.Sign(hash)
				Expect(err).ToNot(HaveOccurred())

				author, err := sig.Recover(hash, signature)
				Expect(err).ToNot(HaveOccurred())
				Expect(author).To(Equal(signer.Address()))
				return true
			}
			Expect(quick.Check(loop, &quick.Config{MaxCount: 20})).To(Succeed())
		})

		It("should return a different address when the hash is different", func() {
			signer, err := ecdsa.NewRandom()
			Expect(err).ToNot(HaveOccurred())
			signature, err := signer.Sign(randomHash())
			Expect(err).ToNot(HaveOccurred())

			author, err := sig.Recover(randomHash(), signature)
			if err == nil {
				Expect(author).ToNot(Equal(signer.Address()))
			}
		})

		It("should return an invalid signature error for garbage", func() {
			signature := sig.Signature{}
			signature[64] = 27
			_, err := sig.Recover(randomHash(), signature)
			Expect(errors.Is(err, sig.ErrInvalidSignature)).To(BeTrue())
		})

		It("should reject malleable signatures", func() {
			signer, err := ecdsa.NewRandom()
			Expect(err).ToNot(HaveOccurred())
			hash := randomHash()
			signature, err := signer.Sign(hash)
			Expect(err).ToNot(HaveOccurred())

			// Flip S into the upper half of the curve order.
			s := new(big.Int).SetBytes(signature[32:64])
			s.Sub(crypto.S256().Params().N, s)
			malleable := signature
			copy(malleable[32:64], common.LeftPadBytes(s.Bytes(), 32))
			malleable[64] ^= 1

			_, err = sig.Recover(hash, malleable)
			Expect(errors.Is(err, sig.ErrInvalidSignature)).To(BeTrue())
		})
	})

	Context("when caching recoveries", func() {
		It("should only recover once for the same hash and signature", func() {
			counter := &countingRecoverer{}
			recoverer, err := sig.NewCachingRecoverer(counter, 16)
			Expect(err).ToNot(HaveOccurred())

			signer, err := ecdsa.NewRandom()
			Expect(err).ToNot(HaveOccurred())
			hash := randomHash()
			signature, err := signer.Sign(hash)
			Expect(err).ToNot(HaveOccurred())

			for i := 0; i < 5; i++ {
				author, err := recoverer.Recover(hash, signature)
				Expect(err).ToNot(HaveOccurred())
				Expect(author).To(Equal(signer.Address()))
			}
			Expect(counter.calls).To(Equal(1))
			Expect(recoverer.Len()).To(Equal(1))
		})

		It("should cache failures too", func() {
			counter := &countingRecoverer{}
			recoverer, err := sig.NewCachingRecoverer(counter, 0)
			Expect(err).ToNot(HaveOccurred())

			hash := randomHash()
			for i := 0; i < 3; i++ {
				_, err := recoverer.Recover(hash, sig.Signature{})
				Expect(errors.Is(err, sig.ErrInvalidSignature)).To(BeTrue())
			}
			Expect(counter.calls).To(Equal(1))
		})
	})
})
