package validation_test

import (
	"errors"
	"testing/quick"

	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/sig/ecdsa"
	"github.com/renproject/qbft/testutil"
	"github.com/renproject/qbft/validation"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Payload validators", func() {
	recoverer := sig.NewRecoverer()

	Context("when validating prepares", func() {
		It("should accept prepares from validators for the round and digest", func() {
			loop := func() bool {
				vals := testutil.NewValidators(4)
				id := testutil.RandomIdentifier()
				digest := testutil.RandomHash()
				v := validation.NewPrepareValidator(vals.Set, id, digest, recoverer)
				for i, prepare := range testutil.Prepares(vals.Signers, id, digest) {
					author, err := v.ValidateAndRecover(prepare)
					Expect(err).ToNot(HaveOccurred())
					Expect(author).To(Equal(vals.Set.At(i)))
				}
				return true
			}
			Expect(quick.Check(loop, &quick.Config{MaxCount: 10})).To(Succeed())
		})

		It("should reject prepares in order of the checks", func() {
			vals := testutil.NewValidators(4)
			id := round.New(10, 1)
			digest := testutil.RandomHash()
			v := validation.NewPrepareValidator(vals.Set, id, digest, recoverer)

			outsider, err := ecdsa.NewRandom()
			Expect(err).ToNot(HaveOccurred())
			// An outsider with the wrong round and digest is reported as an
			// unknown signer.
			prepare := testutil.Prepares([]sig.Signer{outsider}, id.Next(), testutil.RandomHash())[0]
			Expect(errors.Is(v.Validate(prepare), validation.UnknownSigner)).To(BeTrue())

			prepare = testutil.Prepares(vals.Signers[:1], id.Next(), testutil.RandomHash())[0]
			Expect(errors.Is(v.Validate(prepare), validation.RoundMismatch)).To(BeTrue())

			prepare = testutil.Prepares(vals.Signers[:1], id, testutil.RandomHash())[0]
			Expect(errors.Is(v.Validate(prepare), validation.HashMismatch)).To(BeTrue())

			prepare = testutil.Prepares(vals.Signers[:1], id, digest)[0]
			prepare.Signature[64] = 7
			Expect(errors.Is(v.Validate(prepare), validation.InvalidSignature)).To(BeTrue())
		})
	})

	Context("when validating commits", func() {
		It("should accept commits sealed by their author", func() {
			vals := testutil.NewValidators(4)
			id := round.New(3, 0)
			digest := testutil.RandomHash()
			v := validation.NewCommitValidator(vals.Set, id, digest, recoverer)
			for _, signer := range vals.Signers {
				commit := testutil.Commit(signer, id, digest)
				Expect(v.Validate(commit.SignedPayload)).To(Succeed())
			}
		})

		It("should reject commits sealed by someone else", func() {
			vals := testutil.NewValidators(4)
			id := round.New(3, 0)
			digest := testutil.RandomHash()
			seal, err := vals.Signers[1].Sign(digest)
			Expect(err).ToNot(HaveOccurred())
			signed, err := payload.Sign(payload.Commit{Round: id, Digest: digest, CommitSeal: seal}, vals.Signers[0])
			Expect(err).ToNot(HaveOccurred())

			err = validation.NewCommitValidator(vals.Set, id, digest, recoverer).Validate(signed)
			Expect(errors.Is(err, validation.InvalidCommitSeal)).To(BeTrue())
		})

		It("should reject commits with an unrecoverable seal", func() {
			vals := testutil.NewValidators(4)
			id := round.New(3, 0)
			digest := testutil.RandomHash()
			signed, err := payload.Sign(payload.Commit{Round: id, Digest: digest}, vals.Signers[0])
			Expect(err).ToNot(HaveOccurred())

			err = validation.NewCommitValidator(vals.Set, id, digest, recoverer).Validate(signed)
			Expect(errors.Is(err, validation.InvalidCommitSeal)).To(BeTrue())
		})

		It("should reject commits for another digest or round", func() {
			vals := testutil.NewValidators(4)
			id := round.New(3, 0)
			digest := testutil.RandomHash()
			v := validation.NewCommitValidator(vals.Set, id, digest, recoverer)

			commit := testutil.Commit(vals.Signers[0], id, testutil.RandomHash())
			Expect(errors.Is(v.Validate(commit.SignedPayload), validation.HashMismatch)).To(BeTrue())
			commit = testutil.Commit(vals.Signers[0], id.Next(), digest)
			Expect(errors.Is(v.Validate(commit.SignedPayload), validation.RoundMismatch)).To(BeTrue())
		})
	})

	Context("when validating round change payloads", func() {
		It("should accept any round at the height", func() {
			vals := testutil.NewValidators(4)
			v := validation.NewRoundChangePayloadValidator(vals.Set, 10, recoverer)
			Expect(v.ChainHeight()).To(Equal(uint64(10)))
			loop := func(r uint32) bool {
				rc := testutil.RoundChange(vals.Signers[0], round.New(10, r), nil)
				Expect(v.Validate(rc.SignedPayload)).To(Succeed())
				return true
			}
			Expect(quick.Check(loop, &quick.Config{MaxCount: 10})).To(Succeed())
		})

		It("should reject metadata for the target round or later", func() {
			vals := testutil.NewValidators(4)
			v := validation.NewRoundChangePayloadValidator(vals.Set, 10, recoverer)
			for _, preparedRound := range []uint32{3, 4, 100} {
				signed, err := payload.Sign(payload.RoundChange{
					Round:    round.New(10, 3),
					Prepared: &payload.PreparedRoundMetadata{PreparedRound: preparedRound},
				}, vals.Signers[0])
				Expect(err).ToNot(HaveOccurred())
				Expect(errors.Is(v.Validate(signed), validation.RoundMismatch)).To(BeTrue())
			}
		})
	})
})

var _ = Describe("Helpers", func() {
	Context("when checking for duplicate authors", func() {
		It("should detect any repeated address", func() {
			addrs := testutil.RandomAddresses(5)
			Expect(validation.HasDuplicateAuthors(addrs)).To(BeFalse())
			Expect(validation.HasDuplicateAuthors(nil)).To(BeFalse())
			Expect(validation.HasDuplicateAuthors(append(addrs, addrs[4]))).To(BeTrue())
			Expect(validation.HasDuplicateAuthors(append(addrs, addrs[0]))).To(BeTrue())
		})
	})

	Context("when checking for sufficient entries", func() {
		It("should compare the count with the quorum", func() {
			loop := func(n, quorum uint16) bool {
				Expect(validation.HasSufficientEntries(int(n), int(quorum))).To(Equal(n >= quorum))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})
	})
})

var _ = Describe("Errors", func() {
	It("should match kinds through the cause chain", func() {
		inner := &validation.Error{Kind: validation.UnknownSigner, Reason: "inner"}
		outer := &validation.Error{Kind: validation.InvalidPrepare, Reason: "outer", Cause: inner}
		Expect(errors.Is(outer, validation.InvalidPrepare)).To(BeTrue())
		Expect(errors.Is(outer, validation.UnknownSigner)).To(BeTrue())
		Expect(errors.Is(outer, validation.HashMismatch)).To(BeFalse())

		kind, ok := validation.KindOf(outer)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(validation.InvalidPrepare))
		Expect(outer.Error()).To(Equal("InvalidPrepare: outer: UnknownSigner: inner"))
	})

	It("should name every kind", func() {
		for kind := validation.InvalidSignature; kind <= validation.InvalidJustification; kind++ {
			Expect(kind.String()).ToNot(HavePrefix("Kind("))
		}
	})
})
