package testutil

import (
	"fmt"

	"github.com/renproject/qbft/block"
	"github.com/renproject/qbft/message"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/round"
	"github.com/renproject/qbft/sig"

	"github.com/ethereum/go-ethereum/common"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("cannot sign message, err = %v", err))
	}
	return v
}

// Prepares returns prepares for the round and digest, one from each signer.
func Prepares(signers []sig.Signer, id round.Identifier, digest common.Hash) []payload.SignedData[payload.Prepare] {
	prepares := make([]payload.SignedData[payload.Prepare], len(signers))
	for i, signer := range signers {
		prepares[i] = must(payload.Sign(payload.Prepare{Round: id, Digest: digest}, signer))
	}
	return prepares
}

// Certificate returns a prepared certificate for the block, prepared in the
// given round by the signers.
func Certificate(signers []sig.Signer, height uint64, preparedRound uint32, b block.Block) *message.BlockWithCertificate {
	return &message.BlockWithCertificate{
		Block: b,
		Metadata: payload.PreparedRoundMetadata{
			PreparedRound:     preparedRound,
			PreparedBlockHash: b.Hash(),
		},
		Prepares: Prepares(signers, round.New(height, preparedRound), b.Hash()),
	}
}

// RoundChange returns a signed round change for the target round.
func RoundChange(signer sig.Signer, target round.Identifier, certificate *message.BlockWithCertificate) *message.RoundChange {
	return must(message.NewRoundChange(target, certificate, signer))
}

// RoundChanges returns signed round changes for the target round, one from
// each signer, none of them prepared.
func RoundChanges(signers []sig.Signer, target round.Identifier) []*message.RoundChange {
	rcs := make([]*message.RoundChange, len(signers))
	for i, signer := range signers {
		rcs[i] = RoundChange(signer, target, nil)
	}
	return rcs
}

// SignedRoundChanges returns the signed payloads of the round changes.
func SignedRoundChanges(rcs []*message.RoundChange) []payload.SignedData[payload.RoundChange] {
	signed := make([]payload.SignedData[payload.RoundChange], len(rcs))
	for i, rc := range rcs {
		signed[i] = rc.SignedPayload
	}
	return signed
}

// Prepare returns a signed prepare.
func Prepare(signer sig.Signer, id round.Identifier, digest common.Hash) *message.Prepare {
	return must(message.NewPrepare(id, digest, signer))
}

// Commit returns a signed commit.
func Commit(signer sig.Signer, id round.Identifier, digest common.Hash) *message.Commit {
	return must(message.NewCommit(id, digest, signer))
}

// Proposal returns a signed proposal.
func Proposal(signer sig.Signer, id round.Identifier, b block.Block, rcs []*message.RoundChange, prepares []payload.SignedData[payload.Prepare]) *message.Proposal {
	return must(message.NewProposal(id, b, SignedRoundChanges(rcs), prepares, signer))
}
