package testutil

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/sig"
	"github.com/renproject/qbft/sig/ecdsa"
	"github.com/renproject/qbft/valset"
)

// Validators is a validator set together with the signers of its members, in
// the same order.
type Validators struct {
	Signers []sig.Signer
	Set     valset.Set
}

// NewValidators returns n validators with random keys.
func NewValidators(n int) Validators {
	signers := make([]sig.Signer, n)
	addrs := make([]common.Address, n)
	for i := range signers {
		signer, err := ecdsa.NewRandom()
		if err != nil {
			panic(fmt.Sprintf("cannot create signer, err = %v", err))
		}
		signers[i] = signer
		addrs[i] = signer.Address()
	}
	return Validators{
		Signers: signers,
		Set:     valset.MustNew(addrs),
	}
}

// Signer returns the signer of the given member.
func (v Validators) Signer(addr common.Address) sig.Signer {
	i, ok := v.Set.IndexOf(addr)
	if !ok {
		panic(fmt.Sprintf("%v is not a validator", addr.Hex()))
	}
	return v.Signers[i]
}

// Quorum returns the first quorum of signers.
func (v Validators) Quorum() []sig.Signer {
	return v.Signers[:v.Set.QuorumCount()]
}
