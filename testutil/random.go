package testutil

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/round"
)

func init() {
	mrand.Seed(time.Now().Unix())
}

// RandomHash returns a random hash.
func RandomHash() common.Hash {
	hash := common.Hash{}
	_, err := rand.Read(hash[:])
	if err != nil {
		panic(fmt.Sprintf("cannot create random hash, err = %v", err))
	}
	return hash
}

// RandomAddress returns a random address.
func RandomAddress() common.Address {
	addr := common.Address{}
	_, err := rand.Read(addr[:])
	if err != nil {
		panic(fmt.Sprintf("cannot create random address, err = %v", err))
	}
	return addr
}

// RandomAddresses returns n random addresses.
func RandomAddresses(n int) []common.Address {
	addrs := make([]common.Address, n)
	for i := range addrs {
		addrs[i] = RandomAddress()
	}
	return addrs
}

// RandomHeight returns a random, positive height small enough that adding
// rounds to it cannot overflow.
func RandomHeight() uint64 {
	return uint64(mrand.Int63n(1<<32)) + 1
}

// RandomRound returns a random round.
func RandomRound() uint32 {
	return uint32(mrand.Intn(1 << 16))
}

// RandomIdentifier returns a random round identifier.
func RandomIdentifier() round.Identifier {
	return round.New(RandomHeight(), RandomRound())
}
