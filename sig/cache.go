package sig

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of recoveries remembered by a
// CachingRecoverer when no size is given.
const DefaultCacheSize = 4096

type cacheKey struct {
	hash      common.Hash
	signature Signature
}

type cacheValue struct {
	author common.Address
	err    error
}

// A CachingRecoverer remembers the outcome of recent recoveries. The same
// message is usually validated more than once (on receipt, when piggybacked in
// a round change, and when piggybacked in a proposal justification), and
// public key recovery dominates the cost of validation.
type CachingRecoverer struct {
	next  Recoverer
	cache *lru.Cache
}

// NewCachingRecoverer wraps the given Recoverer with an LRU cache of the given
// size. A nil Recoverer defaults to NewRecoverer().
func NewCachingRecoverer(next Recoverer, size int) (*CachingRecoverer, error) {
	if next == nil {
		next = NewRecoverer()
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating recovery cache: %w", err)
	}
	return &CachingRecoverer{next: next, cache: cache}, nil
}

// Recover implements the Recoverer interface.
func (r *CachingRecoverer) Recover(hash common.Hash, signature Signature) (common.Address, error) {
	key := cacheKey{hash: hash, signature: signature}
	if v, ok := r.cache.Get(key); ok {
		value := v.(cacheValue)
		return value.author, value.err
	}
	author, err := r.next.Recover(hash, signature)
	r.cache.Add(key, cacheValue{author: author, err: err})
	return author, err
}

// Len returns the number of cached recoveries.
func (r *CachingRecoverer) Len() int {
	return r.cache.Len()
}
