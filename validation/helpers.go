package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/renproject/qbft/payload"
	"github.com/renproject/qbft/sig"
)

// HasDuplicateAuthors returns true when any address appears more than once.
func HasDuplicateAuthors(authors []common.Address) bool {
	seen := make(map[common.Address]struct{}, len(authors))
	for _, author := range authors {
		if _, ok := seen[author]; ok {
			return true
		}
		seen[author] = struct{}{}
	}
	return false
}

// HasSufficientEntries returns true when n entries reach the quorum.
func HasSufficientEntries(n, quorum int) bool {
	return n >= quorum
}

// recoverableAuthors returns the authors of the signed payloads whose
// signatures can be recovered. Unrecoverable payloads are skipped, and are
// rejected later when they are validated individually.
func recoverableAuthors[P payload.Payload](signed []payload.SignedData[P], recoverer sig.Recoverer) []common.Address {
	authors := make([]common.Address, 0, len(signed))
	for _, s := range signed {
		author, err := s.Author(recoverer)
		if err != nil {
			continue
		}
		authors = append(authors, author)
	}
	return authors
}
