// Package block defines the blocks that are proposed and finalised by the
// consensus engine, and the pluggable validation that decides whether a
// proposed block is acceptable at a given height.
package block

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// A Block is the atomic unit upon which consensus is reached. The consensus
// engine only needs to identify blocks by their hash and number. The rest of
// the block is application-specific.
type Block interface {
	Hash() common.Hash
	Number() uint64
}

// A Header defines properties of a Standard block that are not
// application-specific.
type Header struct {
	ParentHash common.Hash    // Hash of the parent block
	Number     uint64         // Height at which the block is proposed
	Timestamp  uint64         // Seconds since Unix Epoch
	Proposer   common.Address // Validator that built the block
	TxRoot     common.Hash    // Commitment to the content
	Extra      []byte         // Opaque proposer data
}

// String implements the `fmt.Stringer` interface for the Header type.
func (header Header) String() string {
	return fmt.Sprintf(
		"Header(ParentHash=%v,Number=%v,Timestamp=%v,Proposer=%v,TxRoot=%v,Extra=%v)",
		header.ParentHash.Hex(),
		header.Number,
		header.Timestamp,
		header.Proposer.Hex(),
		header.TxRoot.Hex(),
		hex.EncodeToString(header.Extra),
	)
}

// Data stores application-specific information used in blocks.
type Data []byte

// String implements the `fmt.Stringer` interface for the Data type.
func (data Data) String() string {
	return hex.EncodeToString(data)
}

// Standard is the concrete Block used by this module. Its hash is the
// keccak256 hash of the RLP encoding of its header and content.
type Standard struct {
	hash    common.Hash
	header  Header
	content Data
}

// New returns a Standard block with its hash computed.
func New(header Header, content Data) *Standard {
	block := &Standard{
		header:  header,
		content: content,
	}
	block.hash = hashOf(header, content)
	return block
}

// Genesis returns the block at height zero.
func Genesis() *Standard {
	return New(Header{}, nil)
}

// Hash of the header and content.
func (block *Standard) Hash() common.Hash {
	return block.hash
}

// Number of the block.
func (block *Standard) Number() uint64 {
	return block.header.Number
}

// Header of the block.
func (block *Standard) Header() Header {
	return block.header
}

// Content of the block.
func (block *Standard) Content() Data {
	return block.content
}

// Equal compares one block with another by checking that their hashes are
// equal.
func (block *Standard) Equal(other Block) bool {
	return other != nil && block.hash == other.Hash()
}

// String implements the `fmt.Stringer` interface for the Standard type.
func (block *Standard) String() string {
	return fmt.Sprintf("Block(Hash=%v,Header=%v,Content=%v)", block.hash.Hex(), block.header, block.content)
}

// Encode the block to bytes.
func (block *Standard) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(encodedBlock{Header: block.header, Content: block.content})
}

// Decode a Standard block from bytes produced by Encode. The hash is
// recomputed.
func Decode(data []byte) (*Standard, error) {
	enc := encodedBlock{}
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	return New(enc.Header, enc.Content), nil
}

type encodedBlock struct {
	Header  Header
	Content Data
}

func hashOf(header Header, content Data) common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	if err := rlp.Encode(hasher, encodedBlock{Header: header, Content: content}); err != nil {
		panic(fmt.Errorf("invariant violation: encoding block: %v", err))
	}
	hash := common.Hash{}
	hasher.Sum(hash[:0])
	return hash
}
