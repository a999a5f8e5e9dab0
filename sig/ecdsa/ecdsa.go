// Package ecdsa implements the sig.Signer interface with secp256k1 private
// keys.
package ecdsa

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/renproject/qbft/sig"
)

type signer struct {
	privKey *ecdsa.PrivateKey
	address common.Address
}

// New returns a Signer for the given private key.
func New(privKey *ecdsa.PrivateKey) sig.Signer {
	return signer{
		privKey: privKey,
		address: crypto.PubkeyToAddress(privKey.PublicKey),
	}
}

// NewRandom generates a private key for you.
func NewRandom() (sig.Signer, error) {
	privKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(privKey), nil
}

// NewFromHex loads a private key from its hex encoding.
func NewFromHex(hexKey string) (sig.Signer, error) {
	privKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	return New(privKey), nil
}

func (signer signer) Address() common.Address {
	return signer.address
}

func (signer signer) Sign(hash common.Hash) (sig.Signature, error) {
	signature := sig.Signature{}
	data, err := crypto.Sign(hash[:], signer.privKey)
	if err != nil {
		return signature, fmt.Errorf("signing hash=%v: %w", hash, err)
	}
	if len(data) != sig.SignatureLength {
		return signature, fmt.Errorf("invariant violation: expected signature length=%v, got length=%v", sig.SignatureLength, len(data))
	}
	copy(signature[:], data)
	return signature, nil
}
