package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer implements execution.Signer by signing opaque transaction bytes
// with a secp256k1 key, the way a remote signer collaborator would (spec
// §6: "remote signer: sign an opaque transaction given a public key").
// Unlike the EIP-712 struct signing this package's predecessor did for
// CLOB orders, the collaborator here only ever receives pre-built,
// venue-specific transaction bytes to hash and sign — it has no opinion on
// their internal structure.
type Signer struct {
	key    *ecdsa.PrivateKey
	pubHex string
}

// New creates a Signer from a hex-encoded secp256k1 private key (with or
// without a 0x prefix).
func New(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("signer: invalid private key: %w", err)
	}
	addr := ethcrypto.PubkeyToAddress(pk.PublicKey)
	return &Signer{key: pk, pubHex: addr.Hex()}, nil
}

// PubKey returns the hex-encoded address derived from the signer's key.
func (s *Signer) PubKey() string {
	return s.pubHex
}

// Sign hashes opaque with Keccak256 and signs the digest, returning a
// 65-byte r||s||v signature. ctx is accepted to satisfy the remote-signer
// collaborator shape (spec §6); a local key needs no network round trip.
func (s *Signer) Sign(_ context.Context, opaque []byte) ([]byte, error) {
	digest := ethcrypto.Keccak256(opaque)
	sig, err := ethcrypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("signer: signing: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}
