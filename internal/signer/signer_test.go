package signer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestNewRejectsInvalidHex(t *testing.T) {
	_, err := New("not-hex")
	assert.Error(t, err)
}

func TestSignProducesRecoverableSignature(t *testing.T) {
	pk, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	s, err := New(bytesToHex(ethcrypto.FromECDSA(pk)))
	require.NoError(t, err)

	sig, err := s.Sign(context.Background(), []byte("opaque transaction bytes"))
	require.NoError(t, err)
	require.Len(t, sig, 65)

	digest := ethcrypto.Keccak256([]byte("opaque transaction bytes"))
	recoveredPub, err := ethcrypto.SigToPub(digest, normalizeV(sig))
	require.NoError(t, err)
	recoveredAddr := ethcrypto.PubkeyToAddress(*recoveredPub)
	assert.Equal(t, s.PubKey(), recoveredAddr.Hex())
}

func normalizeV(sig []byte) []byte {
	out := make([]byte, len(sig))
	copy(out, sig)
	if out[64] >= 27 {
		out[64] -= 27
	}
	return out
}

func bytesToHex(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}
