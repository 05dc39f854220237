package crypto

import (
	"path/filepath"
	"testing"

	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "treasury_key")
	k1, err := LoadOrGenKey(path)
	require.NoError(t, err)
	k2, err := LoadOrGenKey(path)
	require.NoError(t, err)
	assert.Equal(t, k1.Address(), k2.Address())
	assert.Len(t, k1.PublicKey(), 33)
}

func TestKeySign(t *testing.T) {
	k, err := GenerateKey()
	require.NoError(t, err)
	h := eth_crypto.Keccak256([]byte("treasury"))
	sig, err := k.Sign(h)
	require.NoError(t, err)
	pub, err := eth_crypto.SigToPub(h, sig)
	require.NoError(t, err)
	assert.Equal(t, k.Address(), eth_crypto.PubkeyToAddress(*pub))
}

func TestLoadKeyBadFile(t *testing.T) {
	_, err := LoadKey(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
