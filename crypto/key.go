package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

// Key is the secp256k1 key a principal signs treasury txs with.
type Key struct {
	privateKey *ecdsa.PrivateKey
}

func NewKey(priv *ecdsa.PrivateKey) *Key {
	return &Key{privateKey: priv}
}

func GenerateKey() (*Key, error) {
	priv, err := eth_crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Key{privateKey: priv}, nil
}

// LoadKey reads a hex encoded private key file.
func LoadKey(keyFilePath string) (*Key, error) {
	dat, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	priv, err := eth_crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(dat)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", keyFilePath, err)
	}
	return &Key{privateKey: priv}, nil
}

// Save writes the key hex encoded, readable by the owner only.
func (k *Key) Save(keyFilePath string) error {
	if err := os.MkdirAll(filepath.Dir(keyFilePath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(keyFilePath, []byte(hex.EncodeToString(eth_crypto.FromECDSA(k.privateKey))), 0o600)
}

// LoadOrGenKey loads the key at keyFilePath, creating it first if missing.
func LoadOrGenKey(keyFilePath string) (*Key, error) {
	if _, err := os.Stat(keyFilePath); err == nil {
		return LoadKey(keyFilePath)
	}
	k, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = k.Save(keyFilePath); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Key) PrivateKey() *ecdsa.PrivateKey {
	return k.privateKey
}

func (k *Key) PublicKey() []byte {
	return eth_crypto.CompressPubkey(&k.privateKey.PublicKey)
}

func (k *Key) Address() common.Address {
	return eth_crypto.PubkeyToAddress(k.privateKey.PublicKey)
}

func (k *Key) Sign(hash []byte) ([]byte, error) {
	return eth_crypto.Sign(hash, k.privateKey)
}

// ValidatorPubKey reads the consensus public key of a node without loading its
// sign state.
func ValidatorPubKey(keyFilePath string) (crypto.PubKey, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		return nil, fmt.Errorf("error reading PrivValidator key from %v: %w", keyFilePath, err)
	}
	return pvKey.PubKey, nil
}
