package vault

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"github/keyless/go-connector/internal/wallet/keystore"
	"golang.org/x/crypto/scrypt"
)

const blobVersion = 1

// Blob is the decoded form of a local keyring vault.
type Blob struct {
	Version  int                    `json:"version"`
	Keystore *keystore.KeystoreJSON `json:"keystore"`
	Pin      PinHash                `json:"pin"`
	Accounts int                    `json:"accounts"`
}

type PinHash struct {
	Salt string `json:"salt"`
	Hash string `json:"hash"`
	N    int    `json:"n"`
	R    int    `json:"r"`
	P    int    `json:"p"`
}

// Create builds a vault blob: the mnemonic is sealed with the decryption key, the PIN stored as a scrypt hash.
// A nil params uses keystore.DefaultScryptParams.
func Create(mnemonic string, decryptionKey []byte, pin string, accounts int, params *keystore.ScryptParams) (string, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", errors.Wrap(ErrVault, "invalid mnemonic")
	}
	if len(decryptionKey) == 0 {
		return "", errors.Wrap(ErrVault, "empty decryption key")
	}
	if pin == "" {
		return "", errors.Wrap(ErrVault, "empty pin")
	}
	if accounts < 1 {
		accounts = 1
	}
	if params == nil {
		params = keystore.DefaultScryptParams()
	}

	ks, err := keystore.Encrypt([]byte(mnemonic), hex.EncodeToString(decryptionKey), params)
	if err != nil {
		return "", errors.Wrap(err, "failed to seal mnemonic")
	}

	pinHash, err := hashPin(pin, params)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(&Blob{
		Version:  blobVersion,
		Keystore: ks,
		Pin:      *pinHash,
		Accounts: accounts,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal vault")
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses a vault blob.
func Decode(blob string) (*Blob, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, errors.Wrap(ErrVault, "vault is not base64")
	}

	var b Blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrap(ErrVault, "vault is not valid json")
	}
	if b.Version != blobVersion || b.Keystore == nil {
		return nil, errors.Wrapf(ErrVault, "unsupported vault version %d", b.Version)
	}

	return &b, nil
}

func hashPin(pin string, params *keystore.ScryptParams) (*PinHash, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	hash, err := scrypt.Key([]byte(pin), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash pin")
	}

	return &PinHash{
		Salt: hex.EncodeToString(salt),
		Hash: hex.EncodeToString(hash),
		N:    params.N,
		R:    params.R,
		P:    params.P,
	}, nil
}

func (p *PinHash) matches(pin string) bool {
	salt, err := hex.DecodeString(p.Salt)
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(p.Hash)
	if err != nil {
		return false
	}

	hash, err := scrypt.Key([]byte(pin), salt, p.N, p.R, p.P, len(expected))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(hash, expected) == 1
}
