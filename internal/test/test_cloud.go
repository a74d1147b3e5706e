package test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/cloud"
	"github/keyless/go-connector/internal/wallet/keystore"
	"github/keyless/go-connector/internal/wallet/vault"
)

const (
	Mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	SafleID  = "alice"
	Password = "correct horse"
	Pin      = "1234"

	// Account0 is the first address derived from Mnemonic.
	Account0 = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	token = "test-token"
)

// DecryptionKey is the vault decryption key of the test cloud.
var DecryptionKey = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

// Cloud is an in-process cloud accepting SafleID and Password.
type Cloud struct {
	mu        sync.Mutex
	IsMobile  bool
	Logins    int
	Blob      string
	pdKeyHash string
	encrypted []byte
}

func NewCloud(t *testing.T) *Cloud {
	t.Helper()

	blob, err := vault.Create(Mnemonic, DecryptionKey, Pin, 2, keystore.LightScryptParams())
	require.NoError(t, err, "Failed to create test vault")

	pdKey := cloud.DerivePDKey(SafleID, Password)
	encrypted, err := cloud.EncryptEncryptionKey(pdKey, DecryptionKey)
	require.NoError(t, err, "Failed to encrypt test decryption key")

	return &Cloud{
		Blob:      blob,
		pdKeyHash: cloud.PDKeyHash(pdKey),
		encrypted: encrypted,
	}
}

func (c *Cloud) VaultStorageStatus(_ context.Context, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.IsMobile, nil
}

func (c *Cloud) Login(_ context.Context, _ string, pdKeyHash string, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logins++
	if pdKeyHash != c.pdKeyHash {
		return "", errors.Wrap(cloud.ErrAuth, "invalid credentials")
	}

	return token, nil
}

func (c *Cloud) RetrieveVault(_ context.Context, pdKeyHash string, tkn string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pdKeyHash != c.pdKeyHash || tkn != token {
		return "", cloud.ErrAuth
	}

	return c.Blob, nil
}

func (c *Cloud) RetrieveEncryptionKey(_ context.Context, pdKeyHash string, tkn string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pdKeyHash != c.pdKeyHash || tkn != token {
		return nil, cloud.ErrAuth
	}

	return append([]byte(nil), c.encrypted...), nil
}
