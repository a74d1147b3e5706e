package keystore_test

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/wallet/keystore"
)

func TestEncryptDecrypt(t *testing.T) {
	secret := []byte("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")

	ks, err := keystore.Encrypt(secret, "password", keystore.LightScryptParams())
	require.NoError(t, err)
	assert.Equal(t, 3, ks.Version)
	assert.Equal(t, "scrypt", ks.Crypto.KDF)

	raw, err := json.Marshal(ks)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abandon")

	var parsed keystore.KeystoreJSON
	require.NoError(t, json.Unmarshal(raw, &parsed))

	out, err := keystore.Decrypt(&parsed, "password")
	require.NoError(t, err)
	assert.Equal(t, secret, out)
}

func TestDecryptWrongPassword(t *testing.T) {
	ks, err := keystore.Encrypt([]byte("secret"), "password", keystore.LightScryptParams())
	require.NoError(t, err)

	_, err = keystore.Decrypt(ks, "nope")
	assert.True(t, errors.Is(err, keystore.ErrInvalidPassword))
}
