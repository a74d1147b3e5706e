package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
	"github/keyless/go-connector/internal/wallet/vault"
)

func TestCreateVault(t *testing.T) {
	res, err := createVault(t.Context(), 12, 2, "1234")
	require.NoError(t, err)

	assert.True(t, bip39.IsMnemonicValid(res.Mnemonic))
	assert.Len(t, res.Accounts, 2)
	assert.Len(t, res.DecryptionKey, 2+2*decryptionKeyLength)

	keyring, err := vault.OpenKeyring(res.Vault, nil)
	require.NoError(t, err)

	ok, err := keyring.ValidatePin(t.Context(), "1234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateVaultUnsupportedLength(t *testing.T) {
	_, err := createVault(t.Context(), 15, 1, "1234")
	require.Error(t, err)
}
