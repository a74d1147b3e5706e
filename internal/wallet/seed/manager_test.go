package seed_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/wallet/seed"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestInitialize(t *testing.T) {
	m := seed.NewManager()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())

	require.NoError(t, m.Initialize(testMnemonic, ""))
	assert.True(t, m.IsInitialized())

	// BIP39 test vector without passphrase
	assert.Equal(t,
		"5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4",
		hex.EncodeToString(m.GetSeed()))

	s := m.GetSeed()
	s[0] = 0
	assert.NotEqual(t, byte(0), m.GetSeed()[0])

	m.Clear()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())
}

func TestInitializeRejectsBadChecksum(t *testing.T) {
	err := seed.NewManager().Initialize(strings.Repeat("abandon ", 12), "")
	assert.True(t, errors.Is(err, seed.ErrInvalidMnemonic))
}

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := seed.NewMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 12)
	require.NoError(t, seed.NewManager().Initialize(mnemonic, ""))
}
