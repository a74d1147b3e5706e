package vault_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/wallet/keystore"
	"github/keyless/go-connector/internal/wallet/transaction"
	"github/keyless/go-connector/internal/wallet/vault"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var (
	decKey   = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	account0 = common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
)

func fixedChainID(id int64) vault.ChainIDResolver {
	return func(_ context.Context, _ string) (*big.Int, error) { return big.NewInt(id), nil }
}

func openKeyring(t *testing.T) (*vault.Keyring, string) {
	t.Helper()

	blob, err := vault.Create(testMnemonic, decKey, "1234", 2, keystore.LightScryptParams())
	require.NoError(t, err)

	k, err := vault.OpenKeyring(blob, fixedChainID(1))
	require.NoError(t, err)

	return k, blob
}

func TestGetAccounts(t *testing.T) {
	k, _ := openKeyring(t)

	accs, err := k.GetAccounts(t.Context(), decKey)
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.Equal(t, account0, accs[0])

	_, err = k.GetAccounts(t.Context(), []byte{9, 9})
	assert.True(t, errors.Is(err, vault.ErrVault))
}

func TestValidatePin(t *testing.T) {
	k, _ := openKeyring(t)

	ok, err := k.ValidatePin(t.Context(), "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = k.ValidatePin(t.Context(), "0000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignRequiresRestore(t *testing.T) {
	k, _ := openKeyring(t)

	_, err := k.ExportPrivateKey(t.Context(), account0, "1234")
	assert.True(t, errors.Is(err, vault.ErrVault))
}

func TestRestoreWithWrongPin(t *testing.T) {
	k, blob := openKeyring(t)

	err := k.RestoreKeyringState(t.Context(), blob, "9999", decKey)
	assert.True(t, errors.Is(err, vault.ErrVault))
}

func TestSignTransaction(t *testing.T) {
	k, blob := openKeyring(t)
	require.NoError(t, k.RestoreKeyringState(t.Context(), blob, "1234", decKey))
	require.NoError(t, k.ChangeNetwork(t.Context(), "polygon"))
	assert.Equal(t, "polygon", k.Network())

	raw := &transaction.RawTransaction{
		From:                 account0.Hex(),
		To:                   "0x6fC21092DA55B392b045eD78F4732bff3C580e2c",
		Value:                "0x1",
		GasLimit:             "0x5208",
		MaxFeePerGas:         "0xba43b7400",
		MaxPriorityFeePerGas: "0x77359400",
		Type:                 "0x2",
		ChainID:              137,
	}

	signed, err := k.SignTransaction(t.Context(), raw, "1234", "")
	require.NoError(t, err)

	b, err := hexutil.Decode(signed)
	require.NoError(t, err)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(b))
	assert.Equal(t, big.NewInt(137), tx.ChainId())

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), &tx)
	require.NoError(t, err)
	assert.Equal(t, account0, sender)
}

func TestSignTransactionResolvesChainID(t *testing.T) {
	k, blob := openKeyring(t)
	require.NoError(t, k.RestoreKeyringState(t.Context(), blob, "1234", decKey))

	raw := &transaction.RawTransaction{
		From:                 account0.Hex(),
		To:                   "0x6fC21092DA55B392b045eD78F4732bff3C580e2c",
		GasLimit:             "0x5208",
		MaxFeePerGas:         "0x1",
		MaxPriorityFeePerGas: "0x1",
	}

	signed, err := k.SignTransaction(t.Context(), raw, "1234", "http://node")
	require.NoError(t, err)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(signed)))
	assert.Equal(t, big.NewInt(1), tx.ChainId())
}

func TestPersonalSign(t *testing.T) {
	k, blob := openKeyring(t)
	require.NoError(t, k.RestoreKeyringState(t.Context(), blob, "1234", decKey))

	sigHex, err := k.Sign(t.Context(), []byte("hello"), account0, "1234", "")
	require.NoError(t, err)

	sig := hexutil.MustDecode(sigHex)
	require.Len(t, sig, 65)
	assert.Equal(t, byte(27), sig[64]&^1)

	sig[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte("hello")), sig)
	require.NoError(t, err)
	assert.Equal(t, account0, crypto.PubkeyToAddress(*pub))
}

func TestLock(t *testing.T) {
	k, blob := openKeyring(t)
	require.NoError(t, k.RestoreKeyringState(t.Context(), blob, "1234", decKey))

	key, err := k.ExportPrivateKey(t.Context(), account0, "1234")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	k.Lock()
	_, err = k.ExportPrivateKey(t.Context(), account0, "1234")
	assert.True(t, errors.Is(err, vault.ErrVault))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := vault.Decode("not-base64!")
	assert.True(t, errors.Is(err, vault.ErrVault))

	_, err = vault.NewKeyringFactory(nil)("e30=")
	assert.True(t, errors.Is(err, vault.ErrVault))
}

func TestCreateValidation(t *testing.T) {
	_, err := vault.Create("not a mnemonic", decKey, "1234", 1, keystore.LightScryptParams())
	assert.Error(t, err)

	_, err = vault.Create(testMnemonic, nil, "1234", 1, keystore.LightScryptParams())
	assert.Error(t, err)
}
