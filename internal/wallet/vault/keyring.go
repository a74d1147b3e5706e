package vault

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/address"
	"github/keyless/go-connector/internal/wallet/keystore"
	"github/keyless/go-connector/internal/wallet/seed"
	"github/keyless/go-connector/internal/wallet/transaction"
)

// ChainIDResolver asks the node behind rpcURL for its chain id.
type ChainIDResolver func(ctx context.Context, rpcURL string) (*big.Int, error)

// DialChainID is the default ChainIDResolver.
func DialChainID(ctx context.Context, rpcURL string) (*big.Int, error) {
	url := strings.TrimSpace(strings.Split(rpcURL, ",")[0])

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial rpc")
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}

	return chainID, nil
}

// Keyring is the local, mnemonic based Gateway.
type Keyring struct {
	mu       sync.Mutex
	blob     *Blob
	seeds    seed.Manager
	network  string
	chainIDs ChainIDResolver
}

// NewKeyringFactory returns a Factory opening local keyrings. A nil resolver uses DialChainID.
func NewKeyringFactory(chainIDs ChainIDResolver) Factory {
	if chainIDs == nil {
		chainIDs = DialChainID
	}

	return func(blob string) (Gateway, error) {
		return OpenKeyring(blob, chainIDs)
	}
}

func OpenKeyring(blob string, chainIDs ChainIDResolver) (*Keyring, error) {
	b, err := Decode(blob)
	if err != nil {
		return nil, err
	}

	return &Keyring{
		blob:     b,
		seeds:    seed.NewManager(),
		network:  "ethereum",
		chainIDs: chainIDs,
	}, nil
}

func (k *Keyring) GetAccounts(_ context.Context, decryptionKey []byte) ([]common.Address, error) {
	s, err := k.openSeed(decryptionKey)
	if err != nil {
		return nil, err
	}
	defer zero(s)

	return deriveAccounts(s, k.blob.Accounts)
}

func (k *Keyring) ValidatePin(_ context.Context, pin string) (bool, error) {
	return k.blob.Pin.matches(pin), nil
}

func (k *Keyring) RestoreKeyringState(ctx context.Context, vault string, pin string, decryptionKey []byte) error {
	log := util.LogFromContext(ctx)

	b, err := Decode(vault)
	if err != nil {
		return err
	}

	if !b.Pin.matches(pin) {
		return errors.Wrap(ErrVault, "invalid pin")
	}

	mnemonic, err := keystore.Decrypt(b.Keystore, hex.EncodeToString(decryptionKey))
	if err != nil {
		return errors.Wrap(ErrVault, "failed to unlock vault")
	}
	defer zero(mnemonic)

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.seeds.Initialize(string(mnemonic), ""); err != nil {
		return errors.Wrap(ErrVault, err.Error())
	}
	k.blob = b

	log.Debug().Int("accounts", b.Accounts).Msg("Keyring restored")

	return nil
}

func (k *Keyring) ChangeNetwork(_ context.Context, network string) error {
	switch network {
	case "ethereum", "polygon":
	default:
		return errors.Wrapf(ErrVault, "unsupported network %q", network)
	}

	k.mu.Lock()
	k.network = network
	k.mu.Unlock()

	return nil
}

// Network returns the current signing context.
func (k *Keyring) Network() string {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.network
}

func (k *Keyring) SignTransaction(ctx context.Context, rawTx *transaction.RawTransaction, pin string, rpcURL string) (string, error) {
	if !common.IsHexAddress(rawTx.From) {
		return "", errors.Wrapf(ErrVault, "invalid from address %q", rawTx.From)
	}

	chainID := big.NewInt(rawTx.ChainID)
	if rawTx.ChainID == 0 {
		resolved, err := k.chainIDs(ctx, rpcURL)
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve chain id")
		}
		chainID = resolved
	}

	tx, err := rawTx.ToTypes(chainID.Int64())
	if err != nil {
		return "", err
	}

	privateKey, err := k.ExportPrivateKey(ctx, common.HexToAddress(rawTx.From), pin)
	if err != nil {
		return "", err
	}
	defer zero(privateKey)

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert private key to ECDSA")
	}

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), ecdsaPrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal transaction")
	}

	return hexutil.Encode(txBytes), nil
}

func (k *Keyring) ExportPrivateKey(_ context.Context, addr common.Address, pin string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.blob.Pin.matches(pin) {
		return nil, errors.Wrap(ErrVault, "invalid pin")
	}

	s := k.seeds.GetSeed()
	if s == nil {
		return nil, errors.Wrap(ErrVault, "keyring is locked")
	}
	defer zero(s)

	for i := 0; i < k.blob.Accounts; i++ {
		path := address.BIP44Path(i)

		derived, err := address.DeriveAddress(s, path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive address")
		}

		if derived == addr {
			return address.DerivePrivateKey(s, path)
		}
	}

	return nil, errors.Wrapf(ErrVault, "account %s not in vault", addr.Hex())
}

func (k *Keyring) Sign(ctx context.Context, data []byte, addr common.Address, pin string, _ string) (string, error) {
	privateKey, err := k.ExportPrivateKey(ctx, addr, pin)
	if err != nil {
		return "", err
	}
	defer zero(privateKey)

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert private key to ECDSA")
	}

	sig, err := crypto.Sign(accounts.TextHash(data), ecdsaPrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign message")
	}
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

func (k *Keyring) Lock() {
	k.seeds.Clear()
}

func (k *Keyring) openSeed(decryptionKey []byte) ([]byte, error) {
	k.mu.Lock()
	ks := k.blob.Keystore
	k.mu.Unlock()

	mnemonic, err := keystore.Decrypt(ks, hex.EncodeToString(decryptionKey))
	if err != nil {
		return nil, errors.Wrap(ErrVault, "failed to unlock vault")
	}
	defer zero(mnemonic)

	m := seed.NewManager()
	defer m.Clear()

	if err := m.Initialize(string(mnemonic), ""); err != nil {
		return nil, errors.Wrap(ErrVault, err.Error())
	}

	return m.GetSeed(), nil
}

func deriveAccounts(s []byte, count int) ([]common.Address, error) {
	result := make([]common.Address, 0, count)
	for i := 0; i < count; i++ {
		addr, err := address.DeriveAddress(s, address.BIP44Path(i))
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive address")
		}
		result = append(result, addr)
	}

	return result, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
