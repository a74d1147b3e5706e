package vault

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/wallet/transaction"
)

// ErrVault covers invalid PINs, restore failures and signing failures inside the vault.
var ErrVault = errors.New("vault error")

// Gateway is the keyring capability the connector signs through.
type Gateway interface {
	// GetAccounts lists the vault accounts, unlocked with the decryption key
	GetAccounts(ctx context.Context, decryptionKey []byte) ([]common.Address, error)

	// ValidatePin never unlocks anything
	ValidatePin(ctx context.Context, pin string) (bool, error)

	// RestoreKeyringState unlocks the keyring; must precede every signing call
	RestoreKeyringState(ctx context.Context, vault string, pin string, decryptionKey []byte) error

	// ChangeNetwork switches the signing context ("ethereum" or "polygon")
	ChangeNetwork(ctx context.Context, network string) error

	// SignTransaction returns the hex encoded signed transaction
	SignTransaction(ctx context.Context, rawTx *transaction.RawTransaction, pin string, rpcURL string) (string, error)

	// ExportPrivateKey returns the raw key of an account
	// WARNING: Caller must clear the private key after use
	ExportPrivateKey(ctx context.Context, address common.Address, pin string) ([]byte, error)

	// Sign signs a personal message and returns the hex signature
	Sign(ctx context.Context, data []byte, address common.Address, pin string, rpcURL string) (string, error)

	// Lock drops unlocked key material
	Lock()
}

// Factory opens a gateway over an encrypted vault blob.
type Factory func(blob string) (Gateway, error)
