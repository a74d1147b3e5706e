package wallet

import (
	"context"

	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/vault"
)

var (
	// ErrEmptyVault is fatal for the session: the vault decrypted but holds no accounts.
	ErrEmptyVault = errors.Wrap(vault.ErrVault, "empty vault")
	// ErrNotLoggedIn is returned by operations that need a loaded vault.
	ErrNotLoggedIn = errors.New("Please login in order to use keyless")
	// ErrWalletIndex is returned when switching to a wallet the vault does not have.
	ErrWalletIndex = errors.New("wallet index out of range")
)

// State of the session lifecycle. Only Logout moves backwards.
type State string

const (
	StateLoggedOut       State = "loggedOut"
	StateLoggingIn       State = "loggingIn"
	StateLoggedIn        State = "loggedIn"
	StateVaultLoading    State = "vaultLoading"
	StateVaultReady      State = "vaultReady"
	StateVaultLoadFailed State = "vaultLoadFailed"
)

// Wallet is one account of the loaded vault.
type Wallet struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
}

// Status is the public view of the session; it never carries key material.
type Status struct {
	State        State    `json:"state"`
	SafleID      string   `json:"safleId,omitempty"`
	IsMobile     bool     `json:"isMobile"`
	ChainID      int64    `json:"chainId,omitempty"`
	ActiveWallet int      `json:"activeWallet"`
	Accounts     []Wallet `json:"accounts"`
	LastError    string   `json:"lastError,omitempty"`
}

// CloudClient is the identity and vault cloud API.
type CloudClient interface {
	VaultStorageStatus(ctx context.Context, safleID string) (bool, error)
	Login(ctx context.Context, safleID string, pdKeyHash string, captcha string) (string, error)
	RetrieveVault(ctx context.Context, pdKeyHash string, token string) (string, error)
	RetrieveEncryptionKey(ctx context.Context, pdKeyHash string, token string) ([]byte, error)
}

// Service owns login, logout and vault loading. It is the only writer of the session.
type Service interface {
	// Login authenticates against the cloud, persists the session and loads the vault
	// WARNING: Caller must zero the returned decryption key
	Login(ctx context.Context, safleID string, password string, captcha string) (*session.Session, error)

	// Resume loads the vault of an already persisted session
	Resume(ctx context.Context) error

	// LoadVault reads the session and populates the wallet list
	LoadVault(ctx context.Context) error

	// Logout clears the session unconditionally
	Logout(ctx context.Context) error

	SwitchNetwork(ctx context.Context, chainID int64) (*chain.Config, error)
	SwitchWallet(ctx context.Context, index int) (*Wallet, error)

	// Accounts returns every vault address when all is set, else only the active one
	Accounts(all bool) []string
	ActiveAccount() (string, error)
	ActiveChain(ctx context.Context) (*chain.Config, error)

	IsLoggedIn() bool
	IsMobileVault(ctx context.Context) bool
	State() State
	Status(ctx context.Context) (*Status, error)

	// Snapshot returns a copy of the session; the caller zeroes its decryption key
	Snapshot(ctx context.Context) (*session.Session, error)
	Gateway() (vault.Gateway, error)
	RecordError(ctx context.Context, message string) error
}
