package signer

import (
	"context"

	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/transaction"
	"github/keyless/go-connector/internal/wallet/vault"
)

// CodeUserRejected is the provider error code for user cancellations and unauthorized calls.
const CodeUserRejected = 4200

var (
	// ErrUserRejected settles a pending request the user cancelled.
	ErrUserRejected = errors.New("User rejected the transaction")
	// ErrPendingBusy is returned when a request of the same kind is already pending.
	ErrPendingBusy = errors.New("another request is already pending")
	// ErrNoPending is returned when there is no pending request to act on.
	ErrNoPending = errors.New("no pending request")
)

// State of the signing state machine.
type State string

const (
	StateIdle        State = "idle"
	StateAwaitingPin State = "awaitingPin"
	StateRestoring   State = "restoring"
	StateSigning     State = "signing"
	StateSigned      State = "signed"
	StateFailed      State = "failed"
)

// SignedTransaction is a hex encoded, serialized signed transaction.
type SignedTransaction string

// SessionSource gives the dispatcher read access to the session and the loaded vault.
type SessionSource interface {
	// Snapshot returns a copy of the session; the caller zeroes its decryption key.
	Snapshot(ctx context.Context) (*session.Session, error)

	// Gateway returns the keyring of the loaded vault.
	Gateway() (vault.Gateway, error)

	// RecordError stores the message as the session's last error.
	RecordError(ctx context.Context, message string) error
}

// Backends resolves the chain client of a chain id.
type Backends interface {
	Get(ctx context.Context, chainID int64) (rpc.Backend, error)
}

// Service is the PIN gated signing dispatcher.
type Service interface {
	State() State

	// CheckPin never fails; errors collapse to false
	CheckPin(ctx context.Context, pin string) bool

	// Sign restores the keyring with the PIN, then signs with the strategy of the chain family
	Sign(ctx context.Context, rawTx *transaction.RawTransaction, pin string, chainID int64) (SignedTransaction, error)

	BeginTransaction(ctx context.Context, req *transaction.Request) (*PendingTransaction, error)
	PendingTransaction() (*PendingTransaction, bool)
	SetGas(gasLimit string, maxFeePerGas string, maxPriorityFeePerGas string) error
	ConfirmTransaction(ctx context.Context, pin string) (string, error)

	BeginSignRequest(ctx context.Context, data string, address string) (*PendingSignRequest, error)
	PendingSignRequest() (*PendingSignRequest, bool)
	SignRequestData() (string, error)
	ConfirmSignRequest(ctx context.Context, pin string) (string, error)

	// RejectPending settles every pending request with ErrUserRejected
	RejectPending(ctx context.Context) error

	// TransactionHashes lists the hashes submitted by this process, oldest first
	TransactionHashes() []string
}
