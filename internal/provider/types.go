package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/signer"
	"github/keyless/go-connector/internal/wallet/transaction"
)

const (
	// CodeUnauthorized is returned to hosts calling privileged methods without a loaded vault.
	CodeUnauthorized = signer.CodeUserRejected
	// CodeInvalidParams mirrors the JSON-RPC invalid params code.
	CodeInvalidParams = -32602
	// CodeInternal mirrors the JSON-RPC internal error code.
	CodeInternal = -32603

	// FallbackGas is the gas estimate returned when the node cannot estimate.
	FallbackGas = 21000

	methodUnauthorized = "Unauthorized"
)

var (
	// ErrMissingMethod is returned for requests without a method name.
	ErrMissingMethod = errors.New("Method not described")
	// ErrNotConnected is returned while the provider is disconnected.
	ErrNotConnected = errors.New("Provider not connected")
	// ErrUnauthorized is returned by privileged methods while no vault is loaded.
	ErrUnauthorized = errors.New("Please login in order to use keyless")
	// ErrInvalidParams is returned when the request params do not decode.
	ErrInvalidParams = errors.New("invalid params")
)

// Request is a provider call as issued by the host. Params holds the raw JSON params array.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest marshals params into a request.
func NewRequest(method string, params ...any) (Request, error) {
	if params == nil {
		params = []any{}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, errors.Wrap(err, "failed to marshal params")
	}

	return Request{Method: method, Params: raw}, nil
}

// RPCError is the structured error handed back to the host.
type RPCError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Method  string `json:"method,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Sessions is the read side of the session manager.
type Sessions interface {
	IsLoggedIn() bool
	ActiveAccount() (string, error)
	ActiveChain(ctx context.Context) (*chain.Config, error)
}

// Balances looks up native balances.
type Balances interface {
	GetBalance(ctx context.Context, chainID int64, address string, block *big.Int) (*big.Int, error)
}

// Backends resolves the chain client of a chain id.
type Backends interface {
	Get(ctx context.Context, chainID int64) (rpc.Backend, error)
}

// toRPCError maps domain errors onto provider error codes.
func toRPCError(method string, err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return &RPCError{Message: ErrUnauthorized.Error(), Code: CodeUnauthorized, Method: methodUnauthorized}
	case errors.Is(err, signer.ErrUserRejected):
		return &RPCError{Message: signer.ErrUserRejected.Error(), Code: signer.CodeUserRejected, Method: method}
	case errors.Is(err, ErrInvalidParams), errors.Is(err, transaction.ErrValidation):
		return &RPCError{Message: err.Error(), Code: CodeInvalidParams, Method: method}
	default:
		return &RPCError{Message: err.Error(), Code: CodeInternal, Method: method}
	}
}
