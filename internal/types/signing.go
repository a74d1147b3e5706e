package types

import (
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/wallet/transaction"
)

// PostGasPayload post gas payload
type PostGasPayload struct {

	// gas limit, hex or decimal
	GasLimit string `json:"gasLimit,omitempty"`

	// max fee per gas in gwei, or hex wei
	MaxFeePerGas string `json:"maxFeePerGas,omitempty"`

	// max priority fee per gas in gwei, or hex wei
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

func (m *PostGasPayload) Validate() error {
	if m.GasLimit == "" && m.MaxFeePerGas == "" && m.MaxPriorityFeePerGas == "" {
		return errors.New("at least one of gasLimit, maxFeePerGas or maxPriorityFeePerGas is required")
	}

	return nil
}

// PendingTransactionResponse pending transaction response
type PendingTransactionResponse struct {
	ID      string               `json:"id"`
	ChainID int64                `json:"chainId"`
	Request *transaction.Request `json:"request"`
}

// PendingSignRequestResponse pending sign request response
type PendingSignRequestResponse struct {
	ID      string `json:"id"`
	ChainID int64  `json:"chainId"`
	Address string `json:"address"`
	Data    string `json:"data"`

	// utf-8 preview of data
	Text string `json:"text"`
}

// TransactionHashResponse transaction hash response
type TransactionHashResponse struct {
	Hash        string `json:"hash"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

func (m *TransactionHashResponse) Validate() error {
	if m.Hash == "" {
		return errors.New("hash is required")
	}

	return nil
}

// SignatureResponse signature response
type SignatureResponse struct {
	Signature string `json:"signature"`
}

// TransactionHashesResponse transaction hashes response
type TransactionHashesResponse struct {
	Hashes []string `json:"hashes"`
}
