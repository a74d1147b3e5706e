package broadcast

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrBroadcast 表示交易提交或回执查询失败
var ErrBroadcast = errors.New("broadcast error")

// Kind 广播事件类型
type Kind int

const (
	KindHash Kind = iota
	KindReceipt
	KindConfirmation
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindHash:
		return "hash"
	case KindReceipt:
		return "receipt"
	case KindConfirmation:
		return "confirmation"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event 广播过程中的单个通知
type Event struct {
	Kind          Kind
	Hash          common.Hash
	Receipt       *types.Receipt
	Confirmations uint64
	Err           error
}

func HashEvent(hash common.Hash) Event {
	return Event{Kind: KindHash, Hash: hash}
}

func ReceiptEvent(receipt *types.Receipt) Event {
	return Event{Kind: KindReceipt, Hash: receipt.TxHash, Receipt: receipt}
}

func ConfirmationEvent(receipt *types.Receipt, confirmations uint64) Event {
	return Event{Kind: KindConfirmation, Hash: receipt.TxHash, Receipt: receipt, Confirmations: confirmations}
}

func ErrorEvent(err error) Event {
	return Event{Kind: KindError, Err: err}
}

// Status 最终结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome 每笔交易只产生一次的最终结果
type Outcome struct {
	Status  Status         `json:"status"`
	Hash    common.Hash    `json:"hash"`
	Receipt *types.Receipt `json:"receipt,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
