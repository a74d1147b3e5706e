package broadcast

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/util"
)

const defaultPollInterval = 2 * time.Second

// Backend 提交交易并查询回执所需的链上能力
type Backend interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Submitter 发送已签名交易并把过程转换为事件流
type Submitter struct {
	backend       Backend
	pollInterval  time.Duration
	confirmations uint64
}

func NewSubmitter(backend Backend, pollInterval time.Duration, confirmations uint64) *Submitter {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Submitter{
		backend:       backend,
		pollInterval:  pollInterval,
		confirmations: confirmations,
	}
}

// Submit 发送交易，依次发出 hash、receipt、confirmation 事件，出错时发出 error 事件；结束后关闭通道
func (s *Submitter) Submit(ctx context.Context, signedTx string) <-chan Event {
	events := make(chan Event, 1)

	go func() {
		defer close(events)
		s.run(ctx, signedTx, events)
	}()

	return events
}

func (s *Submitter) run(ctx context.Context, signedTx string, events chan<- Event) {
	log := util.LogFromContext(ctx)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	raw, err := hexutil.Decode(signedTx)
	if err != nil {
		emit(ErrorEvent(errors.Wrapf(ErrBroadcast, "invalid signed transaction: %v", err)))
		return
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		emit(ErrorEvent(errors.Wrapf(ErrBroadcast, "failed to decode signed transaction: %v", err)))
		return
	}

	if err := s.backend.SendTransaction(ctx, &tx); err != nil {
		log.Warn().Err(err).Str("tx_hash", tx.Hash().Hex()).Msg("Failed to send transaction")
		emit(ErrorEvent(errors.Wrap(ErrBroadcast, err.Error())))
		return
	}

	if !emit(HashEvent(tx.Hash())) {
		return
	}

	receipt, err := s.waitForReceipt(ctx, tx.Hash())
	if err != nil {
		emit(ErrorEvent(errors.Wrap(ErrBroadcast, err.Error())))
		return
	}

	if !emit(ReceiptEvent(receipt)) {
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful || s.confirmations == 0 || receipt.BlockNumber == nil {
		return
	}

	s.waitForConfirmations(ctx, receipt, emit)
}

func (s *Submitter) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}

		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "context canceled while waiting for receipt")
		case <-ticker.C:
			continue
		}
	}
}

func (s *Submitter) waitForConfirmations(ctx context.Context, receipt *types.Receipt, emit func(Event) bool) {
	log := util.LogFromContext(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	included := receipt.BlockNumber.Uint64()
	var seen uint64

	for {
		head, err := s.backend.BlockNumber(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to get block number while counting confirmations")
		} else if head >= included {
			confirmations := head - included + 1
			if confirmations > seen {
				seen = confirmations
				if !emit(ConfirmationEvent(receipt, confirmations)) {
					return
				}
			}
			if confirmations >= s.confirmations {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			continue
		}
	}
}
