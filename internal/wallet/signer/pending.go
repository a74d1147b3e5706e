package signer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github/keyless/go-connector/internal/wallet/transaction"
)

type result struct {
	value string
	err   error
}

// settlement resolves exactly once.
type settlement struct {
	once sync.Once
	done chan result
}

func newSettlement() *settlement {
	return &settlement{done: make(chan result, 1)}
}

func (s *settlement) settle(value string, err error) bool {
	settled := false
	s.once.Do(func() {
		s.done <- result{value: value, err: err}
		settled = true
	})

	return settled
}

func (s *settlement) wait(ctx context.Context) (string, error) {
	select {
	case r := <-s.done:
		s.done <- r
		return r.value, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// PendingTransaction is the single transaction waiting for the user's PIN.
type PendingTransaction struct {
	ID      string               `json:"id"`
	ChainID int64                `json:"chainId"`
	Request *transaction.Request `json:"request"`

	*settlement
	confirming bool
}

func newPendingTransaction(req *transaction.Request, chainID int64) *PendingTransaction {
	return &PendingTransaction{
		ID:         uuid.NewString(),
		ChainID:    chainID,
		Request:    req,
		settlement: newSettlement(),
	}
}

// Wait blocks until the transaction is submitted, rejected or fails, and returns its hash.
func (p *PendingTransaction) Wait(ctx context.Context) (string, error) {
	return p.wait(ctx)
}

func (p *PendingTransaction) view() *PendingTransaction {
	req := *p.Request

	return &PendingTransaction{ID: p.ID, ChainID: p.ChainID, Request: &req, settlement: p.settlement}
}

// PendingSignRequest is the single message waiting for the user's PIN.
type PendingSignRequest struct {
	ID      string `json:"id"`
	ChainID int64  `json:"chainId"`
	Data    string `json:"data"`
	Address string `json:"address"`

	*settlement
	confirming bool
}

func newPendingSignRequest(data string, address string, chainID int64) *PendingSignRequest {
	return &PendingSignRequest{
		ID:         uuid.NewString(),
		ChainID:    chainID,
		Data:       data,
		Address:    address,
		settlement: newSettlement(),
	}
}

// Wait blocks until the request is signed, rejected or fails, and returns the signature.
func (p *PendingSignRequest) Wait(ctx context.Context) (string, error) {
	return p.wait(ctx)
}

func (p *PendingSignRequest) view() *PendingSignRequest {
	return &PendingSignRequest{ID: p.ID, ChainID: p.ChainID, Data: p.Data, Address: p.Address, settlement: p.settlement}
}
