package test

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github/keyless/go-connector/internal/wallet/rpc"
)

// Backend is an in-memory chain. Submitted transactions are mined into block 1 immediately.
type Backend struct {
	mu sync.Mutex

	ChainIDValue int64
	Balance      *big.Int
	Sent         []*types.Transaction
}

var _ rpc.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{
		ChainIDValue: 1,
		Balance:      big.NewInt(1_500_000_000_000_000_000),
	}
}

// Dialer hands out b for every chain.
func (b *Backend) Dialer() rpc.Dialer {
	return func(_ context.Context, _ []string) (rpc.Backend, error) {
		return b, nil
	}
}

// SentTransactions returns a copy of the submitted transactions.
func (b *Backend) SentTransactions() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]*types.Transaction(nil), b.Sent...)
}

func (b *Backend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return new(big.Int).Set(b.Balance), nil
}

func (b *Backend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return uint64(len(b.Sent)), nil
}

func (b *Backend) NonceAt(ctx context.Context, addr common.Address, _ *big.Int) (uint64, error) {
	return b.PendingNonceAt(ctx, addr)
}

func (b *Backend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

func (b *Backend) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_500_000_000), nil
}

func (b *Backend) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if number == nil {
		number = big.NewInt(100)
	}

	return &types.Header{Number: number, BaseFee: big.NewInt(20_000_000_000), Difficulty: big.NewInt(0)}, nil
}

func (b *Backend) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	header, err := b.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	return types.NewBlockWithHeader(header), nil
}

func (b *Backend) BlockNumber(_ context.Context) (uint64, error) {
	return 100, nil
}

func (b *Backend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (b *Backend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Sent = append(b.Sent, tx)

	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tx := range b.Sent {
		if tx.Hash() == hash {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}, nil
		}
	}

	return nil, ethereum.NotFound
}

func (b *Backend) ChainID(_ context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return big.NewInt(b.ChainIDValue), nil
}
