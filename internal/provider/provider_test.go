package provider_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/events"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/provider"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/wallet"
	"github/keyless/go-connector/internal/wallet/balance"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/keystore"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/signer"
	"github/keyless/go-connector/internal/wallet/vault"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPin      = "1234"
	toAddr       = "0x6fC21092DA55B392b045eD78F4732bff3C580e2c"
)

var (
	decKey   = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	account0 = common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
)

type backend struct {
	rpc.Backend
	mu   sync.Mutex
	sent []*types.Transaction
}

func (b *backend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (b *backend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) { return 4, nil }

func (b *backend) NonceAt(_ context.Context, _ common.Address, _ *big.Int) (uint64, error) {
	return 3, nil
}

func (b *backend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

func (b *backend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("execution reverted")
}

func (b *backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent = append(b.sent, tx)
	return nil
}

func (b *backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tx := range b.sent {
		if tx.Hash() == hash {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}, nil
		}
	}

	return nil, ethereum.NotFound
}

func (b *backend) BlockNumber(_ context.Context) (uint64, error) { return 1, nil }

type backends struct{ b *backend }

//nolint:ireturn
func (f backends) Get(_ context.Context, _ int64) (rpc.Backend, error) { return f.b, nil }

type fixture struct {
	store    *session.MemoryStore
	wallet   wallet.Service
	signer   signer.Service
	backend  *backend
	provider *provider.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	m, err := metrics.New(config.Server{})
	require.NoError(t, err)

	registry := chain.NewRegistry(chain.DefaultChains())
	bus := events.NewBus()

	f := &fixture{
		store:   session.NewMemoryStore(),
		backend: &backend{},
	}

	resolver := func(_ context.Context, _ string) (*big.Int, error) { return big.NewInt(1), nil }
	f.wallet = wallet.NewService(f.store, nil, vault.NewKeyringFactory(resolver), registry, bus, m, config.ChainsServer{DefaultChainID: 1})
	f.signer = signer.NewDispatcher(f.wallet, registry, backends{b: f.backend}, bus, m, config.BroadcastServer{PollInterval: time.Millisecond}, time2.DefaultClock)
	f.provider = provider.New(f.wallet, f.signer, balance.NewService(backends{b: f.backend}), backends{b: f.backend}, bus, m)
	f.provider.Connect()

	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()

	blob, err := vault.Create(testMnemonic, decKey, testPin, 1, keystore.LightScryptParams())
	require.NoError(t, err)

	require.NoError(t, f.store.Save(t.Context(), &session.Session{
		Vault:         blob,
		DecryptionKey: append(session.DecryptionKey(nil), decKey...),
		SafleID:       "alice",
		ChainID:       1,
	}))
	require.NoError(t, f.wallet.Resume(t.Context()))
}

func request(t *testing.T, p *provider.Provider, method string, params ...any) (any, *provider.RPCError) {
	t.Helper()

	req, err := provider.NewRequest(method, params...)
	require.NoError(t, err)

	return p.Request(t.Context(), req)
}

func TestMissingMethod(t *testing.T) {
	f := newFixture(t)

	_, rpcErr := f.provider.Request(t.Context(), provider.Request{})
	require.NotNil(t, rpcErr)
	assert.Equal(t, "Method not described", rpcErr.Message)
}

func TestNotConnected(t *testing.T) {
	f := newFixture(t)
	f.provider.Disconnect()
	assert.False(t, f.provider.IsConnected())

	_, rpcErr := request(t, f.provider, "eth_chainId")
	require.NotNil(t, rpcErr)
	assert.Equal(t, "Provider not connected", rpcErr.Message)
}

func TestPrivilegedMethodsRequireLogin(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{
		"eth_request", "eth_accounts", "eth_requestAccounts", "personal_listAccounts",
		"eth_getBalance", "eth_sendTransaction", "eth_getTransactionCount",
		"eth_getBlockByNumber", "eth_sign", "personal_sign",
	} {
		t.Run(method, func(t *testing.T) {
			_, rpcErr := request(t, f.provider, method)
			require.NotNil(t, rpcErr)
			assert.Equal(t, provider.CodeUnauthorized, rpcErr.Code)
			assert.Equal(t, "Please login in order to use keyless", rpcErr.Message)
			assert.Equal(t, "Unauthorized", rpcErr.Method)
		})
	}

	_, ok := f.signer.PendingTransaction()
	assert.False(t, ok)
}

func TestUnknownMethodIsNoop(t *testing.T) {
	f := newFixture(t)

	result, rpcErr := request(t, f.provider, "wallet_watchAsset")
	assert.Nil(t, rpcErr)
	assert.Nil(t, result)
	assert.False(t, f.provider.Supports("wallet_watchAsset"))
}

func TestChainQueriesWithoutLogin(t *testing.T) {
	f := newFixture(t)

	result, rpcErr := request(t, f.provider, "eth_chainId")
	require.Nil(t, rpcErr)
	assert.Equal(t, hexutil.Uint64(1), result)

	result, rpcErr = request(t, f.provider, "net_version")
	require.Nil(t, rpcErr)
	assert.Equal(t, "1", result)

	result, rpcErr = request(t, f.provider, "eth_gasPrice")
	require.Nil(t, rpcErr)
	assert.Equal(t, "0x6fc23ac00", result.(*hexutil.Big).String())

	result, rpcErr = request(t, f.provider, "eth_getTransactionReceipt", common.Hash{1}.Hex())
	assert.Nil(t, rpcErr)
	assert.Nil(t, result)
}

func TestEstimateGasFallback(t *testing.T) {
	f := newFixture(t)

	result, rpcErr := request(t, f.provider, "eth_estimateGas", map[string]any{"to": toAddr, "value": "0x1"})
	require.Nil(t, rpcErr)
	assert.Equal(t, hexutil.Uint64(provider.FallbackGas), result)
}

func TestAccountQueries(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	result, rpcErr := request(t, f.provider, "eth_accounts")
	require.Nil(t, rpcErr)
	assert.Equal(t, []string{account0.Hex()}, result)

	result, rpcErr = request(t, f.provider, "eth_getBalance", account0.Hex(), "latest")
	require.Nil(t, rpcErr)
	assert.Equal(t, "0xf4240", result.(*hexutil.Big).String())

	result, rpcErr = request(t, f.provider, "eth_getTransactionCount", account0.Hex(), "pending")
	require.Nil(t, rpcErr)
	assert.Equal(t, hexutil.Uint64(4), result)

	result, rpcErr = request(t, f.provider, "eth_getTransactionCount", account0.Hex(), "latest")
	require.Nil(t, rpcErr)
	assert.Equal(t, hexutil.Uint64(3), result)

	_, rpcErr = request(t, f.provider, "eth_getBalance")
	require.NotNil(t, rpcErr)
	assert.Equal(t, provider.CodeInvalidParams, rpcErr.Code)
}

// waitPending blocks until the dispatcher holds a pending transaction.
func waitPending(t *testing.T, s signer.Service) {
	t.Helper()

	require.Eventually(t, func() bool {
		_, ok := s.PendingTransaction()
		return ok
	}, 5*time.Second, time.Millisecond)
}

func TestSendTransaction(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	ch := make(chan events.Event, 10)
	sub := f.provider.Events(ch)
	defer sub.Unsubscribe()

	type answer struct {
		result any
		err    *provider.RPCError
	}
	done := make(chan answer, 1)

	go func() {
		req, err := provider.NewRequest("eth_sendTransaction", map[string]any{
			"from":                 account0.Hex(),
			"to":                   toAddr,
			"value":                "0x1",
			"gas":                  "21000",
			"maxFeePerGas":         "50",
			"maxPriorityFeePerGas": "2",
		})
		if err != nil {
			done <- answer{err: &provider.RPCError{Message: err.Error()}}
			return
		}
		result, rpcErr := f.provider.Request(context.Background(), req)
		done <- answer{result: result, err: rpcErr}
	}()

	waitPending(t, f.signer)

	hash, err := f.signer.ConfirmTransaction(t.Context(), testPin)
	require.NoError(t, err)

	got := <-done
	require.Nil(t, got.err)
	assert.Equal(t, hash, got.result)

	select {
	case ev := <-ch:
		assert.Equal(t, events.TransactionSubmitted, ev.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no submitted event")
	}
}

func TestSendTransactionRejected(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	done := make(chan *provider.RPCError, 1)
	go func() {
		req, _ := provider.NewRequest("eth_sendTransaction", map[string]any{"to": toAddr, "value": "0x1"})
		_, rpcErr := f.provider.Request(context.Background(), req)
		done <- rpcErr
	}()

	waitPending(t, f.signer)
	require.NoError(t, f.signer.RejectPending(t.Context()))

	rpcErr := <-done
	require.NotNil(t, rpcErr)
	assert.Equal(t, signer.CodeUserRejected, rpcErr.Code)
	assert.Equal(t, "User rejected the transaction", rpcErr.Message)
	assert.Equal(t, "eth_sendTransaction", rpcErr.Method)
}

func TestSendTransactionInvalidAttribute(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, rpcErr := request(t, f.provider, "eth_sendTransaction", map[string]any{"to": toAddr, "foo": "bar"})
	require.NotNil(t, rpcErr)
	assert.Equal(t, provider.CodeInvalidParams, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, `Invalid transaction attribute "foo"`)

	_, ok := f.signer.PendingTransaction()
	assert.False(t, ok)
}

func TestPersonalSign(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	message := []byte("hello keyless")
	done := make(chan any, 1)
	go func() {
		req, _ := provider.NewRequest("personal_sign", hexutil.Encode(message), account0.Hex())
		result, rpcErr := f.provider.Request(context.Background(), req)
		if rpcErr != nil {
			done <- rpcErr
			return
		}
		done <- result
	}()

	require.Eventually(t, func() bool {
		_, ok := f.signer.PendingSignRequest()
		return ok
	}, 5*time.Second, time.Millisecond)

	text, err := f.signer.SignRequestData()
	require.NoError(t, err)
	assert.Equal(t, "hello keyless", text)

	_, err = f.signer.ConfirmSignRequest(t.Context(), testPin)
	require.NoError(t, err)

	result := <-done
	signature, ok := result.(string)
	require.True(t, ok, "unexpected result %v", result)

	sig, err := hexutil.Decode(signature)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	sig[64] -= 27

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	require.NoError(t, err)
	assert.Equal(t, account0, crypto.PubkeyToAddress(*pub))
}

func TestChainIDFollowsSwitch(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	_, err := f.wallet.SwitchNetwork(t.Context(), 137)
	require.NoError(t, err)

	result, rpcErr := request(t, f.provider, "eth_chainId")
	require.Nil(t, rpcErr)
	assert.Equal(t, hexutil.Uint64(137), result)
}
