package api

import (
	"context"
	"math/big"

	"github.com/dropbox/godropbox/time2"
	"github/keyless/go-connector/internal/cloud"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/events"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/provider"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/wallet"
	"github/keyless/go-connector/internal/wallet/balance"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/signer"
	"github/keyless/go-connector/internal/wallet/vault"
)

// PROVIDERS - https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

// NewClock returns the wall clock. Tests hand a time2.MockClock to InitNewServerWithComponents instead.
//
//nolint:ireturn
func NewClock() time2.Clock {
	return time2.DefaultClock
}

// NewSessionStore returns the session backend selected by config.
//
//nolint:ireturn
func NewSessionStore(cfg config.Server) (session.Store, error) {
	return session.NewStoreFromConfig(cfg.Session)
}

// NewCloudClient returns the cloud API client.
//
//nolint:ireturn
func NewCloudClient(cfg config.Server) wallet.CloudClient {
	return cloud.NewClient(cfg.Cloud)
}

// NewDialer returns the go-ethereum backed chain client dialer.
func NewDialer() rpc.Dialer {
	return rpc.DialClient
}

//nolint:ireturn
func NewChainRegistry(cfg config.Server) (chain.Registry, error) {
	return chain.NewRegistryFromConfig(cfg.Chains)
}

func NewBackendPool(chains chain.Registry, dial rpc.Dialer) *rpc.Pool {
	return rpc.NewPool(chains, dial)
}

// NewVaultFactory opens local keyrings which ask the chain for its id through dial.
func NewVaultFactory(dial rpc.Dialer) vault.Factory {
	return vault.NewKeyringFactory(func(ctx context.Context, rpcURL string) (*big.Int, error) {
		backend, err := dial(ctx, chain.ParseRPCURLs(rpcURL))
		if err != nil {
			return nil, err
		}
		if closer, ok := backend.(interface{ Close() }); ok {
			defer closer.Close()
		}

		return backend.ChainID(ctx)
	})
}

func NewBus() *events.Bus {
	return events.NewBus()
}

//nolint:ireturn
func NewWalletService(
	cfg config.Server,
	store session.Store,
	cloudClient wallet.CloudClient,
	openVault vault.Factory,
	chains chain.Registry,
	bus *events.Bus,
	m *metrics.Service,
) WalletService {
	return wallet.NewService(store, cloudClient, openVault, chains, bus, m, cfg.Chains)
}

//nolint:ireturn
func NewSignerService(
	cfg config.Server,
	sessions WalletService,
	chains chain.Registry,
	backends *rpc.Pool,
	bus *events.Bus,
	m *metrics.Service,
	clock time2.Clock,
) SignerService {
	return signer.NewDispatcher(sessions, chains, backends, bus, m, cfg.Broadcast, clock)
}

//nolint:ireturn
func NewBalanceService(backends *rpc.Pool) BalanceService {
	return balance.NewService(backends)
}

func NewProvider(
	sessions WalletService,
	signerService SignerService,
	balances BalanceService,
	backends *rpc.Pool,
	bus *events.Bus,
	m *metrics.Service,
) *provider.Provider {
	return provider.New(sessions, signerService, balances, backends, bus, m)
}
