//go:build wireinject

package api

import (
	"github.com/dropbox/godropbox/time2"
	"github.com/google/wire"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/wallet"
	"github/keyless/go-connector/internal/wallet/rpc"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	metrics.New,
	NewBus,
	NewChainRegistry,
	NewBackendPool,
	NewVaultFactory,
	NewWalletService,
	NewSignerService,
	NewBalanceService,
	NewProvider,
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, NewSessionStore, NewCloudClient, NewDialer, NewClock)
	return new(Server), nil
}

// InitNewServerWithComponents returns a new Server instance with the given session store,
// cloud client, chain dialer and clock. All the other components are initialized via go wire
// according to the configuration.
func InitNewServerWithComponents(
	_ config.Server,
	_ session.Store,
	_ wallet.CloudClient,
	_ rpc.Dialer,
	_ time2.Clock,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
