package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/events"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/provider"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet"
	"github/keyless/go-connector/internal/wallet/balance"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/signer"
)

// WalletService interface for session and vault operations
// Alias to wallet.Service for API access
type WalletService = wallet.Service

// SignerService interface for the PIN gated signing flow
// Alias to signer.Service for API access
type SignerService = signer.Service

// BalanceService interface for balance operations
// Alias to balance.Service for API access
type BalanceService = balance.Service

type Router struct {
	Routes           []*echo.Route
	Root             *echo.Group
	Management       *echo.Group
	RPC              *echo.Group
	APIV1Session     *echo.Group
	APIV1Chain       *echo.Group
	APIV1Wallet      *echo.Group
	APIV1Transaction *echo.Group
	APIV1Sign        *echo.Group
	APIV1Pin         *echo.Group

	// PinAttempts guards every route taking a PIN.
	PinAttempts echo.MiddlewareFunc
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config   config.Server
	Clock    time2.Clock
	Metrics  *metrics.Service
	Bus      *events.Bus
	Session  session.Store
	Chains   chain.Registry
	Backends *rpc.Pool
	Wallet   WalletService
	Signer   SignerService
	Balance  BalanceService
	Provider *provider.Provider
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	metrics *metrics.Service,
	bus *events.Bus,
	store session.Store,
	chains chain.Registry,
	backends *rpc.Pool,
	walletService WalletService,
	signerService SignerService,
	balanceService BalanceService,
	p *provider.Provider,
) *Server {
	return &Server{
		Config:   cfg,
		Clock:    clock,
		Metrics:  metrics,
		Bus:      bus,
		Session:  store,
		Chains:   chains,
		Backends: backends,
		Wallet:   walletService,
		Signer:   signerService,
		Balance:  balanceService,
		Provider: p,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

// Resume loads the vault of a session persisted by an earlier run. A missing session is not an error.
func (s *Server) Resume(ctx context.Context) error {
	if err := s.Wallet.Resume(ctx); err != nil && !errors.Is(err, wallet.ErrNotLoggedIn) {
		return err
	}

	return nil
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	s.Provider.Connect()

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Provider != nil {
		s.Provider.Disconnect()
	}

	if s.Signer != nil {
		log.Debug().Msg("Rejecting pending requests")

		if err := s.Signer.RejectPending(ctx); err != nil && !errors.Is(err, signer.ErrNoPending) {
			log.Error().Err(err).Msg("Failed to reject pending requests")
			errs = append(errs, err)
		}
	}

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Backends != nil {
		log.Debug().Msg("Closing chain clients")
		s.Backends.Close()
	}

	if closer, ok := s.Session.(interface{ Close() error }); ok {
		log.Debug().Msg("Closing session store")

		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close session store")
			errs = append(errs, err)
		}
	}

	return errs
}
