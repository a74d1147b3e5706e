package test

import (
	"context"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/router"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/session"
)

// WithTestServer runs closure against a fully wired server backed by an in-memory session,
// the test cloud and the test chain backend. The server is shut down afterwards.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerConfigurable(t, DefaultTestConfig(), closure)
}

func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server)) {
	t.Helper()

	s := NewTestServer(t, cfg, NewCloud(t), NewBackend())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if errs := s.Shutdown(ctx); len(errs) > 0 {
			t.Logf("Failed to shutdown test server: %v", errs)
		}
	}()

	closure(s)
}

// NewTestServer wires a server with the given cloud and backend on a time2.MockClock.
// The provider is connected, the echo server is not started.
func NewTestServer(t *testing.T, cfg config.Server, cloud *Cloud, backend *Backend) *api.Server {
	t.Helper()

	s, err := api.InitNewServerWithComponents(cfg, session.NewMemoryStore(), cloud, backend.Dialer(), time2.NewMockClock(time.Now()))
	require.NoError(t, err, "Failed to init test server")

	router.Init(s)
	s.Provider.Connect()

	return s
}

// DefaultTestConfig returns the env config with fast broadcast polling and no persisted session.
// The API token and the PIN attempt limit are off.
func DefaultTestConfig() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Echo.AuthToken = ""
	cfg.Echo.PinAttemptsPerMinute = 0
	cfg.Session.Backend = "memory"
	cfg.Chains.File = ""
	cfg.Chains.DefaultChainID = 1
	cfg.Chains.RPCOverrides = nil
	cfg.Broadcast.PollInterval = time.Millisecond
	cfg.Broadcast.Confirmations = 1
	cfg.Management.EnableMetrics = true

	return cfg
}
