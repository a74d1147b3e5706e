package config_test

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestServiceEnvHidesSecrets(t *testing.T) {
	t.Setenv("KEYLESS_SESSION_SECRET", "super-secret")
	t.Setenv("KEYLESS_SESSION_BACKEND", "Redis")

	cfg := config.DefaultServiceConfigFromEnv()
	assert.Equal(t, "super-secret", cfg.Session.Secret)
	assert.Equal(t, "redis", cfg.Session.Backend)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret")
}

func TestParseRPCOverrides(t *testing.T) {
	overrides := config.ParseRPCOverrides(" 1=https://eth.example ,137=https://polygon.example,broken,abc=https://x,5=")

	assert.Equal(t, map[int64]string{
		1:   "https://eth.example",
		137: "https://polygon.example",
	}, overrides)

	assert.Empty(t, config.ParseRPCOverrides(""))
}

func TestEchoServerValidate(t *testing.T) {
	t.Setenv("KEYLESS_SERVER_LISTEN_ADDRESS", "")
	assert.Equal(t, "127.0.0.1:8080", config.DefaultServiceConfigFromEnv().Echo.ListenAddress)

	for _, addr := range []string{"127.0.0.1:8080", "localhost:8080", "[::1]:8080"} {
		assert.NoError(t, config.EchoServer{ListenAddress: addr}.Validate(), addr)
	}

	for _, addr := range []string{":8080", "0.0.0.0:8080", "192.168.1.10:8080"} {
		err := config.EchoServer{ListenAddress: addr}.Validate()
		assert.True(t, errors.Is(err, config.ErrUnguardedListen), addr)
		assert.NoError(t, config.EchoServer{ListenAddress: addr, AuthToken: "secret"}.Validate(), addr)
	}

	assert.Error(t, config.EchoServer{ListenAddress: "nope"}.Validate())
}
