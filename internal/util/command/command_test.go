package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/test"
	"github/keyless/go-connector/internal/util/command"
)

func TestWithServer(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		ctx := t.Context()

		var testError = errors.New("test error")

		s.Config.Logger.PrettyPrintConsole = false
		resultErr := command.WithServer(ctx, s.Config, func(ctx context.Context, s *api.Server) error {
			assert.True(t, s.Ready())
			assert.False(t, s.Wallet.IsLoggedIn())

			chains := s.Chains.List()
			require.NotEmpty(t, chains)

			return testError
		})

		assert.Equal(t, testError, resultErr)
	})
}

func TestNewSubcommandGroup(t *testing.T) {
	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}

	cmd := command.NewSubcommandGroup("group", child)
	assert.Equal(t, "group <subcommand>", cmd.Use)
	require.Len(t, cmd.Commands(), 1)
	assert.Equal(t, "child", cmd.Commands()[0].Name())
}
