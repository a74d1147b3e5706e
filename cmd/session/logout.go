package session

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/util/command"
)

func NewLogout() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clears the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithServer(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, s *api.Server) error {
				if err := s.Wallet.Logout(ctx); err != nil {
					return err
				}

				log.Info().Msg("Logged out")

				return nil
			})
		},
	}
}
