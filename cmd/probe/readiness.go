package probe

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/util/command"
)

const readinessTimeout = 10 * time.Second

func newReadiness() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `This command runs readiness probes.
Checks the server components and the RPC node of the active chain.
Exits 0 when all probes pass, 1 otherwise.`,
		Run: func(cmd *cobra.Command, _ []string) {
			err := command.WithServer(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, s *api.Server) error {
				return runReadiness(ctx, s, verbose)
			})
			if err != nil {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runReadiness(ctx context.Context, s *api.Server, verbose bool) error {
	if !s.Ready() {
		log.Error().Msg("Server is not ready")
		return errors.New("server is not ready")
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	cfg, err := s.Wallet.ActiveChain(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve active chain")
		return errors.Wrap(err, "readiness probe failed")
	}

	backend, err := s.Backends.Get(ctx, cfg.ChainID)
	if err != nil {
		log.Error().Err(err).Int64("chainId", cfg.ChainID).Msg("Failed to connect to chain")
		return errors.Wrap(err, "readiness probe failed")
	}

	head, err := backend.BlockNumber(ctx)
	if err != nil {
		log.Error().Err(err).Int64("chainId", cfg.ChainID).Msg("Chain is not reachable")
		return errors.Wrap(err, "readiness probe failed")
	}

	if verbose {
		log.Info().Int64("chainId", cfg.ChainID).Uint64("head", head).Msg("Chain is reachable")
	}

	return nil
}
