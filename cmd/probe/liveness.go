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

const livenessTimeout = 5 * time.Second

func newLiveness() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `This command runs liveness probes against the session store.
Exits 0 when the store answers, 1 otherwise.`,
		Run: func(cmd *cobra.Command, _ []string) {
			err := command.WithServer(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, s *api.Server) error {
				return runLiveness(ctx, s, verbose)
			})
			if err != nil {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runLiveness(ctx context.Context, s *api.Server, verbose bool) error {
	ctx, cancel := context.WithTimeout(ctx, livenessTimeout)
	defer cancel()

	sess, err := s.Session.Load(ctx)
	if err != nil {
		log.Error().Err(err).Str("backend", s.Config.Session.Backend).Msg("Session store is not reachable")
		return errors.Wrap(err, "liveness probe failed")
	}
	sess.DecryptionKey.Zero()

	if verbose {
		log.Info().Str("backend", s.Config.Session.Backend).Bool("loggedIn", sess.IsLoggedIn()).Msg("Session store is reachable")
	}

	return nil
}
