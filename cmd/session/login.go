package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/util/command"
)

const (
	safleIDFlag = "safle-id"
	captchaFlag = "captcha"
)

func NewLogin() *cobra.Command {
	var safleID, captcha string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Logs in and persists the session",
		Long: `Authenticates against the cloud, loads the vault and persists the session
in the configured session store. The password is read from the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			if cfg.Session.Backend == "memory" {
				log.Warn().Msg("Session backend is memory, the session is lost when this command exits")
			}

			if strings.TrimSpace(safleID) == "" {
				return errors.New("--safle-id is required")
			}

			password, err := command.PromptPassword("Password: ")
			if err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				sess, err := s.Wallet.Login(ctx, safleID, password, captcha)
				if err != nil {
					return errors.Wrap(err, "failed to login")
				}
				sess.DecryptionKey.Zero()

				status, err := s.Wallet.Status(ctx)
				if err != nil {
					return err
				}

				return printJSON(status)
			})
		},
	}

	cmd.Flags().StringVar(&safleID, safleIDFlag, "", "Safle ID to login with")
	cmd.Flags().StringVar(&captcha, captchaFlag, "", "Captcha proof forwarded to the cloud")

	return cmd
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal output")
	}

	//nolint:forbidigo
	fmt.Println(string(out))

	return nil
}
