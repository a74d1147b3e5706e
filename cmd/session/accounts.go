package session

import (
	"context"

	"github.com/spf13/cobra"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util/command"
)

const allFlag = "all"

func NewAccounts() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Lists the accounts of the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithServer(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, s *api.Server) error {
				if err := s.Wallet.Resume(ctx); err != nil {
					return err
				}

				active, err := s.Wallet.ActiveAccount()
				if err != nil {
					return err
				}

				return printJSON(&types.AccountsResponse{
					Active:   active,
					Accounts: s.Wallet.Accounts(all),
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, allFlag, false, "List every account of the vault")

	return cmd
}
