package vault

import (
	"github.com/spf13/cobra"
	"github/keyless/go-connector/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("vault",
		newCreate(),
	)
}
