package bsim

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/util/command"
)

func newList() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lists the accounts provisioned on the card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chainType, err := command.GetChain(cmd)
			if err != nil {
				return err
			}

			return command.WithApp(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, a *app.App) error {
				if err := a.Wallet.Connect(ctx, nil); err != nil {
					return err
				}

				accounts, err := a.Wallet.ListAccounts(ctx, chainType)
				if err != nil {
					return err
				}

				return command.PrintJSON(cmd, accounts)
			})
		},
	}

	command.AddChainFlag(cmd)

	return cmd
}
