package bsim

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/util/command"
)

func newProvision() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Creates card keys until the target index exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chainType, err := command.GetChain(cmd)
			if err != nil {
				return err
			}

			target, err := cmd.Flags().GetInt(targetFlag)
			if err != nil {
				return errors.Wrap(err, "failed to read target flag")
			}

			return command.WithApp(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, a *app.App) error {
				if err := a.Wallet.Connect(ctx, nil); err != nil {
					return err
				}

				account, err := a.Wallet.DeriveAccount(ctx, target, chainType)
				if err != nil {
					return err
				}

				return command.PrintJSON(cmd, account)
			})
		},
	}

	command.AddChainFlag(cmd)
	cmd.Flags().Int(targetFlag, 0, "Account index that must exist afterwards.")

	return cmd
}
