package bsim

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/util/command"
)

type connectResult struct {
	Version  string                     `json:"version"`
	Accounts []provisionedAccountResult `json:"accounts"`
}

type provisionedAccountResult struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
}

func newConnect() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connects the card and returns its first account",
		Long: `Opens the configured BSIM card and returns the account with the lowest index.
An account is created when the card holds none for the chain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chainType, err := command.GetChain(cmd)
			if err != nil {
				return err
			}

			return command.WithApp(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, a *app.App) error {
				if err := a.Wallet.Connect(ctx, nil); err != nil {
					return err
				}

				p, err := a.Wallet.Provisioner(chainType)
				if err != nil {
					return err
				}

				accounts, err := p.Connect(ctx)
				if err != nil {
					return err
				}

				result := connectResult{Version: a.Wallet.Version(), Accounts: make([]provisionedAccountResult, 0, len(accounts))}
				for _, account := range accounts {
					result.Accounts = append(result.Accounts, provisionedAccountResult{Index: account.Index, Address: account.Address})
				}

				return command.PrintJSON(cmd, result)
			})
		},
	}

	command.AddChainFlag(cmd)

	return cmd
}
