package probe

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/util/command"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `This command checks the readiness of the configured BSIM card.
The following checks are performed:
	- the card session can be opened
	- the applet answers its version`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runReadiness(cmd, config.DefaultServiceConfigFromEnv(), isVerbose(cmd)); err != nil {
				log.Fatal().Err(err).Msg("Not ready.")
			}
		},
	}

	addVerboseFlag(cmd)

	return cmd
}

func runReadiness(cmd *cobra.Command, cfg config.Server, verbose bool) error {
	return command.WithApp(cmd.Context(), cfg, func(ctx context.Context, a *app.App) error {
		if err := a.Wallet.Connect(ctx, nil); err != nil {
			return errors.Wrap(err, "failed to connect bsim card")
		}

		report(cmd, verbose, "Ready. BSIM applet version %s", a.Wallet.Version())

		return nil
	})
}
