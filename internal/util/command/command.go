package command

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/util"
)

const shutdownTimeout = 10 * time.Second

// NewSubcommandGroup returns a command that only groups subcommands and prints its help
func NewSubcommandGroup(use string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: use + " related subcommands",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}

	cmd.AddCommand(subcommands...)
	return cmd
}

// WithApp configures logging, wires an App for cfg and hands it to f.
// The app is shut down once f returns, its error is returned unchanged.
func WithApp(ctx context.Context, cfg config.Server, f func(ctx context.Context, a *app.App) error) error {
	util.ConfigureLogger(cfg.Logger.Level, cfg.Logger.PrettyPrintConsole)

	a, err := app.InitNewApp(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize app")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if errs := a.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down app")
		}
	}()

	return f(ctx, a)
}
