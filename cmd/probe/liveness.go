package probe

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/util"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `This command checks whether the signer can keep its state.
The following checks are performed:
	- vault directory exists or can be created
	- sim card state directory exists or can be created (sim transport only)`,
		Run: func(cmd *cobra.Command, _ []string) {
			runLiveness(cmd, config.DefaultServiceConfigFromEnv(), isVerbose(cmd))
		},
	}

	addVerboseFlag(cmd)

	return cmd
}

func runLiveness(cmd *cobra.Command, cfg config.Server, verbose bool) {
	util.ConfigureLogger(cfg.Logger.Level, cfg.Logger.PrettyPrintConsole)

	errs := livenessErrors(cfg)
	if len(errs) > 0 {
		log.Fatal().Errs("errs", errs).Msg("Unhealthy.")
	}

	report(cmd, verbose, "Healthy.")
}

func livenessErrors(cfg config.Server) []error {
	var errs []error

	dirs := []string{cfg.Vault.Dir}
	if cfg.BSIM.Transport == config.BSIMTransportSim && cfg.BSIM.SimStatePath != "" {
		dirs = append(dirs, filepath.Dir(cfg.BSIM.SimStatePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			errs = append(errs, errors.Wrapf(err, "directory %s is not usable", dir))
		}
	}

	return errs
}
