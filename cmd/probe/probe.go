// Package probe holds the liveness and readiness checks run by orchestrators against the signer.
package probe

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/util/command"
)

const verboseFlag = "verbose"

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
}

func addVerboseFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool(verboseFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse args")
	}
	return verbose
}

// report prints format to the command output in verbose mode
func report(cmd *cobra.Command, verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
}
