package bsim

import (
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/util/command"
)

const (
	indexFlag  = "index"
	targetFlag = "target"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("bsim",
		newConnect(),
		newList(),
		newProvision(),
		newSignMessage(),
	)
}
