package vault

import (
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/util/command"
)

const (
	typeFlag  = "type"
	outFlag   = "out"
	vaultFlag = "vault"
	indexFlag = "index"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("vault",
		newCreate(),
		newSignMessage(),
	)
}
