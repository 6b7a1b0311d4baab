package key

import (
	"fmt"

	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/util/command"
	"github/chapool/go-signer/internal/wallet/address"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("key",
		newNormalize(),
		newAddress(),
	)
}

func newNormalize() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <public-key>",
		Short: "Prints a card public key as 128 hex chars",
		Long: `Strips the 00 padding byte a BSIM card puts in front of a 64 byte public key.
Any other input is printed unchanged.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), address.NormalizePublicKey(args[0]))
		},
	}
}

func newAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address <public-key>",
		Short: "Prints the address of a public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainType, err := command.GetChain(cmd)
			if err != nil {
				return err
			}

			addr, err := address.PublicKeyToAddress(args[0], chainType)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}

	command.AddChainFlag(cmd)

	return cmd
}
