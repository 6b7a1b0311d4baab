package command

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/address"
)

const ChainFlag = "chain"

// AddChainFlag registers --chain defaulting to ethereum
func AddChainFlag(cmd *cobra.Command) {
	cmd.Flags().String(ChainFlag, string(hardware.ChainEthereum), "Chain family: ethereum or conflux.")
}

// GetChain returns the validated --chain flag
func GetChain(cmd *cobra.Command) (hardware.ChainType, error) {
	value, err := cmd.Flags().GetString(ChainFlag)
	if err != nil {
		return "", errors.Wrap(err, "failed to read chain flag")
	}

	chainType := hardware.ChainType(value)
	if _, err := address.CoinType(chainType); err != nil {
		return "", err
	}

	return chainType, nil
}

// PrintJSON writes v indented to the command output
func PrintJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to print result")
}
