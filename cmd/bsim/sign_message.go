package bsim

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/util/command"
	"github/chapool/go-signer/internal/wallet/address"
)

type signatureResult struct {
	Address   string `json:"address"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
}

func newSignMessage() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-message <message>",
		Short: "Signs a personal message with a card account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainType, err := command.GetChain(cmd)
			if err != nil {
				return err
			}

			index, err := cmd.Flags().GetInt(indexFlag)
			if err != nil {
				return errors.Wrap(err, "failed to read index flag")
			}

			coinType, err := address.CoinType(chainType)
			if err != nil {
				return err
			}

			return command.WithApp(cmd.Context(), config.DefaultServiceConfigFromEnv(), func(ctx context.Context, a *app.App) error {
				if err := a.Wallet.Connect(ctx, nil); err != nil {
					return err
				}

				account, err := a.Wallet.DeriveAccount(ctx, index, chainType)
				if err != nil {
					return err
				}

				result, err := a.Wallet.Sign(ctx, &hardware.SigningContext{
					ChainType:      chainType,
					DerivationPath: address.BIP44Path(coinType, index),
					Payload:        &hardware.SigningPayload{Kind: hardware.PayloadPersonalMessage, Message: []byte(args[0])},
				})
				if err != nil {
					return err
				}

				return command.PrintJSON(cmd, newSignatureResult(account.Address, result))
			})
		},
	}

	command.AddChainFlag(cmd)
	cmd.Flags().Int(indexFlag, 0, "Account index to sign with.")

	return cmd
}

func newSignatureResult(addr string, result *hardware.SignResult) signatureResult {
	sig := make([]byte, 0, 65)
	sig = append(sig, result.R.Bytes()...)
	sig = append(sig, result.S.Bytes()...)
	sig = append(sig, result.V)

	return signatureResult{
		Address:   addr,
		Digest:    result.Digest.Hex(),
		Signature: hexutil.Encode(sig),
	}
}
