package vault

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
	"github/chapool/go-signer/internal/wallet/signer"
	"github/chapool/go-signer/internal/wallet/vault"
)

type signatureResult struct {
	Signer    string `json:"signer"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
}

func newSignMessage() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-message <message>",
		Short: "Signs a personal message with a vault account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignMessage(cmd, config.DefaultServiceConfigFromEnv(), []byte(args[0]))
		},
	}

	cmd.Flags().String(vaultFlag, "", "Vault file to sign with.")
	cmd.Flags().Int(indexFlag, 0, "Account index to sign with.")
	_ = cmd.MarkFlagRequired(vaultFlag)

	return cmd
}

func runSignMessage(cmd *cobra.Command, cfg config.Server, message []byte) error {
	path, err := cmd.Flags().GetString(vaultFlag)
	if err != nil {
		return errors.Wrap(err, "failed to read vault flag")
	}
	index, err := cmd.Flags().GetInt(indexFlag)
	if err != nil {
		return errors.Wrap(err, "failed to read index flag")
	}

	record, err := vault.Load(path)
	if err != nil {
		return err
	}

	payload := &hardware.SigningPayload{Kind: hardware.PayloadPersonalMessage, Message: message}

	if record.Type == vault.TypeBSIM {
		return command.WithApp(cmd.Context(), cfg, func(ctx context.Context, a *app.App) error {
			if err := a.Wallet.Connect(ctx, nil); err != nil {
				return err
			}
			account, err := a.Wallet.DeriveAccount(ctx, index, record.ChainType)
			if err != nil {
				return err
			}

			return sign(ctx, cmd, a.Signers, record, index, "", payload, account.Address)
		})
	}

	password, err := newPrompter(cmd).secret("Vault password")
	if err != nil {
		return err
	}

	factory := signer.NewFactory(app.NewKeystore(cfg), address.NewService(), nil)
	return sign(cmd.Context(), cmd, factory, record, index, password, payload, "")
}

func sign(ctx context.Context, cmd *cobra.Command, factory *signer.Factory, record *vault.Record, index int, password string, payload *hardware.SigningPayload, signerAddress string) error {
	s, err := factory.SignerFor(ctx, record, index, password)
	if err != nil {
		return err
	}

	if software, ok := s.(*signer.SoftwareSigner); ok {
		signerAddress, err = software.ChainAddress()
		if err != nil {
			return err
		}
	}

	result, err := s.Sign(ctx, payload)
	if err != nil {
		return err
	}

	sig := make([]byte, 0, 65)
	sig = append(sig, result.R.Bytes()...)
	sig = append(sig, result.S.Bytes()...)
	sig = append(sig, result.V)

	return command.PrintJSON(cmd, signatureResult{
		Signer:    signerAddress,
		Digest:    result.Digest.Hex(),
		Signature: hexutil.Encode(sig),
	})
}
