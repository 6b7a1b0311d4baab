package vault

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/util/command"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/vault"
)

func newCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates a vault file",
		Long: `Creates a vault file holding an encrypted mnemonic (hd), an encrypted private key
(private-key) or a reference to the configured BSIM card (bsim).
Secrets are prompted for, or read line by line from stdin when it is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreate(cmd, config.DefaultServiceConfigFromEnv())
		},
	}

	command.AddChainFlag(cmd)
	cmd.Flags().String(typeFlag, string(vault.TypeHD), "Vault type: hd, private-key or bsim.")
	cmd.Flags().String(outFlag, "", "Vault file to create, defaults to a new file in the vault directory.")

	return cmd
}

func parseType(value string) (vault.Type, error) {
	switch t := vault.Type(strings.ReplaceAll(strings.ToLower(value), "-", "_")); t {
	case vault.TypeHD, vault.TypePrivateKey, vault.TypeBSIM:
		return t, nil
	default:
		return "", errors.Wrapf(vault.ErrUnsupportedType, "%q", value)
	}
}

func runCreate(cmd *cobra.Command, cfg config.Server) error {
	chainType, err := command.GetChain(cmd)
	if err != nil {
		return err
	}

	typeValue, err := cmd.Flags().GetString(typeFlag)
	if err != nil {
		return errors.Wrap(err, "failed to read type flag")
	}
	vaultType, err := parseType(typeValue)
	if err != nil {
		return err
	}

	out, err := cmd.Flags().GetString(outFlag)
	if err != nil {
		return errors.Wrap(err, "failed to read out flag")
	}
	if out == "" {
		out = filepath.Join(cfg.Vault.Dir, fmt.Sprintf("%s-%s.json", vaultType, uuid.NewString()))
	}

	record, err := newRecord(cmd, cfg, vaultType, chainType)
	if err != nil {
		return err
	}

	if err := vault.Save(out, record); err != nil {
		return err
	}

	log.Info().Str("type", string(record.Type)).Str("chain", string(record.ChainType)).Str("file", out).Msg("Created vault")
	fmt.Fprintln(cmd.OutOrStdout(), out)

	return nil
}

func newRecord(cmd *cobra.Command, cfg config.Server, vaultType vault.Type, chainType hardware.ChainType) (*vault.Record, error) {
	if vaultType == vault.TypeBSIM {
		return vault.NewBSIM(app.DeviceID(cfg), chainType)
	}

	p := newPrompter(cmd)
	ks := app.NewKeystore(cfg)

	switch vaultType {
	case vault.TypeHD:
		mnemonic, err := p.secret("Mnemonic")
		if err != nil {
			return nil, err
		}
		password, err := p.newPassword()
		if err != nil {
			return nil, err
		}
		return vault.NewHD(cmd.Context(), ks, mnemonic, password, chainType)
	default:
		keyHex, err := p.secret("Private key (hex)")
		if err != nil {
			return nil, err
		}
		key, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
		if err != nil {
			return nil, errors.Wrapf(vault.ErrInvalidRecord, "private key is not hex: %v", err)
		}
		defer address.Zero(key)

		password, err := p.newPassword()
		if err != nil {
			return nil, err
		}
		return vault.NewPrivateKey(cmd.Context(), ks, key, password, chainType)
	}
}
