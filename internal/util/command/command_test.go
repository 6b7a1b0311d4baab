package command_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/app"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/util/command"
)

func testConfig(t *testing.T) config.Server {
	t.Helper()

	cfg := config.ServiceConfigFrom(config.NewViper())
	cfg.Logger.PrettyPrintConsole = false
	cfg.BSIM.Transport = config.BSIMTransportSim
	cfg.BSIM.SimMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	cfg.BSIM.SimStatePath = filepath.Join(t.TempDir(), "simcard.toml")
	cfg.Vault.LightScrypt = true
	return cfg
}

func TestWithApp(t *testing.T) {
	ctx := t.Context()

	var testError = errors.New("test error")
	var used *app.App

	resultErr := command.WithApp(ctx, testConfig(t), func(ctx context.Context, a *app.App) error {
		require.NoError(t, a.Wallet.Connect(ctx, nil))

		_, err := a.Wallet.DeriveAccount(ctx, 0, hardware.ChainEthereum)
		require.NoError(t, err)

		accounts, err := a.Wallet.ListAccounts(ctx, hardware.ChainEthereum)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)

		used = a
		return testError
	})

	assert.Equal(t, testError, resultErr)
	require.NotNil(t, used)
	assert.False(t, used.Wallet.IsConnected())
}

func TestWithAppFailsOnInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.BSIM.SimMnemonic = ""

	called := false
	err := command.WithApp(t.Context(), cfg, func(context.Context, *app.App) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, app.ErrSimMnemonicMissing)
	assert.False(t, called)
}

func TestNewSubcommandGroup(t *testing.T) {
	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}
	group := command.NewSubcommandGroup("group", child)

	assert.Equal(t, "group", group.Use)
	require.Len(t, group.Commands(), 1)
	assert.Equal(t, "child", group.Commands()[0].Use)
}
