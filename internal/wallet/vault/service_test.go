package vault_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/keystore"
	"github/chapool/go-signer/internal/wallet/vault"
)

func TestSaveAndLoad(t *testing.T) {
	keystoreService := keystore.NewService(keystore.LightScryptParams())

	record, err := vault.NewHD(t.Context(), keystoreService, "abandon  abandon\tabout", "pw", hardware.ChainConflux)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/503'/0'/0", record.DerivationPath)

	path := filepath.Join(t.TempDir(), "vaults", "main.json")
	require.NoError(t, vault.Save(path, record))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := vault.Load(path)
	require.NoError(t, err)
	assert.Equal(t, record.Type, loaded.Type)
	assert.Equal(t, record.ChainType, loaded.ChainType)
	assert.Equal(t, record.Data.Crypto.Ciphertext, loaded.Data.Crypto.Ciphertext)

	mnemonic, err := keystoreService.Decrypt(t.Context(), loaded.Data, "pw")
	require.NoError(t, err)
	assert.Equal(t, "abandon abandon about", string(mnemonic))

	require.Error(t, vault.Save(path, record), "existing vaults are never overwritten")
}

func TestAccountPath(t *testing.T) {
	record, err := vault.NewBSIM("", hardware.ChainEthereum)
	require.NoError(t, err)

	path, err := record.AccountPath(4)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/60'/0'/0/4", path)

	_, err = record.AccountPath(-1)
	require.ErrorIs(t, err, vault.ErrInvalidRecord)

	record.DerivationPath = "m/44'/60'/0'/0/"
	path, err = record.AccountPath(0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/60'/0'/0/0", path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		record vault.Record
	}{
		{"unknown type", vault.Record{Type: "paper", ChainType: hardware.ChainEthereum}},
		{"unknown chain", vault.Record{Type: vault.TypeBSIM, ChainType: "bitcoin", DerivationPath: "m/44'/0'/0'/0"}},
		{"hd without data", vault.Record{Type: vault.TypeHD, ChainType: hardware.ChainEthereum, DerivationPath: "m/44'/60'/0'/0"}},
		{"bsim without path", vault.Record{Type: vault.TypeBSIM, ChainType: hardware.ChainEthereum}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.record.Validate())
		})
	}

	_, err := vault.NewPrivateKey(t.Context(), keystore.NewService(keystore.LightScryptParams()), []byte{0x01}, "pw", hardware.ChainEthereum)
	require.ErrorIs(t, err, vault.ErrInvalidRecord)

	_, err = vault.NewHD(t.Context(), keystore.NewService(keystore.LightScryptParams()), " ", "pw", hardware.ChainEthereum)
	require.ErrorIs(t, err, vault.ErrInvalidRecord)
}

func TestVerificationAddress(t *testing.T) {
	keystoreService := keystore.NewService(keystore.LightScryptParams())

	record, err := vault.NewHD(t.Context(), keystoreService, "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "pw", hardware.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", record.VerificationAddress)

	require.NoError(t, record.Verify("0x9858EfFD232B4033E47d90003D41EC34EcaEda94"))
	require.ErrorIs(t, record.Verify("0x0000000000000000000000000000000000000001"), vault.ErrVerificationFailed)

	bsimRecord, err := vault.NewBSIM("", hardware.ChainEthereum)
	require.NoError(t, err)
	assert.Empty(t, bsimRecord.VerificationAddress)
	require.NoError(t, bsimRecord.Verify("anything"))
}
