package signer_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/bsim"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/keystore"
	"github/chapool/go-signer/internal/wallet/seed"
	"github/chapool/go-signer/internal/wallet/signer"
	"github/chapool/go-signer/internal/wallet/vault"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestFactory(t *testing.T, registry *hardware.Registry) (*signer.Factory, keystore.Service) {
	t.Helper()

	keystoreService := keystore.NewService(keystore.LightScryptParams())
	return signer.NewFactory(keystoreService, address.NewService(), registry), keystoreService
}

func TestFactoryHDVault(t *testing.T) {
	factory, keystoreService := newTestFactory(t, nil)

	record, err := vault.NewHD(t.Context(), keystoreService, testMnemonic, "pw", hardware.ChainEthereum)
	require.NoError(t, err)

	s, err := factory.SignerFor(t.Context(), record, 3, "pw")
	require.NoError(t, err)
	require.Equal(t, signer.SigningTypeSoftware, s.SigningType())

	software, ok := s.(*signer.SoftwareSigner)
	require.True(t, ok)

	expected, err := address.NewService().DeriveAddress(t.Context(), seed.FromMnemonic(testMnemonic, ""), "m/44'/60'/0'/0/3", hardware.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, expected, software.Address().Hex())

	_, err = factory.SignerFor(t.Context(), record, 3, "wrong")
	require.ErrorIs(t, err, keystore.ErrInvalidPassword)
}

func TestFactoryPrivateKeyVault(t *testing.T) {
	factory, keystoreService := newTestFactory(t, nil)

	record, err := vault.NewPrivateKey(t.Context(), keystoreService, common.FromHex(testPrivateKey), "pw", hardware.ChainEthereum)
	require.NoError(t, err)

	s, err := factory.SignerFor(t.Context(), record, 0, "pw")
	require.NoError(t, err)
	assert.Equal(t, signer.SigningTypeSoftware, s.SigningType())

	_, err = factory.SignerFor(t.Context(), record, 1, "pw")
	require.ErrorIs(t, err, signer.ErrInvalidSignerConfiguration)
}

func TestFactoryBSIMVault(t *testing.T) {
	seeds := seed.NewManager()
	require.NoError(t, seeds.Initialize(testMnemonic, ""))

	card, err := bsim.NewSimCard(seeds)
	require.NoError(t, err)
	wallet, err := bsim.NewWallet(bsim.NewSession(card))
	require.NoError(t, err)

	registry := hardware.NewRegistry()
	require.NoError(t, registry.Register(bsim.HardwareType, "", wallet))

	factory, _ := newTestFactory(t, registry)

	record, err := vault.NewBSIM("", hardware.ChainEthereum)
	require.NoError(t, err)

	s, err := factory.SignerFor(t.Context(), record, 1, "")
	require.NoError(t, err)
	require.Equal(t, signer.SigningTypeHardware, s.SigningType())

	hardwareSigner, ok := s.(*signer.HardwareSigner)
	require.True(t, ok)
	assert.Equal(t, "m/44'/60'/0'/0/1", hardwareSigner.DerivationPath())

	account, err := wallet.DeriveAccount(t.Context(), 1, hardware.ChainEthereum)
	require.NoError(t, err)

	result, err := s.Sign(t.Context(), personalMessage())
	require.NoError(t, err)
	assert.Equal(t, hardware.ResultSignature, result.ResultType)

	software, err := factory.SignerFor(t.Context(), mustHD(t), 1, "pw")
	require.NoError(t, err)
	expected, err := software.Sign(t.Context(), personalMessage())
	require.NoError(t, err)

	// card keys come from the same seed and signing is deterministic
	assert.Equal(t, expected, result)
	assert.Equal(t, account.Address, software.(*signer.SoftwareSigner).Address().Hex())
}

func mustHD(t *testing.T) *vault.Record {
	t.Helper()

	record, err := vault.NewHD(t.Context(), keystore.NewService(keystore.LightScryptParams()), testMnemonic, "pw", hardware.ChainEthereum)
	require.NoError(t, err)
	return record
}

func TestFactoryBSIMVaultWithoutAdapter(t *testing.T) {
	factory, _ := newTestFactory(t, hardware.NewRegistry())

	record, err := vault.NewBSIM("card-1", hardware.ChainEthereum)
	require.NoError(t, err)

	_, err = factory.SignerFor(t.Context(), record, 0, "")
	require.ErrorIs(t, err, hardware.ErrHardwareUnavailable)
}

func TestFactoryRejectsInvalidRecords(t *testing.T) {
	factory, _ := newTestFactory(t, nil)

	_, err := factory.SignerFor(t.Context(), nil, 0, "")
	require.ErrorIs(t, err, signer.ErrInvalidSignerConfiguration)

	_, err = factory.SignerFor(t.Context(), &vault.Record{Type: "ledger", ChainType: hardware.ChainEthereum}, 0, "")
	require.ErrorIs(t, err, signer.ErrInvalidSignerConfiguration)

	_, err = factory.SignerFor(t.Context(), &vault.Record{Type: vault.TypeHD, ChainType: hardware.ChainEthereum, DerivationPath: "m/44'/60'/0'/0"}, 0, "")
	require.ErrorIs(t, err, signer.ErrInvalidSignerConfiguration)
}

func TestFactoryRejectsTamperedVerificationAddress(t *testing.T) {
	factory, keystoreService := newTestFactory(t, nil)

	hd, err := vault.NewHD(t.Context(), keystoreService, testMnemonic, "pw", hardware.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", hd.VerificationAddress)

	hd.VerificationAddress = "0x0000000000000000000000000000000000000001"
	_, err = factory.SignerFor(t.Context(), hd, 2, "pw")
	require.ErrorIs(t, err, vault.ErrVerificationFailed)

	pk, err := vault.NewPrivateKey(t.Context(), keystoreService, common.FromHex(testPrivateKey), "pw", hardware.ChainEthereum)
	require.NoError(t, err)

	pk.VerificationAddress = ""
	_, err = factory.SignerFor(t.Context(), pk, 0, "pw")
	require.NoError(t, err, "records without verification address are accepted")

	pk.VerificationAddress = hd.VerificationAddress
	_, err = factory.SignerFor(t.Context(), pk, 0, "pw")
	require.ErrorIs(t, err, vault.ErrVerificationFailed)
}
