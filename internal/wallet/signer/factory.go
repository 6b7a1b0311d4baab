package signer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/keystore"
	"github/chapool/go-signer/internal/wallet/seed"
	"github/chapool/go-signer/internal/wallet/vault"
)

// Factory turns vault records into signers
type Factory struct {
	keystore       keystore.Service
	addressService address.Service
	registry       *hardware.Registry
}

// NewFactory creates a Factory. registry may be nil when no hardware vaults are used.
func NewFactory(keystoreService keystore.Service, addressService address.Service, registry *hardware.Registry) *Factory {
	return &Factory{
		keystore:       keystoreService,
		addressService: addressService,
		registry:       registry,
	}
}

// SignerFor returns the signer of the account at index. password decrypts software vaults
// and is ignored for hardware vaults. Private key vaults only hold account 0.
//
//nolint:ireturn // Returning interface is intentional, the concrete signer depends on the vault
func (f *Factory) SignerFor(ctx context.Context, record *vault.Record, index int, password string) (Signer, error) {
	if record == nil {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "vault record is nil")
	}
	if err := record.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidSignerConfiguration, "%v", err)
	}

	logger := log.With().Str("component", "signer_factory").Str("vault", string(record.Type)).Int("index", index).Logger()

	switch record.Type {
	case vault.TypeHD:
		s, err := f.hdSigner(ctx, record, index, password)
		if err != nil {
			return nil, err
		}
		return s, nil
	case vault.TypePrivateKey:
		if index != 0 {
			return nil, errors.Wrapf(ErrInvalidSignerConfiguration, "private key vaults hold account 0 only, got %d", index)
		}
		s, err := f.privateKeySigner(ctx, record, password)
		if err != nil {
			return nil, err
		}
		return s, nil
	case vault.TypeBSIM:
		s, err := f.hardwareSigner(record, index)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("path", s.DerivationPath()).Msg("Resolved hardware signer")
		return s, nil
	default:
		return nil, errors.Wrapf(vault.ErrUnsupportedType, "%q", record.Type)
	}
}

func (f *Factory) hdSigner(ctx context.Context, record *vault.Record, index int, password string) (*SoftwareSigner, error) {
	path, err := record.AccountPath(index)
	if err != nil {
		return nil, err
	}

	mnemonic, err := f.keystore.Decrypt(ctx, record.Data, password)
	if err != nil {
		return nil, err
	}
	defer address.Zero(mnemonic)

	seedBytes := seed.FromMnemonic(string(mnemonic), "")
	defer address.Zero(seedBytes)

	if err := f.verifyHD(ctx, record, seedBytes); err != nil {
		return nil, err
	}

	privateKey, err := f.addressService.DerivePrivateKey(ctx, seedBytes, path, record.ChainType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive private key")
	}
	defer address.Zero(privateKey)

	return NewSoftwareSigner(privateKey, WithChain(record.ChainType))
}

func (f *Factory) privateKeySigner(ctx context.Context, record *vault.Record, password string) (*SoftwareSigner, error) {
	privateKey, err := f.keystore.Decrypt(ctx, record.Data, password)
	if err != nil {
		return nil, err
	}
	defer address.Zero(privateKey)

	s, err := NewSoftwareSigner(privateKey, WithChain(record.ChainType))
	if err != nil {
		return nil, err
	}

	addr, err := s.ChainAddress()
	if err != nil {
		return nil, err
	}
	if err := record.Verify(addr); err != nil {
		return nil, err
	}

	return s, nil
}

// verifyHD checks the decrypted mnemonic against the stored verification address
func (f *Factory) verifyHD(ctx context.Context, record *vault.Record, seedBytes []byte) error {
	if record.VerificationAddress == "" {
		return nil
	}

	path, err := record.AccountPath(vault.VerificationAccountIndex)
	if err != nil {
		return err
	}

	addr, err := f.addressService.DeriveAddress(ctx, seedBytes, path, record.ChainType)
	if err != nil {
		return errors.Wrap(err, "failed to derive verification address")
	}

	return record.Verify(addr)
}

func (f *Factory) hardwareSigner(record *vault.Record, index int) (*HardwareSigner, error) {
	if f.registry == nil {
		return nil, errors.Wrap(hardware.ErrHardwareUnavailable, "no hardware registry configured")
	}

	wallet, ok := f.registry.Get(string(record.Type), record.HardwareDeviceID)
	if !ok {
		return nil, errors.Wrapf(hardware.ErrHardwareUnavailable, "no %s adapter registered", record.Type)
	}

	path, err := record.AccountPath(index)
	if err != nil {
		return nil, err
	}

	return NewHardwareSigner(HardwareConfig{
		Wallet:         wallet,
		DerivationPath: path,
		ChainType:      record.ChainType,
	})
}
