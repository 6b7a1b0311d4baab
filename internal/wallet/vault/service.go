package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/util"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/keystore"
)

// DefaultPathPrefix returns m/44'/<coin>'/0'/0 for chainType
func DefaultPathPrefix(chainType hardware.ChainType) (string, error) {
	coinType, err := address.CoinType(chainType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("m/44'/%d'/0'/0", coinType), nil
}

// NewHD encrypts mnemonic into an HD vault
func NewHD(ctx context.Context, keystoreService keystore.Service, mnemonic string, password string, chainType hardware.ChainType) (*Record, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, errors.Wrap(ErrInvalidRecord, "mnemonic is empty")
	}

	prefix, err := DefaultPathPrefix(chainType)
	if err != nil {
		return nil, err
	}

	verification, err := hdVerificationAddress(mnemonic, prefix, chainType)
	if err != nil {
		return nil, err
	}

	return newEncrypted(ctx, keystoreService, TypeHD, []byte(mnemonic), password, chainType, verification)
}

// NewPrivateKey encrypts a raw private key into a private key vault
func NewPrivateKey(ctx context.Context, keystoreService keystore.Service, privateKey []byte, password string, chainType hardware.ChainType) (*Record, error) {
	if len(privateKey) != 32 {
		return nil, errors.Wrapf(ErrInvalidRecord, "private key must be 32 bytes, got %d", len(privateKey))
	}

	verification, err := addressOfKey(privateKey, chainType)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRecord, "%v", err)
	}

	return newEncrypted(ctx, keystoreService, TypePrivateKey, privateKey, password, chainType, verification)
}

// NewBSIM references the BSIM card with deviceID (empty selects the default card)
func NewBSIM(deviceID string, chainType hardware.ChainType) (*Record, error) {
	prefix, err := DefaultPathPrefix(chainType)
	if err != nil {
		return nil, err
	}

	return &Record{
		Type:             TypeBSIM,
		ChainType:        chainType,
		DerivationPath:   prefix,
		HardwareDeviceID: deviceID,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

func newEncrypted(ctx context.Context, keystoreService keystore.Service, vaultType Type, secret []byte, password string, chainType hardware.ChainType, verification string) (*Record, error) {
	prefix, err := DefaultPathPrefix(chainType)
	if err != nil {
		return nil, err
	}

	data, err := keystoreService.Encrypt(ctx, secret, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt vault secret")
	}

	record := &Record{
		Type:                vaultType,
		ChainType:           chainType,
		DerivationPath:      prefix,
		Data:                data,
		VerificationAddress: verification,
		CreatedAt:           time.Now().UTC(),
	}

	util.LogFromContext(ctx).Debug().Str("type", string(vaultType)).Str("chain", string(chainType)).Msg("Created vault")
	return record, nil
}

// Validate checks that the record carries the fields of its type
func (r *Record) Validate() error {
	if _, err := address.CoinType(r.ChainType); err != nil {
		return errors.Wrapf(ErrInvalidRecord, "%v", err)
	}

	switch r.Type {
	case TypeHD, TypePrivateKey:
		if r.Data == nil {
			return errors.Wrapf(ErrInvalidRecord, "%s vault without encrypted data", r.Type)
		}
	case TypeBSIM:
	default:
		return errors.Wrapf(ErrUnsupportedType, "%q", r.Type)
	}

	if r.Type != TypePrivateKey && strings.TrimSpace(r.DerivationPath) == "" {
		return errors.Wrapf(ErrInvalidRecord, "%s vault without derivation path", r.Type)
	}

	return nil
}

// AccountPath returns the derivation path of the account at index
func (r *Record) AccountPath(index int) (string, error) {
	if index < 0 {
		return "", errors.Wrapf(ErrInvalidRecord, "account index %d is negative", index)
	}

	prefix := strings.TrimSuffix(strings.TrimSpace(r.DerivationPath), "/")
	if prefix == "" {
		return "", errors.Wrap(ErrInvalidRecord, "derivation path is empty")
	}

	path := fmt.Sprintf("%s/%d", prefix, index)
	if _, err := address.ParseBIP44Path(path); err != nil {
		return "", err
	}

	return path, nil
}

// Load reads and validates a vault file
func Load(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read vault %s", path)
	}

	record := new(Record)
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, errors.Wrapf(err, "failed to decode vault %s", path)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Save writes record to path readable by the owner only. Existing files are not overwritten.
func Save(path string, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode vault")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create vault directory")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrapf(err, "failed to create vault %s", path)
	}
	defer file.Close()

	if _, err := file.Write(encoded); err != nil {
		return errors.Wrapf(err, "failed to write vault %s", path)
	}

	return nil
}
