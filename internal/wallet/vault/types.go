// Package vault stores signing material: encrypted HD mnemonics, encrypted private keys and
// references to hardware devices.
package vault

import (
	"time"

	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/keystore"
)

// Type tells how a vault holds its key
type Type string

const (
	TypeHD         Type = "hd"
	TypePrivateKey Type = "private_key"
	TypeBSIM       Type = "bsim"
)

var (
	// ErrInvalidRecord is returned for vault records missing the fields of their type
	ErrInvalidRecord = errors.New("invalid vault record")

	// ErrUnsupportedType is returned for unknown vault types
	ErrUnsupportedType = errors.New("unsupported vault type")
)

// Record is a persisted vault
type Record struct {
	Type      Type               `json:"type"`
	ChainType hardware.ChainType `json:"chainType"`

	// DerivationPath is the account path prefix, the account index is appended as last segment
	DerivationPath string `json:"derivationPath,omitempty"`

	// Data is the encrypted mnemonic (TypeHD) or private key (TypePrivateKey)
	Data *keystore.KeystoreJSON `json:"data,omitempty"`

	// VerificationAddress is the address of account 0, checked after decryption
	VerificationAddress string `json:"verificationAddress,omitempty"`

	// HardwareDeviceID selects a device when several of the same type are registered
	HardwareDeviceID string `json:"hardwareDeviceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
