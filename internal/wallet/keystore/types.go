package keystore

import (
	"context"

	"github.com/pkg/errors"
)

const (
	keystoreVersion = 3
	cipherName      = "aes-128-ctr"
	kdfName         = "scrypt"
)

// ErrInvalidPassword is returned when the MAC of a keystore does not match the password
var ErrInvalidPassword = errors.New("invalid password: MAC mismatch")

// Service encrypts vault secrets (mnemonics, private keys) into keystore v3 documents
type Service interface {
	// Encrypt encrypts secret with password
	Encrypt(ctx context.Context, secret []byte, password string) (*KeystoreJSON, error)

	// Decrypt decrypts the secret of a keystore document
	// WARNING: Caller must clear the secret after use
	Decrypt(ctx context.Context, keystore *KeystoreJSON, password string) ([]byte, error)
}

// KeystoreJSON represents the Ethereum keystore v3 JSON structure
//
//nolint:revive // KeystoreJSON is the standard name for Ethereum keystore JSON structure
type KeystoreJSON struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	Crypto  struct {
		Ciphertext   string `json:"ciphertext"`
		CipherParams struct {
			IV string `json:"iv"`
		} `json:"cipherparams"`
		Cipher    string `json:"cipher"`
		KDF       string `json:"kdf"`
		KDFParams struct {
			DKLen int    `json:"dklen"`
			Salt  string `json:"salt"`
			N     int    `json:"n"`
			R     int    `json:"r"`
			P     int    `json:"p"`
		} `json:"kdfparams"`
		MAC string `json:"mac"`
	} `json:"crypto"`
}

// ScryptParams defines scrypt KDF parameters
type ScryptParams struct {
	DKLen int // Derived key length (32 bytes)
	Salt  []byte
	N     int // CPU/memory cost parameter (262144)
	R     int // Block size parameter (8)
	P     int // Parallelization parameter (1)
}

// DefaultScryptParams returns default scrypt parameters for Ethereum keystore v3
func DefaultScryptParams() *ScryptParams {
	const (
		scryptDKLen = 32     // Derived key length (32 bytes)
		scryptN     = 262144 // CPU/memory cost parameter (2^18)
		scryptR     = 8      // Block size parameter
		scryptP     = 1      // Parallelization parameter
	)

	return &ScryptParams{
		DKLen: scryptDKLen,
		N:     scryptN,
		R:     scryptR,
		P:     scryptP,
	}
}

// LightScryptParams returns cheap parameters for tests and development
func LightScryptParams() *ScryptParams {
	params := DefaultScryptParams()
	params.N = 4096
	params.P = 6
	return params
}
