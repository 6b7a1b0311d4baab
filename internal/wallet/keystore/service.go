package keystore

import (
	"context"

	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/util"
)

type service struct {
	params ScryptParams
}

// NewService creates a new keystore Service; nil params selects DefaultScryptParams
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(params *ScryptParams) Service {
	if params == nil {
		params = DefaultScryptParams()
	}

	return &service{
		params: *params,
	}
}

// Encrypt encrypts secret with password
func (s *service) Encrypt(ctx context.Context, secret []byte, password string) (*KeystoreJSON, error) {
	log := util.LogFromContext(ctx)

	if len(secret) == 0 {
		return nil, errors.New("secret must not be empty")
	}

	keystoreJSON, err := s.encrypt(secret, password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encrypt secret")
		return nil, errors.Wrap(err, "failed to encrypt secret")
	}

	return keystoreJSON, nil
}

// Decrypt decrypts the secret of a keystore document
func (s *service) Decrypt(ctx context.Context, keystore *KeystoreJSON, password string) ([]byte, error) {
	log := util.LogFromContext(ctx)

	if keystore == nil {
		return nil, errors.New("keystore must not be nil")
	}

	if keystore.Version != keystoreVersion || keystore.Crypto.Cipher != cipherName || keystore.Crypto.KDF != kdfName {
		return nil, errors.Errorf("unsupported keystore (version=%d cipher=%s kdf=%s)",
			keystore.Version, keystore.Crypto.Cipher, keystore.Crypto.KDF)
	}

	secret, err := s.decrypt(keystore, password)
	if err != nil {
		log.Debug().Err(err).Str("keystore_id", keystore.ID).Msg("Failed to decrypt keystore")
		return nil, errors.Wrap(err, "failed to decrypt secret")
	}

	return secret, nil
}
