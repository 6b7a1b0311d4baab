package keystore_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/wallet/keystore"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	service := keystore.NewService(keystore.LightScryptParams())
	secret := []byte("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")

	document, err := service.Encrypt(t.Context(), secret, "correct horse")
	require.NoError(t, err)

	assert.Equal(t, 3, document.Version)
	assert.Equal(t, "aes-128-ctr", document.Crypto.Cipher)
	assert.Equal(t, "scrypt", document.Crypto.KDF)
	assert.NotEmpty(t, document.ID)
	assert.NotContains(t, document.Crypto.Ciphertext, string(secret))

	// documents survive a JSON round trip as they are stored in vault files
	encoded, err := json.Marshal(document)
	require.NoError(t, err)
	restored := new(keystore.KeystoreJSON)
	require.NoError(t, json.Unmarshal(encoded, restored))

	decrypted, err := service.Decrypt(t.Context(), restored, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, secret, decrypted)
}

func TestDecryptRejectsWrongPassword(t *testing.T) {
	service := keystore.NewService(keystore.LightScryptParams())

	document, err := service.Encrypt(t.Context(), []byte{0x01, 0x02}, "right")
	require.NoError(t, err)

	_, err = service.Decrypt(t.Context(), document, "wrong")
	require.ErrorIs(t, err, keystore.ErrInvalidPassword)
}

func TestDecryptRejectsUnsupportedDocuments(t *testing.T) {
	service := keystore.NewService(keystore.LightScryptParams())

	document, err := service.Encrypt(t.Context(), []byte{0x01}, "pw")
	require.NoError(t, err)

	wrongVersion := *document
	wrongVersion.Version = 1
	_, err = service.Decrypt(t.Context(), &wrongVersion, "pw")
	require.Error(t, err)

	wrongCipher := *document
	wrongCipher.Crypto.Cipher = "aes-256-gcm"
	_, err = service.Decrypt(t.Context(), &wrongCipher, "pw")
	require.Error(t, err)

	_, err = service.Decrypt(t.Context(), nil, "pw")
	require.Error(t, err)
}

func TestEncryptRejectsEmptySecret(t *testing.T) {
	_, err := keystore.NewService(keystore.LightScryptParams()).Encrypt(t.Context(), nil, "pw")
	require.Error(t, err)
}
