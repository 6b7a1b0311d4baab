package address_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/address"
)

const testPrivateKey = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"

func rawPublicKeyHex(t *testing.T) (string, string) {
	t.Helper()

	key, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)

	uncompressed := crypto.FromECDSAPub(&key.PublicKey)
	return hex.EncodeToString(uncompressed[1:]), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestNormalizePublicKey(t *testing.T) {
	raw, _ := rawPublicKeyHex(t)
	require.Len(t, raw, 128)

	assert.Equal(t, raw, address.NormalizePublicKey(raw))
	assert.Equal(t, raw, address.NormalizePublicKey("00"+raw))

	// 130 chars without the 00 prefix and other lengths pass through untouched
	assert.Equal(t, "04"+raw, address.NormalizePublicKey("04"+raw))
	assert.Equal(t, "abcd", address.NormalizePublicKey("abcd"))
	assert.Empty(t, address.NormalizePublicKey(""))
}

func TestPublicKeyToAddressPrefixedAndRawAgree(t *testing.T) {
	raw, expected := rawPublicKeyHex(t)

	fromPrefixed, err := address.PublicKeyToAddress(address.NormalizePublicKey("00"+raw), hardware.ChainEthereum)
	require.NoError(t, err)

	fromRaw, err := address.PublicKeyToAddress(address.NormalizePublicKey(raw), hardware.ChainEthereum)
	require.NoError(t, err)

	assert.Equal(t, fromRaw, fromPrefixed)
	assert.Equal(t, expected, fromRaw)
}

func TestPublicKeyToAddressEncodings(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)
	expected := crypto.PubkeyToAddress(key.PublicKey).Hex()

	encodings := []string{
		hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey)),
		"0x" + hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey)[1:]),
		hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey)),
	}

	for _, encoding := range encodings {
		addr, err := address.PublicKeyToAddress(encoding, hardware.ChainEthereum)
		require.NoError(t, err, encoding)
		assert.Equal(t, expected, addr)
	}
}

func TestPublicKeyToAddressRejectsMalformedKeys(t *testing.T) {
	raw, _ := rawPublicKeyHex(t)

	cases := []string{
		"",
		"zz",
		"abcd",
		"01" + raw,
		strings.Repeat("0", 128),
	}

	for _, key := range cases {
		_, err := address.PublicKeyToAddress(key, hardware.ChainEthereum)
		assert.ErrorIs(t, err, address.ErrInvalidPublicKey, key)
	}

	_, err := address.PublicKeyToAddress(raw, hardware.ChainType("tron"))
	assert.ErrorIs(t, err, hardware.ErrChainUnsupported)
}

func TestPublicKeyToAddressConflux(t *testing.T) {
	raw, expected := rawPublicKeyHex(t)

	addr, err := address.PublicKeyToAddress(raw, hardware.ChainConflux)
	require.NoError(t, err)

	assert.Len(t, addr, 42)
	assert.True(t, strings.HasPrefix(addr, "0x1"))
	assert.Equal(t, strings.ToLower(expected[3:]), addr[3:])
}
