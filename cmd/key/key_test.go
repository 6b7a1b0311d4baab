package key_test

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/cmd/key"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := key.New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return strings.TrimSpace(out.String()), err
}

func TestNormalize(t *testing.T) {
	raw := strings.Repeat("ab", 64)

	out, err := run(t, "normalize", "00"+raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	out, err = run(t, "normalize", raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	// uncompressed 04 keys are left to the address derivation
	out, err = run(t, "normalize", "0x04"+raw)
	require.NoError(t, err)
	assert.Equal(t, "0x04"+raw, out)
}

func TestAddress(t *testing.T) {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.FromECDSAPub(&pk.PublicKey)

	out, err := run(t, "address", "0x"+hex.EncodeToString(pub))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(pk.PublicKey).Hex(), out)

	out, err = run(t, "address", "--chain", "conflux", hex.EncodeToString(pub))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0x1"))

	_, err = run(t, "address", "--chain", "bitcoin", hex.EncodeToString(pub))
	require.Error(t, err)

	_, err = run(t, "address", "abcd")
	require.Error(t, err)
}
