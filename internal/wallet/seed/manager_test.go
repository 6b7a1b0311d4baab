package seed_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/wallet/seed"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestFromMnemonicMatchesBIP39Vector(t *testing.T) {
	// BIP39 reference vector with passphrase TREZOR
	expected := "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04"

	assert.Equal(t, expected, hex.EncodeToString(seed.FromMnemonic(testMnemonic, "TREZOR")))
	assert.Equal(t, seed.FromMnemonic(testMnemonic, ""), seed.FromMnemonic("  abandon abandon abandon abandon abandon abandon\tabandon abandon abandon abandon abandon about ", ""))
}

func TestManagerLifecycle(t *testing.T) {
	manager := seed.NewManager()
	assert.False(t, manager.IsInitialized())
	assert.Nil(t, manager.GetSeed())

	require.ErrorIs(t, manager.Initialize("   ", ""), seed.ErrEmptyMnemonic)
	require.NoError(t, manager.Initialize(testMnemonic, ""))
	assert.True(t, manager.IsInitialized())

	value := manager.GetSeed()
	assert.Equal(t, seed.FromMnemonic(testMnemonic, ""), value)

	// callers get a copy
	value[0] ^= 0xff
	assert.Equal(t, seed.FromMnemonic(testMnemonic, ""), manager.GetSeed())

	manager.Clear()
	assert.False(t, manager.IsInitialized())
	assert.Nil(t, manager.GetSeed())
}

func TestManagerInitializeFromSeed(t *testing.T) {
	manager := seed.NewManager()

	require.ErrorIs(t, manager.InitializeFromSeed(nil), seed.ErrEmptySeed)

	raw := []byte{0x01, 0x02, 0x03}
	require.NoError(t, manager.InitializeFromSeed(raw))
	raw[0] = 0xff

	assert.Equal(t, []byte{0x01, 0x02, 0x03}, manager.GetSeed())
}
