package address_test

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/seed"
)

func testSeed(t *testing.T) []byte {
	t.Helper()

	return seed.FromMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")
}

func TestParseBIP44Path(t *testing.T) {
	indices, err := address.ParseBIP44Path("m/44'/60'/0'/0/7")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x8000002c, 0x8000003c, 0x80000000, 0, 7}, indices)

	indices, err = address.ParseBIP44Path("m/2147483647'/2147483647")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0xffffffff, 0x7fffffff}, indices)

	for _, path := range []string{"", "44'/60'", "m/44'/x'/0", "m/4294967296", "m/2147483648'", "m/44'/2147483648"} {
		_, err := address.ParseBIP44Path(path)
		assert.ErrorIs(t, err, address.ErrInvalidPath, path)
	}
}

func TestGetBIP44Path(t *testing.T) {
	svc := address.NewService()

	path, err := svc.GetBIP44Path(hardware.ChainEthereum, 3)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/60'/0'/0/3", path)

	path, err = svc.GetBIP44Path(hardware.ChainConflux, 0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/503'/0'/0/0", path)

	_, err = svc.GetBIP44Path("bitcoin", 0)
	assert.ErrorIs(t, err, hardware.ErrChainUnsupported)
}

func TestDeriveAddressIsDeterministic(t *testing.T) {
	ctx := t.Context()
	svc := address.NewService()
	hdSeed := testSeed(t)

	first, err := svc.DeriveAddress(ctx, hdSeed, "m/44'/60'/0'/0/0", hardware.ChainEthereum)
	require.NoError(t, err)

	again, err := svc.DeriveAddress(ctx, hdSeed, "m/44'/60'/0'/0/0", hardware.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	second, err := svc.DeriveAddress(ctx, hdSeed, "m/44'/60'/0'/0/1", hardware.ChainEthereum)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	privateKey, err := svc.DerivePrivateKey(ctx, hdSeed, "m/44'/60'/0'/0/0", hardware.ChainEthereum)
	require.NoError(t, err)
	require.Len(t, privateKey, 32)

	key, err := crypto.ToECDSA(privateKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), first)

	fromPublicKey, err := address.PublicKeyToAddress(hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey)), hardware.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, first, fromPublicKey)

	conflux, err := svc.DeriveAddress(ctx, hdSeed, "m/44'/60'/0'/0/0", hardware.ChainConflux)
	require.NoError(t, err)
	assert.Equal(t, "0x1", conflux[:3])
}

func TestDerivePrivateKeyUnsupportedChain(t *testing.T) {
	_, err := address.NewService().DerivePrivateKey(t.Context(), testSeed(t), "m/44'/60'/0'/0/0", "solana")
	assert.ErrorIs(t, err, hardware.ErrChainUnsupported)
}
