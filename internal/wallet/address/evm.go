package address

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github/chapool/go-signer/internal/hardware"
)

// ErrInvalidPath is returned for derivation paths that cannot be parsed
var ErrInvalidPath = errors.New("invalid derivation path")

type service struct{}

// NewService creates a new address Service
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService() Service {
	return &service{}
}

// DeriveAddress derives an address from seed and BIP44 path
func (s *service) DeriveAddress(ctx context.Context, seed []byte, path string, chainType hardware.ChainType) (string, error) {
	privateKey, err := s.DerivePrivateKey(ctx, seed, path, chainType)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive private key")
	}

	// Clear private key after use
	defer Zero(privateKey)

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	return FormatAddress(crypto.PubkeyToAddress(ecdsaPrivateKey.PublicKey), chainType)
}

// DerivePrivateKey derives a private key from seed and BIP44 path
// WARNING: Caller must clear the private key after use
func (s *service) DerivePrivateKey(_ context.Context, seed []byte, path string, chainType hardware.ChainType) ([]byte, error) {
	if _, err := CoinType(chainType); err != nil {
		return nil, err
	}

	return DerivePrivateKey(seed, path)
}

// GetBIP44Path gets BIP44 path of an address index
func (s *service) GetBIP44Path(chainType hardware.ChainType, addressIndex int) (string, error) {
	coinType, err := CoinType(chainType)
	if err != nil {
		return "", err
	}

	return BIP44Path(coinType, addressIndex), nil
}

// CoinType maps a chain family to its SLIP-44 coin type
func CoinType(chainType hardware.ChainType) (uint32, error) {
	switch chainType {
	case hardware.ChainEthereum:
		return CoinTypeEthereum, nil
	case hardware.ChainConflux:
		return CoinTypeConflux, nil
	default:
		return 0, errors.Wrapf(hardware.ErrChainUnsupported, "chain type %q", chainType)
	}
}

// BIP44Path formats m/44'/{coinType}'/0'/0/{index}
func BIP44Path(coinType uint32, addressIndex int) string {
	return fmt.Sprintf("m/44'/%d'/0'/0/%d", coinType, addressIndex)
}

// DerivePrivateKey derives the 32-byte private key at path from an HD seed
// WARNING: Caller must clear the private key after use
func DerivePrivateKey(seed []byte, path string) ([]byte, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	derivedKey, err := deriveKeyFromPath(masterKey, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key from path")
	}

	return derivedKey.Key, nil
}

func deriveKeyFromPath(masterKey *bip32.Key, path string) (*bip32.Key, error) {
	indices, err := ParseBIP44Path(path)
	if err != nil {
		return nil, err
	}

	key := masterKey
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	return key, nil
}

// ParseBIP44Path parses a BIP44 path string into indices
// Example: "m/44'/60'/0'/0/0" -> [2147483692, 2147483708, 2147483648, 0, 0]
func ParseBIP44Path(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	if path != "m" && !strings.HasPrefix(path, "m/") {
		return nil, errors.Wrapf(ErrInvalidPath, "%q", path)
	}

	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(path, "m"), "/"), "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}

		hardened := strings.HasSuffix(part, "'")
		part = strings.TrimSuffix(part, "'")

		value, err := strconv.ParseUint(part, 10, 32)
		if err != nil || value >= uint64(bip32.FirstHardenedChild) {
			return nil, errors.Wrapf(ErrInvalidPath, "segment %q of %q", part, path)
		}

		index := uint32(value)
		if hardened {
			index += bip32.FirstHardenedChild
		}

		indices = append(indices, index)
	}

	return indices, nil
}

// Zero overwrites key material in place
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
