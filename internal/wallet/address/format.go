package address

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
)

const (
	rawPublicKeyHexLength      = 128
	prefixedPublicKeyHexLength = 130
	paddingPrefix              = "00"
)

// ErrInvalidPublicKey is returned when a public key cannot be turned into an address
var ErrInvalidPublicKey = errors.New("invalid public key")

// NormalizePublicKey collapses the encodings a secure element returns into the raw
// 128 hex char form. A 130 char key with a leading 00 byte loses that byte, anything
// else is returned unchanged and left to PublicKeyToAddress to validate.
func NormalizePublicKey(key string) string {
	switch {
	case len(key) == rawPublicKeyHexLength:
		return key
	case len(key) == prefixedPublicKeyHexLength && strings.HasPrefix(key, paddingPrefix):
		return key[len(paddingPrefix):]
	default:
		return key
	}
}

// PublicKeyToAddress derives the chain address of a public key given as hex.
// Accepted: 64 byte raw, 65 byte 04 prefixed and 33 byte compressed keys, with optional 0x.
func PublicKeyToAddress(key string, chainType hardware.ChainType) (string, error) {
	pub, err := ParsePublicKey(key)
	if err != nil {
		return "", err
	}

	return FormatAddress(crypto.PubkeyToAddress(*pub), chainType)
}

// ParsePublicKey decodes a secp256k1 public key in any encoding PublicKeyToAddress accepts
func ParsePublicKey(key string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X"))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "not hex: %v", err)
	}

	switch len(raw) {
	case 64:
		raw = append([]byte{0x04}, raw...)
	case 65:
	case 33:
		pub, err := crypto.DecompressPubkey(raw)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPublicKey, "compressed key: %v", err)
		}
		return pub, nil
	default:
		return nil, errors.Wrapf(ErrInvalidPublicKey, "unexpected length %d bytes", len(raw))
	}

	pub, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "%v", err)
	}

	return pub, nil
}

// FormatAddress renders a 20-byte account address in the native format of chainType.
// Ethereum uses EIP-55 checksummed hex, Conflux hex addresses mark user accounts with a
// leading 1 nibble.
func FormatAddress(addr common.Address, chainType hardware.ChainType) (string, error) {
	switch chainType {
	case hardware.ChainEthereum:
		return addr.Hex(), nil
	case hardware.ChainConflux:
		return "0x1" + hex.EncodeToString(addr.Bytes())[1:], nil
	default:
		return "", errors.Wrapf(hardware.ErrChainUnsupported, "chain type %q", chainType)
	}
}
