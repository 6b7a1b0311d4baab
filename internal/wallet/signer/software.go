package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/util"
	"github/chapool/go-signer/internal/wallet/address"
)

// SoftwareOption configures a SoftwareSigner
type SoftwareOption func(*SoftwareSigner)

// WithChain selects the chain results are tagged with and addresses are formatted for
func WithChain(chainType hardware.ChainType) SoftwareOption {
	return func(s *SoftwareSigner) {
		s.chainType = chainType
	}
}

// SoftwareSigner signs with a private key held in memory. The key never leaves the struct:
// String, GoString and zerolog output only show the address.
type SoftwareSigner struct {
	key       *ecdsa.PrivateKey
	address   common.Address
	chainType hardware.ChainType
}

var _ Signer = (*SoftwareSigner)(nil)

// NewSoftwareSigner creates a signer from a 32-byte secp256k1 private key. The slice is copied.
func NewSoftwareSigner(privateKey []byte, opts ...SoftwareOption) (*SoftwareSigner, error) {
	if len(privateKey) == 0 {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "private key is empty")
	}

	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		// the cause may quote key material
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "private key is not a valid secp256k1 key")
	}

	s := &SoftwareSigner{
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		chainType: hardware.ChainEthereum,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := address.CoinType(s.chainType); err != nil {
		return nil, errors.Wrapf(ErrInvalidSignerConfiguration, "%v", err)
	}

	return s, nil
}

// NewSoftwareSignerFromHex creates a signer from a hex private key with optional 0x prefix
func NewSoftwareSignerFromHex(privateKey string, opts ...SoftwareOption) (*SoftwareSigner, error) {
	privateKey = strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if privateKey == "" {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "private key is empty")
	}

	raw, err := hex.DecodeString(privateKey)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "private key is not hex")
	}
	defer address.Zero(raw)

	return NewSoftwareSigner(raw, opts...)
}

// SigningType returns SigningTypeSoftware
func (s *SoftwareSigner) SigningType() SigningType {
	return SigningTypeSoftware
}

// Address returns the Ethereum account address of the key
func (s *SoftwareSigner) Address() common.Address {
	return s.address
}

// ChainAddress returns the address in the native format of the signer's chain
func (s *SoftwareSigner) ChainAddress() (string, error) {
	return address.FormatAddress(s.address, s.chainType)
}

// Sign signs payload with the in-memory key
func (s *SoftwareSigner) Sign(ctx context.Context, payload *hardware.SigningPayload) (*hardware.SignResult, error) {
	digest, err := hardware.PayloadDigest(payload)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign digest")
	}

	util.LogFromContext(ctx).Debug().
		Object("signer", s).
		Str("payload", string(payload.Kind)).
		Msg("Signed payload in software")

	return hardware.BuildResult(s.chainType, payload, digest, sig)
}

func (s *SoftwareSigner) String() string {
	return fmt.Sprintf("SoftwareSigner(%s)", s.address.Hex())
}

// GoString keeps %#v from printing the key
func (s *SoftwareSigner) GoString() string {
	return s.String()
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (s *SoftwareSigner) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", string(SigningTypeSoftware)).
		Str("chain", string(s.chainType)).
		Str("address", s.address.Hex())
}
