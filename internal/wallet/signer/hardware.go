package signer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/queue"
	"github/chapool/go-signer/internal/util"
)

// HardwareConfig selects the device and key a HardwareSigner signs with
type HardwareConfig struct {
	Wallet         hardware.Wallet
	Queue          *queue.Queue // optional when Wallet implements hardware.Queued
	DerivationPath string
	ChainType      hardware.ChainType
}

// HardwareSigner delegates signing to a hardware.Wallet, serialized through the device queue
type HardwareSigner struct {
	wallet         hardware.Wallet
	queue          *queue.Queue
	derivationPath string
	chainType      hardware.ChainType
}

var _ Signer = (*HardwareSigner)(nil)

// NewHardwareSigner validates config without touching the device
func NewHardwareSigner(config HardwareConfig) (*HardwareSigner, error) {
	if config.Wallet == nil {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "hardware wallet is required")
	}

	path := strings.TrimSpace(config.DerivationPath)
	if path == "" {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "derivation path is required")
	}

	if config.ChainType == "" {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "chain type is required")
	}

	q := config.Queue
	if q == nil {
		if queued, ok := config.Wallet.(hardware.Queued); ok {
			q = queued.Queue()
		}
	}
	if q == nil {
		return nil, errors.Wrap(ErrInvalidSignerConfiguration, "no queue serializes the hardware wallet")
	}

	return &HardwareSigner{
		wallet:         config.Wallet,
		queue:          q,
		derivationPath: path,
		chainType:      config.ChainType,
	}, nil
}

// SigningType returns SigningTypeHardware
func (s *HardwareSigner) SigningType() SigningType {
	return SigningTypeHardware
}

// DerivationPath returns the path of the signing key
func (s *HardwareSigner) DerivationPath() string {
	return s.derivationPath
}

// ChainType returns the chain the signer signs for
func (s *HardwareSigner) ChainType() hardware.ChainType {
	return s.chainType
}

// Sign asks the device to sign payload. Fails with hardware.ErrNotImplemented when the
// wallet has no signing path.
func (s *HardwareSigner) Sign(ctx context.Context, payload *hardware.SigningPayload) (*hardware.SignResult, error) {
	if payload == nil {
		return nil, errors.Wrap(hardware.ErrInvalidPayload, "payload is nil")
	}

	result, err := queue.Do(ctx, s.queue, "hardware_sign", func(ctx context.Context) (*hardware.SignResult, error) {
		return s.wallet.Sign(ctx, &hardware.SigningContext{
			ChainType:      s.chainType,
			DerivationPath: s.derivationPath,
			Payload:        payload,
		})
	})
	if err != nil {
		util.LogFromContext(ctx).Debug().Err(err).Object("signer", s).Msg("Hardware signing failed")
		return nil, err
	}

	if result == nil || result.ResultType == "" {
		return nil, errors.Wrapf(hardware.ErrNotImplemented, "%s returned no signature", s.wallet.Capabilities().Type)
	}

	return result, nil
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (s *HardwareSigner) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", string(SigningTypeHardware)).
		Str("hardware", s.wallet.Capabilities().Type).
		Str("chain", string(s.chainType)).
		Str("path", s.derivationPath)
}
