package app

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-signer/internal/bsim"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/metrics"
	"github/chapool/go-signer/internal/queue"
	"github/chapool/go-signer/internal/wallet/keystore"
	"github/chapool/go-signer/internal/wallet/seed"
)

// ErrSimMnemonicMissing is returned when the sim transport is configured without a mnemonic
var ErrSimMnemonicMissing = errors.New("sim transport requires SIGNER_BSIM_SIMMNEMONIC")

// NewKeystore returns the keystore service, light scrypt parameters are meant for development
//
//nolint:ireturn
func NewKeystore(cfg config.Server) keystore.Service {
	if cfg.Vault.LightScrypt {
		return keystore.NewService(keystore.LightScryptParams())
	}
	return keystore.NewService(nil)
}

// NewCard returns the card selected by SIGNER_BSIM_TRANSPORT
//
//nolint:ireturn
func NewCard(cfg config.Server) (bsim.Card, error) {
	switch cfg.BSIM.Transport {
	case config.BSIMTransportSim:
		if cfg.BSIM.SimMnemonic == "" {
			return nil, ErrSimMnemonicMissing
		}

		seeds := seed.NewManager()
		if err := seeds.Initialize(cfg.BSIM.SimMnemonic, cfg.BSIM.SimPassphrase); err != nil {
			return nil, errors.Wrap(err, "failed to initialize sim card seed")
		}

		card, err := bsim.NewSimCard(seeds, bsim.WithStateFile(cfg.BSIM.SimStatePath))
		if err != nil {
			return nil, err
		}
		return card, nil
	case config.BSIMTransportPCSC:
		card, err := bsim.NewAPDUCard(bsim.NewPCSCTransmitter(cfg.BSIM.PCSCDaemon, cfg.BSIM.Reader), cfg.BSIM.AID)
		if err != nil {
			return nil, err
		}
		return card, nil
	default:
		return nil, errors.Errorf("unknown bsim transport %q", cfg.BSIM.Transport)
	}
}

// NewSession serializes card access through a queue observed by metrics
func NewSession(card bsim.Card, m *metrics.Service) *bsim.Session {
	return bsim.NewSession(card, queue.WithObserver(m))
}

func NewWallet(cfg config.Server, session *bsim.Session) (*bsim.Wallet, error) {
	return bsim.NewWallet(session, bsim.WithAccountLimit(cfg.BSIM.AccountLimit))
}

// DeviceID identifies the configured card in the hardware registry
func DeviceID(cfg config.Server) string {
	if cfg.BSIM.Transport == config.BSIMTransportPCSC && cfg.BSIM.Reader != "" {
		return cfg.BSIM.Reader
	}
	return cfg.BSIM.Transport
}

// NewRegistry registers the bsim wallet under DeviceID
func NewRegistry(cfg config.Server, wallet *bsim.Wallet) (*hardware.Registry, error) {
	registry := hardware.NewRegistry()
	if err := registry.Register(bsim.HardwareType, DeviceID(cfg), wallet); err != nil {
		return nil, errors.Wrap(err, "failed to register bsim wallet")
	}

	log.Debug().Str("type", bsim.HardwareType).Str("device", DeviceID(cfg)).Msg("Registered hardware wallet")
	return registry, nil
}
