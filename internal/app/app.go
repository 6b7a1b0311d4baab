package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"github/chapool/go-signer/internal/bsim"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/metrics"
	"github/chapool/go-signer/internal/util"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/keystore"
	"github/chapool/go-signer/internal/wallet/signer"
)

// App is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
type App struct {
	Config    config.Server
	Metrics   *metrics.Service
	Registry  *hardware.Registry
	Wallet    *bsim.Wallet
	Keystore  keystore.Service
	Addresses address.Service
	Signers   *signer.Factory
}

// newAppWithComponents is used by wire to initialize the app components
func newAppWithComponents(
	cfg config.Server,
	m *metrics.Service,
	registry *hardware.Registry,
	wallet *bsim.Wallet,
	ks keystore.Service,
	addresses address.Service,
	signers *signer.Factory,
) *App {
	return &App{
		Config:    cfg,
		Metrics:   m,
		Registry:  registry,
		Wallet:    wallet,
		Keystore:  ks,
		Addresses: addresses,
		Signers:   signers,
	}
}

// Ready reports whether every component was initialized
func (a *App) Ready() bool {
	if err := util.IsStructInitialized(a); err != nil {
		log.Debug().Err(err).Msg("App is not fully initialized")
		return false
	}

	return true
}

// Shutdown releases the card
func (a *App) Shutdown(ctx context.Context) []error {
	log.Debug().Msg("Shutting down app")

	var errs []error

	if a.Wallet != nil {
		if err := a.Wallet.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect bsim wallet")
			errs = append(errs, err)
		}
	}

	return errs
}
