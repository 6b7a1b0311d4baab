//go:build wireinject

package app

import (
	"github.com/google/wire"
	"github/chapool/go-signer/internal/bsim"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/metrics"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/signer"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// appSet groups the default set of providers that are required for initing an app
var appSet = wire.NewSet(
	newAppWithComponents,
	metrics.New,
	NewKeystore,
	address.NewService,
	NewSession,
	NewWallet,
	NewRegistry,
	signer.NewFactory,
)

// InitNewApp returns a new App with the card selected by the configuration
func InitNewApp(
	_ config.Server,
) (*App, error) {
	wire.Build(appSet, NewCard)
	return new(App), nil
}

// InitNewAppWithCard returns a new App over the given card.
// All the other components are initialized via go wire according to the configuration.
func InitNewAppWithCard(
	_ config.Server,
	_ bsim.Card,
) (*App, error) {
	wire.Build(appSet)
	return new(App), nil
}
