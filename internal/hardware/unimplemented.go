package hardware

import (
	"context"
)

// UnimplementedWallet can be embedded by hardware classes that do not support every
// capability yet. Each operation fails with ErrNotImplemented.
type UnimplementedWallet struct {
	Type string
}

var _ Wallet = UnimplementedWallet{}

func (UnimplementedWallet) Connect(context.Context, *ConnectOptions) error {
	return ErrNotImplemented
}

func (UnimplementedWallet) Disconnect(context.Context) error {
	return nil
}

func (UnimplementedWallet) IsConnected() bool {
	return false
}

func (UnimplementedWallet) ListAccounts(context.Context, ChainType) ([]Account, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedWallet) DeriveAccount(context.Context, int, ChainType) (Account, error) {
	return Account{}, ErrNotImplemented
}

func (UnimplementedWallet) DeriveAddress(context.Context, string, ChainType) (string, error) {
	return "", ErrNotImplemented
}

func (UnimplementedWallet) Sign(context.Context, *SigningContext) (*SignResult, error) {
	return nil, ErrNotImplemented
}

func (w UnimplementedWallet) Capabilities() Capabilities {
	kind := w.Type
	if kind == "" {
		kind = "unimplemented"
	}
	return Capabilities{Type: kind}
}
