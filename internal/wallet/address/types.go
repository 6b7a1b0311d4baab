package address

import (
	"context"

	"github/chapool/go-signer/internal/hardware"
)

const (
	// CoinTypeEthereum is the SLIP-44 coin type of Ethereum
	CoinTypeEthereum uint32 = 60
	// CoinTypeConflux is the SLIP-44 coin type of Conflux
	CoinTypeConflux uint32 = 503
)

// Service provides address derivation from an HD seed
type Service interface {
	// DeriveAddress derives an address from seed and BIP44 path, formatted for chainType
	DeriveAddress(ctx context.Context, seed []byte, path string, chainType hardware.ChainType) (string, error)

	// DerivePrivateKey derives a private key from seed and BIP44 path
	// WARNING: Private key should be cleared after use
	DerivePrivateKey(ctx context.Context, seed []byte, path string, chainType hardware.ChainType) ([]byte, error)

	// GetBIP44Path gets the BIP44 path of an address index for chainType
	GetBIP44Path(chainType hardware.ChainType, addressIndex int) (string, error)
}
