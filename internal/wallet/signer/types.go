package signer

import (
	"context"

	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
)

// SigningType tells where the key of a Signer lives
type SigningType string

const (
	SigningTypeSoftware SigningType = "software"
	SigningTypeHardware SigningType = "hardware"
)

// ErrInvalidSignerConfiguration is returned when a signer is built from incomplete or invalid input
var ErrInvalidSignerConfiguration = errors.New("invalid signer configuration")

// Signer signs payloads with a single key
type Signer interface {
	// SigningType reports whether the key is held in memory or by a device
	SigningType() SigningType

	// Sign signs payload and returns the result in the shape of its kind
	Sign(ctx context.Context, payload *hardware.SigningPayload) (*hardware.SignResult, error)
}

// EVMTransactionRequest describes an EIP-1559 transaction with decimal string amounts
type EVMTransactionRequest struct {
	ChainID              int64  // Chain ID (1 for Ethereum mainnet, 1030 for Conflux eSpace, etc.)
	To                   string // Recipient address (hex string with 0x prefix)
	Value                string // Amount in wei (as string to avoid precision loss)
	GasLimit             uint64 // Gas limit
	MaxFeePerGas         string // Max fee per gas (in wei, as string)
	MaxPriorityFeePerGas string // Max priority fee per gas (in wei, as string)
	Nonce                uint64 // Transaction nonce
	Data                 []byte // Transaction data (for contract calls)
}
