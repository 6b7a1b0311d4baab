// Package hardware defines the contract every physical signer (secure element, dongle)
// implements, plus the signing payload and result shapes shared with software signers.
package hardware

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github/chapool/go-signer/internal/queue"
)

// ChainType identifies a chain family
type ChainType string

const (
	ChainEthereum ChainType = "ethereum"
	ChainConflux  ChainType = "conflux"
)

// Wallet is the capability set of a hardware signer.
// Implementations are not required to serialize device access themselves; callers route
// device calls through a queue.Queue (see Queued).
type Wallet interface {
	// Connect establishes the session with the device. Fails with *UnavailableError if the
	// device is absent, locked or unreachable.
	Connect(ctx context.Context, opts *ConnectOptions) error

	// Disconnect releases the session, safe to call when not connected
	Disconnect(ctx context.Context) error

	// IsConnected reports liveness without touching the device
	IsConnected() bool

	// ListAccounts enumerates accounts already provisioned on the device
	ListAccounts(ctx context.Context, chainType ChainType) ([]Account, error)

	// DeriveAccount returns the account at index, always the same for the same device
	DeriveAccount(ctx context.Context, index int, chainType ChainType) (Account, error)

	// DeriveAddress returns the address located at an explicit derivation path
	DeriveAddress(ctx context.Context, path string, chainType ChainType) (string, error)

	// Sign signs the payload of the context with the key at its derivation path
	Sign(ctx context.Context, signingContext *SigningContext) (*SignResult, error)

	// Capabilities describes what the hardware supports
	Capabilities() Capabilities
}

// Queued is implemented by wallets exposing the queue serializing their device channel
type Queued interface {
	Queue() *queue.Queue
}

// ConnectOptions selects how to reach the device
type ConnectOptions struct {
	Transport        string // "apdu" or "ble", empty selects the platform default
	DeviceIdentifier string
}

// Capabilities is a static descriptor of a hardware class
type Capabilities struct {
	Type         string      `json:"type"`
	Chains       []ChainType `json:"chains,omitempty"`
	AccountLimit int         `json:"accountLimit,omitempty"`
}

// Account describes a key provisioned on a device
type Account struct {
	Index          int       `json:"index"`
	ChainType      ChainType `json:"chainType"`
	Address        string    `json:"address"`
	DerivationPath string    `json:"derivationPath,omitempty"`
	PublicKey      string    `json:"publicKey,omitempty"` // uncompressed, 0x04 prefixed hex
}

// PayloadKind tags a SigningPayload
type PayloadKind string

const (
	PayloadTransaction     PayloadKind = "transaction"
	PayloadPersonalMessage PayloadKind = "personal_message"
	PayloadTypedData       PayloadKind = "typed_data"
	PayloadRaw             PayloadKind = "raw"
)

// SigningPayload is the data to sign. Only the fields of its Kind are read.
type SigningPayload struct {
	Kind PayloadKind

	Transaction *types.Transaction // PayloadTransaction
	ChainID     *big.Int           // PayloadTransaction

	Message []byte // PayloadPersonalMessage

	TypedData *apitypes.TypedData // PayloadTypedData

	Digest []byte // PayloadRaw, 32 bytes
}

// SigningContext binds a payload to the key that signs it
type SigningContext struct {
	ChainType      ChainType
	DerivationPath string
	Payload        *SigningPayload
}

// ResultType tags a SignResult
type ResultType string

const (
	ResultSignature      ResultType = "signature"
	ResultRawTransaction ResultType = "raw_transaction"
	ResultTypedSignature ResultType = "typed_signature"
)

// SignResult is the outcome of a signing request. ResultType declares which fields are set.
type SignResult struct {
	ResultType ResultType
	ChainType  ChainType

	// ResultSignature
	R      common.Hash
	S      common.Hash
	V      uint8 // 27 or 28
	Digest common.Hash

	// ResultRawTransaction
	RawTransaction []byte
	Hash           common.Hash

	// ResultTypedSignature, 65 bytes r || s || v with v in {27, 28}
	Signature []byte
}
