// Package bsim drives the BSIM secure element: a SIM-hosted key store that derives secp256k1
// keys on the card and signs digests without exposing private keys.
//
// All card traffic goes through one Session, which owns the card's queue.Queue. The
// Provisioner turns the card's key table into chain accounts and provisions new ones, the
// Wallet adapts both to hardware.Wallet.
package bsim

import (
	"context"
)

const (
	// AccountLimit is the number of keys a BSIM card holds per coin type
	AccountLimit = 25

	// AlgorithmSecp256k1 selects ECDSA over secp256k1 when deriving keys
	AlgorithmSecp256k1 byte = 0x01
	// AlgorithmEd25519 selects Ed25519 when deriving keys
	AlgorithmEd25519 byte = 0x02
)

// Card is the binding to a secure element. Implementations do not need to be safe for
// concurrent use, Session serializes every call.
type Card interface {
	// Create opens the channel to the card
	Create(ctx context.Context) error

	// Version returns the applet version as hex
	Version(ctx context.Context) (string, error)

	// ExportPubkeys returns every key provisioned on the card, as the binding reports it
	ExportPubkeys(ctx context.Context) ([]RawPubkey, error)

	// DeriveKey creates a key for coinType at the next index the card chooses
	DeriveKey(ctx context.Context, coinType uint32, algorithm byte) error

	// Sign signs a 32-byte digest with the key at (coinType, index)
	Sign(ctx context.Context, digest []byte, coinType uint32, index int) (*Signature, error)

	// VerifyBPIN asks the card holder to authenticate with the BPIN
	VerifyBPIN(ctx context.Context) error

	// Close closes the channel to the card
	Close(ctx context.Context) error
}

// Signature is an ECDSA signature as the card returns it, without recovery id.
// S is not guaranteed to be in the lower half of the curve order.
type Signature struct {
	R [32]byte
	S [32]byte
}
