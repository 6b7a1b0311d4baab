package bsim

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Canonicalize returns the signature with S in the lower half of the curve order.
// Ethereum rejects high-S signatures, cards may return either.
func Canonicalize(sig *Signature) (*Signature, error) {
	if sig == nil {
		return nil, errors.Wrap(ErrInvalidSignature, "signature is nil")
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig.S[:]); overflow {
		return nil, errors.Wrap(ErrInvalidSignature, "S exceeds curve order")
	}
	if s.IsZero() {
		return nil, errors.Wrap(ErrInvalidSignature, "S is zero")
	}

	var r secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R[:]); overflow || r.IsZero() {
		return nil, errors.Wrap(ErrInvalidSignature, "R out of range")
	}

	if s.IsOverHalfOrder() {
		s.Negate()
	}

	return &Signature{R: sig.R, S: s.Bytes()}, nil
}

// RecoverySignature returns the 65-byte r || s || v signature (v in {0, 1}) whose recovered
// signer is expected. sig must be canonical.
func RecoverySignature(digest []byte, sig *Signature, expected common.Address) ([]byte, error) {
	if len(digest) != digestLength {
		return nil, errors.Errorf("digest must be %d bytes, got %d", digestLength, len(digest))
	}

	out := make([]byte, crypto.SignatureLength)
	copy(out[:32], sig.R[:])
	copy(out[32:64], sig.S[:])

	for v := byte(0); v < 2; v++ {
		out[crypto.RecoveryIDOffset] = v

		pub, err := crypto.SigToPub(digest, out)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*pub) == expected {
			return out, nil
		}
	}

	return nil, errors.Wrapf(ErrRecoveryFailed, "expected signer %s", expected.Hex())
}
