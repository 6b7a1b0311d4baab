package hardware

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

const (
	digestLength    = 32
	signatureLength = crypto.SignatureLength
	recoveryOffset  = 27
)

// ErrInvalidPayload is returned for payloads missing the fields of their kind
var ErrInvalidPayload = errors.New("invalid signing payload")

// PayloadDigest returns the 32-byte hash a signer has to sign for payload
func PayloadDigest(payload *SigningPayload) (common.Hash, error) {
	if payload == nil {
		return common.Hash{}, errors.Wrap(ErrInvalidPayload, "payload is nil")
	}

	switch payload.Kind {
	case PayloadTransaction:
		if payload.Transaction == nil || payload.ChainID == nil {
			return common.Hash{}, errors.Wrap(ErrInvalidPayload, "transaction and chain id are required")
		}
		return types.LatestSignerForChainID(payload.ChainID).Hash(payload.Transaction), nil

	case PayloadPersonalMessage:
		return common.BytesToHash(accounts.TextHash(payload.Message)), nil

	case PayloadTypedData:
		if payload.TypedData == nil {
			return common.Hash{}, errors.Wrap(ErrInvalidPayload, "typed data is required")
		}
		hash, _, err := apitypes.TypedDataAndHash(*payload.TypedData)
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "failed to hash typed data")
		}
		return common.BytesToHash(hash), nil

	case PayloadRaw:
		if len(payload.Digest) != digestLength {
			return common.Hash{}, errors.Wrapf(ErrInvalidPayload, "raw digest must be %d bytes, got %d", digestLength, len(payload.Digest))
		}
		return common.BytesToHash(payload.Digest), nil

	default:
		return common.Hash{}, errors.Wrapf(ErrInvalidPayload, "unsupported payload kind %q", payload.Kind)
	}
}

// BuildResult turns a 65-byte [R || S || V] signature (V in {0, 1}) over the payload digest
// into the result shape of the payload kind
func BuildResult(chainType ChainType, payload *SigningPayload, digest common.Hash, sig []byte) (*SignResult, error) {
	if len(sig) != signatureLength {
		return nil, errors.Errorf("signature must be %d bytes, got %d", signatureLength, len(sig))
	}

	switch payload.Kind {
	case PayloadTransaction:
		signer := types.LatestSignerForChainID(payload.ChainID)
		signed, err := payload.Transaction.WithSignature(signer, sig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to attach signature to transaction")
		}

		raw, err := signed.MarshalBinary()
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal transaction")
		}

		return &SignResult{
			ResultType:     ResultRawTransaction,
			ChainType:      chainType,
			RawTransaction: raw,
			Hash:           signed.Hash(),
		}, nil

	case PayloadTypedData:
		serialized := make([]byte, signatureLength)
		copy(serialized, sig)
		serialized[64] += recoveryOffset

		return &SignResult{
			ResultType: ResultTypedSignature,
			ChainType:  chainType,
			Signature:  serialized,
		}, nil

	default:
		return &SignResult{
			ResultType: ResultSignature,
			ChainType:  chainType,
			R:          common.BytesToHash(sig[:32]),
			S:          common.BytesToHash(sig[32:64]),
			V:          sig[64] + recoveryOffset,
			Digest:     digest,
		}, nil
	}
}
