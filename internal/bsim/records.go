package bsim

import (
	"encoding/hex"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

const (
	fieldCoinType  = "coinType"
	fieldIndex     = "index"
	fieldAlgorithm = "alg"
	fieldKey       = "key"

	maxKeyIndex = math.MaxUint8
)

// ErrInvalidPubkeyRecord is returned when the card reports a key record that cannot be decoded
var ErrInvalidPubkeyRecord = errors.New("invalid pubkey record")

// RawPubkey is a key record as reported by a card binding. Values are loosely typed:
// numbers may arrive as any integer kind, float64 or decimal string.
type RawPubkey map[string]any

// PubKey is a validated key record
type PubKey struct {
	CoinType  uint32
	Index     int
	Algorithm byte
	Key       string // hex, encoding as reported by the card
}

// DecodePubkeys validates raw records into PubKeys. A single malformed record fails the batch.
func DecodePubkeys(records []RawPubkey) ([]PubKey, error) {
	keys := make([]PubKey, 0, len(records))
	for i, record := range records {
		key, err := decodePubkey(record)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodePubkey(record RawPubkey) (PubKey, error) {
	coinType, err := readUint(record, fieldCoinType, math.MaxUint32, true)
	if err != nil {
		return PubKey{}, err
	}

	index, err := readUint(record, fieldIndex, maxKeyIndex, true)
	if err != nil {
		return PubKey{}, err
	}

	algorithm, err := readUint(record, fieldAlgorithm, math.MaxUint8, false)
	if err != nil {
		return PubKey{}, err
	}
	if _, ok := record[fieldAlgorithm]; !ok {
		algorithm = uint64(AlgorithmSecp256k1)
	}

	rawKey, ok := record[fieldKey].(string)
	if !ok {
		return PubKey{}, errors.Wrapf(ErrInvalidPubkeyRecord, "%s must be a string, got %T", fieldKey, record[fieldKey])
	}

	key := strings.TrimPrefix(strings.TrimSpace(rawKey), "0x")
	if key == "" {
		return PubKey{}, errors.Wrapf(ErrInvalidPubkeyRecord, "%s is empty", fieldKey)
	}
	if _, err := hex.DecodeString(key); err != nil {
		return PubKey{}, errors.Wrapf(ErrInvalidPubkeyRecord, "%s is not hex: %v", fieldKey, err)
	}

	return PubKey{
		CoinType:  uint32(coinType),
		Index:     int(index),
		Algorithm: byte(algorithm),
		Key:       strings.ToLower(key),
	}, nil
}

func readUint(record RawPubkey, field string, limit uint64, required bool) (uint64, error) {
	value, ok := record[field]
	if !ok || value == nil {
		if required {
			return 0, errors.Wrapf(ErrInvalidPubkeyRecord, "%s is missing", field)
		}
		return 0, nil
	}

	switch v := value.(type) {
	case bool:
		return 0, errors.Wrapf(ErrInvalidPubkeyRecord, "%s must be numeric, got bool", field)
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Wrapf(ErrInvalidPubkeyRecord, "%s is not an integer: %v", field, v)
		}
	}

	n, err := cast.ToInt64E(value)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidPubkeyRecord, "%s: %v", field, err)
	}
	if n < 0 || uint64(n) > limit {
		return 0, errors.Wrapf(ErrInvalidPubkeyRecord, "%s out of range: %d", field, n)
	}

	return uint64(n), nil
}
