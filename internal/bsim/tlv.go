package bsim

import (
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	tagPubkey       = 0xC2
	maxLengthOctets = 2
	scalarLength    = 32
)

// parseTLV reads one tag-length-value object. Long form lengths of up to two octets are accepted.
func parseTLV(s *cryptobyte.String) (byte, []byte, error) {
	var tag, first uint8
	if !s.ReadUint8(&tag) || !s.ReadUint8(&first) {
		return 0, nil, errors.New("TLV chunk must contain at least tag and length bytes")
	}

	length := int(first)
	if first&0x80 != 0 {
		octets := int(first & 0x7f)
		if octets == 0 {
			return 0, nil, errors.New("indefinite-length TLV is not supported")
		}
		if octets > maxLengthOctets {
			return 0, nil, errors.Errorf("TLV length with %d octets is not supported", octets)
		}

		var lengthBytes []byte
		if !s.ReadBytes(&lengthBytes, octets) {
			return 0, nil, errors.New("incomplete TLV length field")
		}

		length = 0
		for _, b := range lengthBytes {
			length = length<<8 | int(b)
		}
	}

	var value []byte
	if !s.ReadBytes(&value, length) {
		return 0, nil, errors.Errorf("TLV value length mismatch: expected %d bytes, got %d", length, len(*s))
	}

	return tag, value, nil
}

// parsePubkeyStream splits the concatenated export payload into C2 records
func parsePubkeyStream(payload []byte) ([]RawPubkey, error) {
	s := cryptobyte.String(payload)
	records := make([]RawPubkey, 0)

	for !s.Empty() {
		tag, value, err := parseTLV(&s)
		if err != nil {
			return nil, err
		}

		record, err := parsePubkeyChunk(tag, value)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// parsePubkeyChunk decodes coinType(4) || index(1) || alg(1) || [keyLength(1)] || key
func parsePubkeyChunk(tag byte, value []byte) (RawPubkey, error) {
	if tag != tagPubkey {
		return nil, errors.Errorf("unexpected TLV tag %02X, expected %02X", tag, tagPubkey)
	}

	s := cryptobyte.String(value)

	var (
		coinType   uint32
		index, alg uint8
	)
	if !s.ReadUint32(&coinType) || !s.ReadUint8(&index) || !s.ReadUint8(&alg) || s.Empty() {
		return nil, errors.New("pubkey TLV payload is too short")
	}

	key := []byte(s)
	// an optional length byte precedes the key when it matches the remaining bytes exactly
	if len(key) > 1 && int(key[0]) > 0 && int(key[0]) == len(key)-1 {
		key = key[1:]
	}

	return RawPubkey{
		fieldCoinType:  coinType,
		fieldIndex:     index,
		fieldAlgorithm: alg,
		fieldKey:       hex.EncodeToString(key),
	}, nil
}

// parseDERSignature extracts R and S from SEQUENCE { INTEGER r, INTEGER s }.
// Integers are read raw so cards that emit non-minimal encodings are still accepted.
func parseDERSignature(der []byte) (*Signature, error) {
	input := cryptobyte.String(der)

	var seq cryptobyte.String
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() {
		return nil, errors.Wrap(ErrInvalidSignature, "DER sequence length mismatch")
	}

	var rBytes, sBytes cryptobyte.String
	if !seq.ReadASN1(&rBytes, asn1.INTEGER) {
		return nil, errors.Wrap(ErrInvalidSignature, "unexpected R tag")
	}
	if !seq.ReadASN1(&sBytes, asn1.INTEGER) {
		return nil, errors.Wrap(ErrInvalidSignature, "unexpected S tag")
	}

	r, err := padScalar(rBytes)
	if err != nil {
		return nil, err
	}
	s, err := padScalar(sBytes)
	if err != nil {
		return nil, err
	}

	return &Signature{R: r, S: s}, nil
}

func padScalar(b []byte) ([scalarLength]byte, error) {
	var out [scalarLength]byte

	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) > scalarLength {
		return out, errors.Wrap(ErrInvalidSignature, "scalar component exceeds 32 bytes")
	}

	copy(out[scalarLength-len(b):], b)
	return out, nil
}
