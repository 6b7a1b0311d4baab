package bsim

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/util"
)

// DefaultAID is the application identifier of the BSIM applet
const DefaultAID = "A000000533C000FF860000000000054D"

const (
	claISO     = 0x00
	claPrivate = 0x80

	insSelect      = 0xA4
	insGetData     = 0xCA
	insVerifyBPIN  = 0x7C
	insDeriveKey   = 0xA8
	insSignMessage = 0xAC
	insExportKeys  = 0xC8

	versionLength = 0x02
	digestLength  = 32

	// maxPubkeySegments bounds the continuation reads of a key export
	maxPubkeySegments = 64
)

// Transmitter is a raw channel to a card application
type Transmitter interface {
	// Open opens a logical channel to the application identified by aid
	Open(ctx context.Context, aid []byte) error

	// Transmit sends a command APDU and returns the response APDU including its status word
	Transmit(ctx context.Context, command []byte) ([]byte, error)

	// Close closes the channel
	Close(ctx context.Context) error
}

// commandAPDU represents an application data unit sent to the card
type commandAPDU struct {
	Cla, Ins, P1, P2 uint8
	Data             []byte
	Le               []byte

	// emptyLc emits an explicit zero Lc byte for commands without data
	emptyLc bool
}

// serialize serializes a command APDU
func (c commandAPDU) serialize() ([]byte, error) {
	if len(c.Data) > 0xff {
		return nil, NewTransportError(TransportInvalidPayload, fmt.Sprintf("command data too long (%d bytes)", len(c.Data)), nil)
	}
	if len(c.Le) > 2 {
		return nil, NewTransportError(TransportInvalidPayload, "LE must be empty, 1 byte, or 2 bytes", nil)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{c.Cla, c.Ins, c.P1, c.P2})

	switch {
	case len(c.Data) > 0:
		buf.WriteByte(uint8(len(c.Data)))
		buf.Write(c.Data)
	case c.emptyLc:
		buf.WriteByte(0)
	}

	buf.Write(c.Le)
	return buf.Bytes(), nil
}

type responseStatus int

const (
	responseSuccess responseStatus = iota
	responsePending
)

// responseAPDU represents an application data unit received from the card
type responseAPDU struct {
	Data     []byte
	Sw1, Sw2 uint8
}

func (r responseAPDU) statusWord() string {
	return fmt.Sprintf("%02X%02X", r.Sw1, r.Sw2)
}

// deserialize deserializes a response APDU
func (r *responseAPDU) deserialize(data []byte) error {
	if len(data) < 2 {
		return errors.Errorf("can not deserialize data: payload too short (%d < 2)", len(data))
	}

	r.Data = append([]byte(nil), data[:len(data)-2]...)
	r.Sw1 = data[len(data)-2]
	r.Sw2 = data[len(data)-1]
	return nil
}

// classify maps the status word to success, pending or a CardError.
// 91xx signals a pending proactive command after a successful execution.
func (r responseAPDU) classify() (responseStatus, error) {
	status := r.statusWord()
	switch {
	case status == StatusSuccess, r.Sw1 == 0x91:
		return responseSuccess, nil
	case status == StatusPending:
		return responsePending, nil
	default:
		return 0, NewCardError(status)
	}
}

// APDUCard implements Card over a Transmitter using the BSIM command set
type APDUCard struct {
	transmitter Transmitter
	aid         []byte
}

var _ Card = (*APDUCard)(nil)

// NewAPDUCard creates a card speaking to the applet aid (hex, empty selects DefaultAID)
func NewAPDUCard(transmitter Transmitter, aid string) (*APDUCard, error) {
	if transmitter == nil {
		return nil, errors.New("transmitter must not be nil")
	}

	if strings.TrimSpace(aid) == "" {
		aid = DefaultAID
	}

	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(aid), "0x"))
	if err != nil || len(decoded) == 0 {
		return nil, NewTransportError(TransportInvalidPayload, fmt.Sprintf("invalid AID %q", aid), err)
	}

	return &APDUCard{
		transmitter: transmitter,
		aid:         decoded,
	}, nil
}

// Create opens the channel to the BSIM applet
func (c *APDUCard) Create(ctx context.Context) error {
	if err := c.transmitter.Open(ctx, c.aid); err != nil {
		return NewTransportError(TransportChannelOpenFailed, "failed to open APDU channel", err)
	}
	return nil
}

// Version reads the applet version (00CA)
func (c *APDUCard) Version(ctx context.Context) (string, error) {
	response, status, err := c.dispatch(ctx, commandAPDU{
		Cla: claISO, Ins: insGetData,
		Le: []byte{versionLength},
	})
	if err != nil {
		return "", err
	}
	if status != responseSuccess {
		return "", NewCardError(StatusPending)
	}

	return strings.ToUpper(hex.EncodeToString(response.Data)), nil
}

// ExportPubkeys reads the key table (80C8), following 6300 continuations
func (c *APDUCard) ExportPubkeys(ctx context.Context) ([]RawPubkey, error) {
	log := util.LogFromContext(ctx)

	var buffer []byte
	continuation := false
	for segments := 0; ; segments++ {
		if segments > maxPubkeySegments {
			return nil, errors.Wrapf(NewCardError(StatusPending), "exceeded %d pubkey segments", maxPubkeySegments)
		}

		command := commandAPDU{Cla: claPrivate, Ins: insExportKeys, emptyLc: true}
		if continuation {
			command.P2 = 0x01
		}

		response, status, err := c.dispatch(ctx, command)
		if err != nil {
			return nil, err
		}
		buffer = append(buffer, response.Data...)

		if status == responseSuccess {
			log.Debug().Int("segments", segments+1).Int("bytes", len(buffer)).Msg("Exported BSIM pubkeys")
			return parsePubkeyStream(buffer)
		}
		continuation = true
	}
}

// DeriveKey creates a key at the next card chosen index (80A8)
func (c *APDUCard) DeriveKey(ctx context.Context, coinType uint32, algorithm byte) error {
	data := binary.BigEndian.AppendUint32(nil, coinType)
	data = append(data, algorithm)

	_, status, err := c.dispatch(ctx, commandAPDU{
		Cla: claPrivate, Ins: insDeriveKey, P2: 0x02,
		Data: data,
	})
	if err != nil {
		return err
	}
	if status != responseSuccess {
		return errors.Wrap(NewCardError(StatusPending), "key derivation requires additional APDU exchange")
	}
	return nil
}

// Sign signs digest with the key at (coinType, index) (80AC)
func (c *APDUCard) Sign(ctx context.Context, digest []byte, coinType uint32, index int) (*Signature, error) {
	if len(digest) != digestLength {
		return nil, NewTransportError(TransportInvalidPayload, fmt.Sprintf("digest must be %d bytes, got %d", digestLength, len(digest)), nil)
	}
	if index < 0 || index > maxKeyIndex {
		return nil, NewTransportError(TransportInvalidPayload, fmt.Sprintf("key index %d out of range", index), nil)
	}

	data := binary.BigEndian.AppendUint32(nil, coinType)
	data = append(data, uint8(index))
	data = append(data, digest...)

	response, status, err := c.dispatch(ctx, commandAPDU{
		Cla: claPrivate, Ins: insSignMessage,
		Data: data,
	})
	if err != nil {
		return nil, err
	}
	if status != responseSuccess {
		return nil, errors.Wrap(NewCardError(StatusPending), "signature requires additional APDU exchange")
	}
	if len(response.Data) == 0 {
		return nil, errors.Wrap(NewCardError(StatusUnknown), "signature payload is empty")
	}

	return parseDERSignature(response.Data)
}

// VerifyBPIN triggers BPIN verification (807C)
func (c *APDUCard) VerifyBPIN(ctx context.Context) error {
	_, status, err := c.dispatch(ctx, commandAPDU{Cla: claPrivate, Ins: insVerifyBPIN, emptyLc: true})
	if err != nil {
		return err
	}
	if status != responseSuccess {
		return errors.Wrap(NewCardError(StatusPending), "unexpected pending status during BPIN verification")
	}
	return nil
}

// Close closes the channel
func (c *APDUCard) Close(ctx context.Context) error {
	if err := c.transmitter.Close(ctx); err != nil {
		return NewTransportError(TransportChannelCloseFailed, "failed to close APDU channel", err)
	}
	return nil
}

func (c *APDUCard) dispatch(ctx context.Context, command commandAPDU) (*responseAPDU, responseStatus, error) {
	payload, err := command.serialize()
	if err != nil {
		return nil, 0, err
	}

	raw, err := c.transmitter.Transmit(ctx, payload)
	if err != nil {
		return nil, 0, NewTransportError(TransportTransmitFailed, "failed to transmit APDU", err)
	}

	response := new(responseAPDU)
	if err := response.deserialize(raw); err != nil {
		return nil, 0, NewTransportError(TransportTransmitFailed, "malformed response APDU", err)
	}

	status, err := response.classify()
	if err != nil {
		util.LogFromContext(ctx).Debug().
			Str("ins", fmt.Sprintf("%02X", command.Ins)).
			Str("status", response.statusWord()).
			Msg("BSIM command failed")
		return nil, 0, err
	}

	return response, status, nil
}
