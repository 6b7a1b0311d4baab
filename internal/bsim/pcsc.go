package bsim

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pcsc "github.com/gballet/go-libpcsclite"
	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/util"
)

// DefaultPCSCDaemonPath is the socket pcscd listens on
var DefaultPCSCDaemonPath = pcsc.PCSCDSockName

// PCSCTransmitter reaches the card through the PC/SC daemon. Reader selects a reader by
// substring match, empty picks the first reader with a card.
type PCSCTransmitter struct {
	DaemonPath string
	Reader     string

	mu     sync.Mutex
	client *pcsc.Client
	card   *pcsc.Card
}

var _ Transmitter = (*PCSCTransmitter)(nil)

// NewPCSCTransmitter creates a transmitter, daemonPath defaults to DefaultPCSCDaemonPath
func NewPCSCTransmitter(daemonPath string, reader string) *PCSCTransmitter {
	if daemonPath == "" {
		daemonPath = DefaultPCSCDaemonPath
	}
	return &PCSCTransmitter{DaemonPath: daemonPath, Reader: reader}
}

// Open connects to a reader and selects aid
func (t *PCSCTransmitter) Open(ctx context.Context, aid []byte) error {
	log := util.LogFromContext(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card != nil {
		return t.selectAID(aid)
	}

	client, err := pcsc.EstablishContext(t.DaemonPath, pcsc.ScopeSystem)
	if err != nil {
		return NewTransportError(TransportChannelOpenFailed, "failed to reach pcscd", err)
	}

	readers, err := client.ListReaders()
	if err != nil || len(readers) == 0 {
		_ = client.ReleaseContext()
		return NewTransportError(TransportDeviceNotFound, "no smart card reader found", err)
	}

	var lastErr error
	for _, reader := range readers {
		if t.Reader != "" && !strings.Contains(reader, t.Reader) {
			continue
		}

		card, err := client.Connect(reader, pcsc.ShareShared, pcsc.ProtocolAny)
		if err != nil {
			log.Debug().Err(err).Str("reader", reader).Msg("Failed to open smart card")
			lastErr = err
			continue
		}

		t.client = client
		t.card = card
		if err := t.selectAID(aid); err != nil {
			t.release()
			return err
		}

		log.Debug().Str("reader", reader).Msg("Opened BSIM channel")
		return nil
	}

	_ = client.ReleaseContext()
	return NewTransportError(TransportDeviceNotFound, "no card found in any reader", lastErr)
}

func (t *PCSCTransmitter) selectAID(aid []byte) error {
	command, err := commandAPDU{Cla: claISO, Ins: insSelect, P1: 0x04, Data: aid}.serialize()
	if err != nil {
		return err
	}

	raw, _, err := t.card.Transmit(command)
	if err != nil {
		return NewTransportError(TransportSelectAIDFailed, "failed to select applet", err)
	}

	response := new(responseAPDU)
	if err := response.deserialize(raw); err != nil {
		return NewTransportError(TransportSelectAIDFailed, "malformed select response", err)
	}
	if _, err := response.classify(); err != nil {
		return NewTransportError(TransportChannelOpenFailed, fmt.Sprintf("applet selection returned %s", response.statusWord()), err)
	}

	return nil
}

// Transmit sends a command APDU
func (t *PCSCTransmitter) Transmit(_ context.Context, command []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return nil, NewTransportError(TransportChannelNotOpen, "APDU channel is not open", nil)
	}

	response, _, err := t.card.Transmit(command)
	if err != nil {
		return nil, errors.Wrap(err, "pcsc transmit")
	}
	return response, nil
}

// Close disconnects from the card and releases the daemon context
func (t *PCSCTransmitter) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.release()
}

func (t *PCSCTransmitter) release() error {
	var err error
	if t.card != nil {
		err = t.card.Disconnect(pcsc.LeaveCard)
		t.card = nil
	}
	if t.client != nil {
		if releaseErr := t.client.ReleaseContext(); err == nil {
			err = releaseErr
		}
		t.client = nil
	}
	return err
}
