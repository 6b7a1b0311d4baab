package bsim

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
)

var (
	// ErrNotInitialized is returned by card calls issued before Session.EnsureInitialized
	ErrNotInitialized = errors.New("bsim session not initialized")

	// ErrRecoveryFailed is returned when no recovery id maps a card signature back to the signing key
	ErrRecoveryFailed = errors.New("failed to derive recovery parameter from card signature")

	// ErrInvalidSignature is returned for signatures the card encoded incorrectly
	ErrInvalidSignature = errors.New("invalid card signature")
)

// TransportErrorCode classifies failures of the channel to the card
type TransportErrorCode string

const (
	TransportUnsupported        TransportErrorCode = "unsupported_platform"
	TransportChannelOpenFailed  TransportErrorCode = "channel_open_failed"
	TransportChannelNotOpen     TransportErrorCode = "channel_not_open"
	TransportChannelCloseFailed TransportErrorCode = "channel_close_failed"
	TransportDeviceNotFound     TransportErrorCode = "device_not_found"
	TransportTransmitFailed     TransportErrorCode = "transmit_failed"
	TransportInvalidPayload     TransportErrorCode = "invalid_apdu_payload"
	TransportSelectAIDFailed    TransportErrorCode = "select_aid_failed"
)

// TransportError reports a failure of the channel rather than of the card
type TransportError struct {
	Code    TransportErrorCode
	Message string
	Err     error
}

// NewTransportError wraps cause into a TransportError unless it already is one
func NewTransportError(code TransportErrorCode, message string, cause error) error {
	var transportErr *TransportError
	if cause != nil && errors.As(cause, &transportErr) {
		return cause
	}
	return &TransportError{Code: code, Message: message, Err: cause}
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bsim transport %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("bsim transport %s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const (
	StatusSuccess = "9000"
	StatusPending = "6300"
	StatusUnknown = "A000"
	StatusLocked  = "6983"
)

var cardStatusMessages = map[string]string{
	StatusSuccess: "Execution success",
	StatusUnknown: "Unknown error",
	"6E00":        "Failed to call BSIM. Error code: 6E00",
	"6D00":        "Failed to call BSIM. Error code: 6D00",
	"6700":        "Failed to call BSIM. Error code: 6700",
	"6A80":        "Failed to call BSIM. Error code: 6A80",
	"6A84":        "Failed to call BSIM. Error code: 6A84",
	"6A86":        "Failed to call BSIM. Error code: 6A86",
	"6A88":        "Wrong BPIN, unable to complete authentication. Error code: 6A88",
	"6982":        "BSIM has not yet completed certification. Error code: 6982",
	StatusLocked:  "BSIM card is locked. Error code: 6983",
	"6984":        "Failed to call BSIM. Error code: 6984",
	"6985":        "BSIM error. Error code: 6985",
	StatusPending: "Authentication failed.",
}

// CardError is a non-success status word returned by the card
type CardError struct {
	Status  string
	Message string
}

// NewCardError builds a CardError with the known message of status
func NewCardError(status string) *CardError {
	status = strings.ToUpper(status)
	return &CardError{Status: status, Message: StatusMessage(status)}
}

func (e *CardError) Error() string {
	return fmt.Sprintf("bsim card status %s: %s", e.Status, e.Message)
}

// StatusMessage returns the description of a card status word
func StatusMessage(status string) string {
	status = strings.ToUpper(status)
	if message, ok := cardStatusMessages[status]; ok {
		return message
	}
	if len(status) == 4 && strings.HasPrefix(status, "63C") {
		return fmt.Sprintf("Authentication failed, %d attempts remaining.", hexNibble(status[3]))
	}
	return fmt.Sprintf("Failed to call BSIM. Error code: %s", status)
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// IsCardStatus reports whether err carries the card status word status
func IsCardStatus(err error, status string) bool {
	var cardErr *CardError
	return errors.As(err, &cardErr) && strings.EqualFold(cardErr.Status, status)
}

// normalizeError maps channel and lock failures to hardware.UnavailableError so callers can
// route the user to recovery. Every other error is returned unchanged.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var unavailable *hardware.UnavailableError
	if errors.As(err, &unavailable) {
		return err
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		switch transportErr.Code {
		case TransportChannelOpenFailed, TransportChannelNotOpen, TransportDeviceNotFound:
			return hardware.NewUnavailableError(hardware.ReasonCardMissing, err)
		}
	}

	if IsCardStatus(err, StatusLocked) {
		return hardware.NewUnavailableError(hardware.ReasonCardLocked, err)
	}

	return err
}
