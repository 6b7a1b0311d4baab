package hardware

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrHardwareUnavailable is matched (errors.Is) by every *UnavailableError
	ErrHardwareUnavailable = errors.New("hardware unavailable")

	// ErrNotImplemented is returned by operations a hardware class does not provide
	ErrNotImplemented = errors.New("not implemented")

	// ErrAccountCreationFailed signals that a key created on the device could not be found afterwards
	ErrAccountCreationFailed = errors.New("account creation failed")

	// ErrAccountLimit is returned when an index beyond the device capacity is requested
	ErrAccountLimit = errors.New("account limit reached")

	// ErrAccountNotFound is returned when no provisioned key matches a path or index
	ErrAccountNotFound = errors.New("account not found")

	// ErrChainUnsupported is returned for chain families the hardware cannot serve
	ErrChainUnsupported = errors.New("chain not supported")

	// ErrNotConnected is returned when a device operation runs before Connect
	ErrNotConnected = errors.New("hardware not connected")
)

// UnavailableReason tells the presentation layer which recovery flow to offer
type UnavailableReason string

const (
	ReasonCardMissing        UnavailableReason = "card_missing"
	ReasonCardLocked         UnavailableReason = "card_locked"
	ReasonBLEDeviceNotFound  UnavailableReason = "ble_device_not_found"
	ReasonBluetoothDisabled  UnavailableReason = "bluetooth_disabled"
	ReasonPermissionDenied   UnavailableReason = "permission_denied"
	ReasonDeviceUnresponsive UnavailableReason = "device_unresponsive"
)

// UnavailableError reports a device that is absent, locked or unreachable.
// It must reach callers unchanged so they can route the user to recovery.
type UnavailableError struct {
	Reason UnavailableReason
	Err    error
}

// NewUnavailableError wraps cause with reason
func NewUnavailableError(reason UnavailableReason, cause error) *UnavailableError {
	return &UnavailableError{Reason: reason, Err: cause}
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("hardware unavailable (%s)", e.Reason)
	}
	return fmt.Sprintf("hardware unavailable (%s): %v", e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrHardwareUnavailable) hold for every UnavailableError
func (e *UnavailableError) Is(target error) bool {
	return target == ErrHardwareUnavailable
}

// UnavailableReasonOf extracts the reason of an UnavailableError anywhere in err's chain
func UnavailableReasonOf(err error) (UnavailableReason, bool) {
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Reason, true
	}
	return "", false
}
