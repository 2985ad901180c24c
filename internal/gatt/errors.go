package gatt

import (
	"errors"
	"fmt"
)

// Error kinds. A *LinkError carries one of these as its Kind so callers can
// classify failures with errors.Is.
var (
	// ErrDiscoveryEmpty is not a failure: discovery found nothing yet and is retried
	ErrDiscoveryEmpty = errors.New("no candidates discovered")

	ErrConnect   = errors.New("connect failed")
	ErrSubscribe = errors.New("subscribe failed")
	ErrRead      = errors.New("read failed")
	ErrWrite     = errors.New("write failed")

	// ErrLinkLost is returned when the link was down and the single
	// reconnect attempt failed
	ErrLinkLost = errors.New("connection to device was lost and could not be reestablished")
)

// NoSlot marks a LinkError that is not tied to an Rx or Tx index
const NoSlot = -1

// LinkError represents a transport failure classified at the link boundary
type LinkError struct {
	Kind error // One of the package error kinds
	Slot int   // Rx or Tx index affected, NoSlot if none
	Err  error // Underlying transport error (if any)
}

// NewLinkError creates a LinkError of the given kind
func NewLinkError(kind error, slot int, err error) *LinkError {
	return &LinkError{Kind: kind, Slot: slot, Err: err}
}

// Error implements the error interface
func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the transport cause to errors.Is/As
func (e *LinkError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether a later attempt may succeed without operator
// action. Connection failures are retried lazily on next use.
func (e *LinkError) Retryable() bool {
	return errors.Is(e.Kind, ErrLinkLost) || errors.Is(e.Kind, ErrConnect) || errors.Is(e.Kind, ErrDiscoveryEmpty)
}

// Cause returns the transport cause, or the error itself when it is not a
// LinkError. Status lines show the cause text.
func Cause(err error) error {
	var le *LinkError
	if errors.As(err, &le) && le.Err != nil {
		return le.Err
	}
	return err
}
