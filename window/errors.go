package window

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures
type ErrorKind int

const (
	// InvalidWindow: window <= 0 or window > len(vals); nothing was computed
	InvalidWindow ErrorKind = iota + 1
	// AllocationFailure: pinned host or device memory could not be obtained
	AllocationFailure
	// DeviceUnavailable: a device variant was requested without a device
	DeviceUnavailable
	// Execution: kernel build, launch or transfer failed
	Execution
	// Unsupported: unknown algorithm, space or engine setting
	Unsupported
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case InvalidWindow:
		return "InvalidWindow"
	case AllocationFailure:
		return "AllocationFailure"
	case DeviceUnavailable:
		return "DeviceUnavailable"
	case Execution:
		return "Execution"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is the structured error returned by every engine operation
type Error struct {
	Kind    ErrorKind
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Sentinels for errors.Is; they match any *Error of the same kind
var (
	ErrInvalidWindow     = &Error{Kind: InvalidWindow}
	ErrAllocation        = &Error{Kind: AllocationFailure}
	ErrDeviceUnavailable = &Error{Kind: DeviceUnavailable}
	ErrExecution         = &Error{Kind: Execution}
	ErrUnsupported       = &Error{Kind: Unsupported}
)

// Error implements the error interface
func (e *Error) Error() string {
	if e.Op == "" && e.Message == "" {
		return fmt.Sprintf("window: %s", e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("window: %s in %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("window: %s in %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, op, message string, err error) error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}
