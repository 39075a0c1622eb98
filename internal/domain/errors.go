package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions of a replay run.
// They can be checked with errors.Is against any error returned by the driver.
var (
	// ErrConnection is matched by every ConnectionError.
	ErrConnection = errors.New("panelreplay: connection failed")

	// ErrWriteFailed is matched by a TransportError of kind WriteFailed.
	ErrWriteFailed = errors.New("panelreplay: write failed")

	// ErrReadTimeout is matched by a TransportError of kind ReadTimeout.
	ErrReadTimeout = errors.New("panelreplay: read timeout")

	// ErrReadFailed is matched by a TransportError of kind ReadFailed.
	ErrReadFailed = errors.New("panelreplay: read failed")

	// ErrSessionBusy is returned when a sequence is already running on the session.
	ErrSessionBusy = errors.New("panelreplay: session busy")

	// ErrSessionClosed is returned when running a sequence on a closed or faulted session.
	ErrSessionClosed = errors.New("panelreplay: session closed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("panelreplay: invalid configuration")
)

// ConnectionError reports a failed initial connect.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is reports ErrConnection as a match.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// TransportErrorKind classifies a TransportError.
type TransportErrorKind int

const (
	WriteFailed TransportErrorKind = iota
	ReadTimeout
	ReadFailed
)

// String returns the kind name.
func (k TransportErrorKind) String() string {
	switch k {
	case WriteFailed:
		return "WriteFailed"
	case ReadTimeout:
		return "ReadTimeout"
	case ReadFailed:
		return "ReadFailed"
	default:
		return "Unknown"
	}
}

// TransportError reports a failure on an established session.
// Index is the 0-based position of the entry in the sequence.
type TransportError struct {
	Kind        TransportErrorKind
	Index       int
	Description string
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s at command %d (%s): %v", e.Kind, e.Index, e.Description, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *TransportError) Is(target error) bool {
	switch e.Kind {
	case WriteFailed:
		return target == ErrWriteFailed
	case ReadTimeout:
		return target == ErrReadTimeout
	case ReadFailed:
		return target == ErrReadFailed
	}
	return false
}

// Fatal reports whether the error leaves the session unusable.
func (e *TransportError) Fatal() bool {
	return e.Kind != ReadTimeout
}
