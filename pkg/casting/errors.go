package casting

import (
	"context"
	"errors"
	"fmt"
)

// Casting errors.
var (
	// ErrCapabilityNotFound is returned synchronously when the selected
	// endpoint does not host the requested cluster. No request is sent.
	ErrCapabilityNotFound = errors.New("casting: capability not found")

	// ErrEndpointNotFound is returned when no endpoint matches a selection.
	ErrEndpointNotFound = errors.New("casting: endpoint not found")

	// ErrTransport matches every *TransportError with errors.Is.
	ErrTransport = errors.New("casting: transport error")

	// ErrNotConfigured is returned when the remote attribute has no value.
	ErrNotConfigured = errors.New("casting: attribute not configured")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("casting: session closed")

	// ErrNoTransport is returned when a session is configured without a transport.
	ErrNoTransport = errors.New("casting: transport required")

	// ErrNoPlayer is returned when a session is configured without a player.
	ErrNoPlayer = errors.New("casting: player required")
)

// TransportError reports a failure to deliver a request or a subscription
// report. It wraps the underlying link error.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("casting: %s: transport error", e.Op)
	}
	return fmt.Sprintf("casting: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// wrapTransportError classifies err for callers. Errors that already carry a
// meaning of their own pass through unchanged.
func wrapTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	switch {
	case errors.As(err, &te),
		errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrCapabilityNotFound),
		errors.Is(err, ErrEndpointNotFound),
		errors.Is(err, context.Canceled):
		return err
	}
	return &TransportError{Op: op, Err: err}
}
