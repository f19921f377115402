package contentapp

import "errors"

// Content app errors.
var (
	// ErrNotConfigured is the status of an attribute that has never been set.
	// Store reads report it as the absent sentinel, never as an error; it is
	// returned only by ReadAttribute for non-global attributes.
	ErrNotConfigured = errors.New("contentapp: attribute not configured")

	// ErrUnsupportedCluster is returned when a request targets a cluster the
	// app does not host.
	ErrUnsupportedCluster = errors.New("contentapp: unsupported cluster")

	// ErrUnsupportedCommand is returned when neither a canned response nor a
	// handler exists for a command.
	ErrUnsupportedCommand = errors.New("contentapp: unsupported command")

	// ErrInvalidEndpoint is returned when the configured endpoint is 0.
	ErrInvalidEndpoint = errors.New("contentapp: endpoint 0 is reserved")

	// ErrHandlerExists is returned when a cluster already has a handler.
	ErrHandlerExists = errors.New("contentapp: handler already registered")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("contentapp: closed")
)
