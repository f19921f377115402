package datamodel

import "errors"

// Errors returned by value accessors and decoders.
var (
	// ErrWrongKind indicates a value does not hold the requested kind.
	ErrWrongKind = errors.New("datamodel: wrong value kind")

	// ErrMissingField indicates a required struct field is absent.
	ErrMissingField = errors.New("datamodel: missing field")

	// ErrOutOfRange indicates a numeric value does not fit the target type.
	ErrOutOfRange = errors.New("datamodel: value out of range")
)
