// Package errs defines the sentinel errors shared by the seqstore packages.
//
// Callers match on them with errors.Is; the concrete errors returned by the
// store and codec wrap one of these values with additional context.
package errs

import "errors"

var (
	// ErrProtocolViolation is returned when a store operation is called from a state
	// that does not allow it, e.g. Add before Open.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrIdentityMismatch is returned when a read session finds an identity tag that
	// differs from the expected one.
	ErrIdentityMismatch = errors.New("identity tag mismatch")

	// ErrMalformedEncoding is returned when encoded bytes do not form a valid value.
	ErrMalformedEncoding = errors.New("malformed encoding")

	// ErrUnsupportedValue is returned when a value cannot be represented by the codec.
	ErrUnsupportedValue = errors.New("unsupported value")

	ErrInvalidRevision         = errors.New("invalid format revision")
	ErrInvalidCompression      = errors.New("invalid compression type")
	ErrInvalidCompressionLevel = errors.New("invalid compression level")
)
