// Package errs defines the error kinds shared by the wrap protocol and the
// proof attachment layer. Callers wrap them with fmt.Errorf("%w: ...") and
// test them with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidArgument reports a missing or malformed caller-supplied key or option.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedInput reports an envelope that failed structural or header validation.
	ErrMalformedInput = errors.New("malformed input")
	// ErrIntegrity reports a key wrap authentication failure.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrUnsupportedMode reports an unknown proof-of-work mode.
	ErrUnsupportedMode = errors.New("unsupported mode")
)
