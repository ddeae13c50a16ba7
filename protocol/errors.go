package protocol

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed field in a device serial-number string.
type ParseError struct {
	// Field is the key of the offending field, e.g. "ECID"
	Field string

	// Value is the raw text that failed to parse
	Value string

	// Err is the underlying conversion error
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s field %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
