package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned for frames whose tag is not a known message.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrMalformed is returned for frames of a known type with invalid fields.
	ErrMalformed = errors.New("protocol: malformed message")
)

func malformed(t Type, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, t, fmt.Sprintf(format, args...))
}
