package provision

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks missing or conflicting task parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCredentials marks an ABS token that could not be read.
	ErrMissingCredentials = errors.New("missing credentials")
)

// InputError is a parameter problem the caller has to fix.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidf(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}
