package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInventory marks an inventory file that cannot be used.
	ErrMalformedInventory = errors.New("malformed inventory")
	// ErrUnknownGroup marks a target aimed at a group outside the transport set.
	ErrUnknownGroup = errors.New("unknown group")
)

// Error wraps inventory failures with the file or group they concern.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func malformedf(format string, args ...any) error {
	return &Error{Kind: ErrMalformedInventory, Msg: fmt.Sprintf(format, args...)}
}
