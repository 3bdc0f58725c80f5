package abs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProvisionFailed marks a host request ABS rejected or answered badly.
	ErrProvisionFailed = errors.New("provision failed")
	// ErrTeardownFailed marks a return ABS did not accept.
	ErrTeardownFailed = errors.New("teardown failed")
	// ErrProvisionTimeout marks a job still pending when the timeout ran out.
	ErrProvisionTimeout = errors.New("provision timed out")
)

// APIError is a terminal ABS response. Body is kept verbatim for diagnostics.
type APIError struct {
	Kind   error
	Op     string
	Status int
	Body   string
	Msg    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}
	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString(": " + body)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Kind }
