// Package task is the Bolt task boundary: a JSON payload on stdin, one JSON
// value on stdout, and an exit code.
package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/flo-mic/absprovision/internal/abs"
	"github.com/flo-mic/absprovision/internal/inventory"
	"github.com/flo-mic/absprovision/internal/logging"
	"github.com/flo-mic/absprovision/internal/provision"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
)

// kindPrefix namespaces error kinds in the Bolt _error object.
const kindPrefix = "abs-provision/"

// Runner executes a decoded action.
type Runner interface {
	Run(ctx context.Context, action provision.Action) (provision.Result, error)
}

// Params is the task payload.
type Params struct {
	Action    string          `json:"action"`
	Platform  string          `json:"platform"`
	NodeName  string          `json:"node_name"`
	Inventory string          `json:"inventory"`
	Vars      json.RawMessage `json:"vars"`
}

// ParseAction decodes a payload. Comments and trailing commas are tolerated.
// Anything that is not a recognisable provision or teardown request becomes
// a NoOp so unrelated task invocations pass through.
func ParseAction(data []byte) provision.Action {
	var p Params
	if err := json.Unmarshal(jsonc.ToJSON(data), &p); err != nil {
		logging.Debug("task payload is not JSON, ignoring", "error", err)
		return provision.NoOp{}
	}

	switch strings.ToLower(strings.TrimSpace(p.Action)) {
	case "provision":
		return provision.Provision{
			Platform:  p.Platform,
			Inventory: p.Inventory,
			Vars:      varsString(p.Vars),
		}
	case "teardown", "tear_down":
		return provision.Teardown{
			NodeName:  p.NodeName,
			Platform:  p.Platform,
			Inventory: p.Inventory,
		}
	default:
		return provision.NoOp{Name: p.Action}
	}
}

// varsString accepts vars as a YAML string or as an inline JSON object.
func varsString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Run reads one payload from in, executes it and writes the outcome to out.
func Run(ctx context.Context, in io.Reader, out io.Writer, runner Runner) int {
	data, err := io.ReadAll(in)
	if err != nil {
		return writeError(out, fmt.Errorf("reading task input: %w", err))
	}

	return Execute(ctx, ParseAction(data), out, runner)
}

// Execute runs an already decoded action and writes the outcome to out.
func Execute(ctx context.Context, action provision.Action, out io.Writer, runner Runner) int {
	res, err := runner.Run(ctx, action)
	if err != nil {
		logging.Error("task failed", "error", err)
		return writeError(out, err)
	}

	if err := writeJSON(out, res); err != nil {
		logging.Error("writing result", "error", err)
		return ExitFailed
	}
	return ExitOK
}

// boltError is the error object Bolt recognises in task output.
type boltError struct {
	Kind    string         `json:"kind"`
	Msg     string         `json:"msg"`
	Details map[string]any `json:"details"`
}

func writeError(out io.Writer, err error) int {
	e := boltError{
		Kind:    kindPrefix + Kind(err),
		Msg:     err.Error(),
		Details: map[string]any{},
	}
	var apiErr *abs.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status != 0 {
			e.Details["status"] = apiErr.Status
		}
		if apiErr.Body != "" {
			e.Details["body"] = apiErr.Body
		}
	}
	if werr := writeJSON(out, map[string]boltError{"_error": e}); werr != nil {
		logging.Error("writing error", "error", werr)
	}
	return ExitFailed
}

// Kind names the failure class of err.
func Kind(err error) string {
	switch {
	case errors.Is(err, provision.ErrInvalidInput):
		return "invalid-input"
	case errors.Is(err, provision.ErrMissingCredentials):
		return "missing-credentials"
	case errors.Is(err, inventory.ErrMalformedInventory):
		return "malformed-inventory"
	case errors.Is(err, inventory.ErrUnknownGroup):
		return "unknown-group"
	case errors.Is(err, abs.ErrProvisionTimeout):
		return "provision-timeout"
	case errors.Is(err, abs.ErrProvisionFailed):
		return "provision-failed"
	case errors.Is(err, abs.ErrTeardownFailed):
		return "teardown-failed"
	default:
		return "unexpected"
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = out.Write(append(data, '\n'))
	return err
}
