package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flo-mic/absprovision/internal/abs"
	"github.com/flo-mic/absprovision/internal/abs/abstest"
	"github.com/flo-mic/absprovision/internal/api"
	"github.com/flo-mic/absprovision/internal/config"
	"github.com/flo-mic/absprovision/internal/inventory"
	"github.com/flo-mic/absprovision/internal/provision"
)

type fixedToken string

func (f fixedToken) Token(string) (string, error) { return string(f), nil }

func newEngine(t *testing.T) (*provision.Engine, *abstest.Server) {
	t.Helper()
	srv := abstest.NewServer("tok")
	t.Cleanup(srv.Close)
	client := abs.NewClient("abs-spec."+abs.BaseDomain,
		abs.WithBaseURL(srv.URL),
		abs.WithPollInterval(time.Millisecond),
	)
	cfg := &config.Config{SSHUser: "root", WinRMUser: "Administrator", BuildURL: config.ManualBuildURL}
	return provision.New(client, fixedToken("tok"), cfg), srv
}

func runTask(t *testing.T, runner Runner, payload string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := Run(context.Background(), strings.NewReader(payload), &out, runner)
	return code, out.String()
}

func decodeError(t *testing.T, out string) boltError {
	t.Helper()
	var wrapper map[string]boltError
	require.NoError(t, json.Unmarshal([]byte(out), &wrapper))
	e, ok := wrapper["_error"]
	require.True(t, ok, "output %q has no _error", out)
	return e
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    provision.Action
	}{
		{
			name:    "provision",
			payload: `{"action":"provision","platform":"centos-7","inventory":"/tmp/inv"}`,
			want:    provision.Provision{Platform: "centos-7", Inventory: "/tmp/inv"},
		},
		{
			name:    "teardown",
			payload: `{"action":"teardown","node_name":"foo-bar.test"}`,
			want:    provision.Teardown{NodeName: "foo-bar.test"},
		},
		{
			name:    "tear_down synonym",
			payload: `{"action":"tear_down","platform":"centos-7"}`,
			want:    provision.Teardown{Platform: "centos-7"},
		},
		{
			name:    "vars as string",
			payload: `{"action":"provision","platform":"centos-7","vars":"role: agent"}`,
			want:    provision.Provision{Platform: "centos-7", Vars: "role: agent"},
		},
		{
			name:    "vars as object",
			payload: `{"action":"provision","platform":"centos-7","vars":{"role":"agent"}}`,
			want:    provision.Provision{Platform: "centos-7", Vars: `{"role":"agent"}`},
		},
		{
			name: "comments and trailing comma",
			payload: `{
				// hosts for the acceptance run
				"action": "provision",
				"platform": "centos-7",
			}`,
			want: provision.Provision{Platform: "centos-7"},
		},
		{name: "unknown action", payload: `{"action":"foo","platform":"bar"}`, want: provision.NoOp{Name: "foo"}},
		{name: "no action", payload: `{"platform":"bar"}`, want: provision.NoOp{}},
		{name: "not json", payload: `provision please`, want: provision.NoOp{}},
		{name: "empty", payload: ``, want: provision.NoOp{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAction([]byte(tt.payload)))
		})
	}
}

func TestRun_UnknownActionPrintsNull(t *testing.T) {
	engine, srv := newEngine(t)

	code, out := runTask(t, engine, `{"action":"foo","platform":"bar"}`)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "null\n", out)
	assert.Empty(t, srv.Requests())
}

func TestRun_ProvisionWithoutPlatform(t *testing.T) {
	engine, srv := newEngine(t)

	code, out := runTask(t, engine, `{"action":"provision"}`)
	assert.Equal(t, ExitFailed, code)

	e := decodeError(t, out)
	assert.Equal(t, "abs-provision/invalid-input", e.Kind)
	assert.Equal(t, "specify a platform when provisioning", e.Msg)
	assert.Empty(t, srv.Requests())
}

func TestRun_TeardownWithoutSelector(t *testing.T) {
	engine, _ := newEngine(t)

	code, out := runTask(t, engine, `{"action":"teardown"}`)
	assert.Equal(t, ExitFailed, code)

	e := decodeError(t, out)
	assert.Equal(t, "abs-provision/invalid-input", e.Kind)
	assert.Equal(t, "specify only one of: node_name, platform", e.Msg)
}

func TestRun_ProvisionThenTeardown(t *testing.T) {
	engine, srv := newEngine(t)
	srv.SetHosts(func(api.Request) []api.Host {
		return []api.Host{{Type: "redhat-8-x86_64", Hostname: "foo-bar.test", Engine: "vmpooler"}}
	})
	path := filepath.Join(t.TempDir(), "litmus_inventory.yaml")

	code, out := runTask(t, engine, fmt.Sprintf(`{"action":"provision","platform":"redhat-8-x86_64","inventory":%q}`, path))
	require.Equal(t, ExitOK, code, out)
	assert.JSONEq(t, `{"status":"ok","nodes":1}`, out)

	code, out = runTask(t, engine, fmt.Sprintf(`{"action":"teardown","node_name":"foo-bar.test","inventory":%q}`, path))
	require.Equal(t, ExitOK, code, out)
	assert.JSONEq(t, `{"status":"ok","removed":["foo-bar.test"]}`, out)

	doc, err := inventory.Load(path)
	require.NoError(t, err)
	for _, g := range doc.Groups {
		assert.Empty(t, g.Targets, "group %s", g.Name)
	}
}

type failingRunner struct{ err error }

func (f failingRunner) Run(context.Context, provision.Action) (provision.Result, error) {
	return nil, f.err
}

func TestRun_ErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{err: fmt.Errorf("wrapped: %w", inventory.ErrMalformedInventory), kind: "malformed-inventory"},
		{err: inventory.ErrUnknownGroup, kind: "unknown-group"},
		{err: &abs.APIError{Kind: abs.ErrProvisionFailed, Op: "POST /api/v2/request", Status: 503}, kind: "provision-failed"},
		{err: fmt.Errorf("%w: job x", abs.ErrProvisionTimeout), kind: "provision-timeout"},
		{err: fmt.Errorf("returning a: %w", &abs.APIError{Kind: abs.ErrTeardownFailed, Status: 404}), kind: "teardown-failed"},
		{err: fmt.Errorf("%w: no token", provision.ErrMissingCredentials), kind: "missing-credentials"},
		{err: errors.New("boom"), kind: "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			code, out := runTask(t, failingRunner{err: tt.err}, `{"action":"provision","platform":"x"}`)
			assert.Equal(t, ExitFailed, code)
			e := decodeError(t, out)
			assert.Equal(t, kindPrefix+tt.kind, e.Kind)
			assert.Equal(t, tt.err.Error(), e.Msg)
		})
	}
}

func TestRun_APIErrorDetails(t *testing.T) {
	err := &abs.APIError{Kind: abs.ErrProvisionFailed, Op: "POST /api/v2/request", Status: 503, Body: `{"error":"no capacity"}`}

	_, out := runTask(t, failingRunner{err: err}, `{"action":"provision","platform":"x"}`)
	e := decodeError(t, out)
	assert.EqualValues(t, 503, e.Details["status"])
	assert.Equal(t, `{"error":"no capacity"}`, e.Details["body"])
}
