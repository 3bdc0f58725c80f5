package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flo-mic/absprovision/internal/abs"
	"github.com/flo-mic/absprovision/internal/abs/abstest"
	"github.com/flo-mic/absprovision/internal/api"
	"github.com/flo-mic/absprovision/internal/config"
	"github.com/flo-mic/absprovision/internal/inventory"
)

const testToken = "s3cret"

type env struct {
	srv *abstest.Server
	fog string
	inv string
}

func setup(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		srv: abstest.NewServer(testToken),
		fog: filepath.Join(dir, ".fog"),
		inv: filepath.Join(dir, "litmus_inventory.yaml"),
	}
	t.Cleanup(e.srv.Close)

	t.Setenv("ABS_BASE_URL", e.srv.URL)
	t.Setenv("ABS_POLL_INTERVAL", "1ms")
	t.Setenv("FOG_RC", e.fog)
	t.Setenv("GITHUB_ACTIONS", "")
	t.Setenv("BUILD_URL", "")
	return e
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := Root()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoot_HasSubcommands(t *testing.T) {
	subcommands := make(map[string]bool)
	for _, sub := range Root().Commands() {
		subcommands[sub.Name()] = true
	}
	for _, name := range []string{"provision", "teardown", "login"} {
		assert.True(t, subcommands[name], "missing subcommand %s", name)
	}
}

func TestRoot_TaskModeIgnoresUnknownAction(t *testing.T) {
	setup(t)

	out, err := execute(t, `{"action":"foo","platform":"bar"}`)
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestRoot_TaskModeValidationExitsOne(t *testing.T) {
	setup(t)

	out, err := execute(t, `{"action":"provision"}`)
	var exit *ExitError
	require.True(t, errors.As(err, &exit), "got %v", err)
	assert.Equal(t, 1, exit.Code)
	assert.Contains(t, out, "specify a platform when provisioning")
	assert.Contains(t, out, `"_error"`)
}

func TestRoot_TaskModeProvision(t *testing.T) {
	e := setup(t)
	require.NoError(t, config.FogFile{Path: e.fog}.SaveToken("abs", testToken))

	out, err := execute(t, `{"action":"provision","platform":"centos-7","inventory":"`+e.inv+`"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","nodes":1}`, out)

	auth := e.srv.RequestAuth()
	require.NotEmpty(t, auth)
	assert.Equal(t, "Bearer "+testToken, auth[0])
}

func TestProvisionAndTeardownCommands(t *testing.T) {
	e := setup(t)
	require.NoError(t, config.FogFile{Path: e.fog}.SaveToken("abs", testToken))

	out, err := execute(t, "", "provision", "--platform", "centos-7,centos-7", "--inventory", e.inv, "--log-level", "error")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","nodes":2}`, out)

	out, err = execute(t, "", "teardown", "--platform", "centos-7", "--inventory", e.inv)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","removed":["centos-7-1.test","centos-7-2.test"]}`, out)

	doc, err := inventory.Load(e.inv)
	require.NoError(t, err)
	for _, g := range doc.Groups {
		assert.Empty(t, g.Targets, "group %s", g.Name)
	}
}

func TestTeardownCommand_MissingToken(t *testing.T) {
	e := setup(t)

	_, err := execute(t, "", "provision", "--platform", "centos-7", "--inventory", e.inv)
	require.NoError(t, err)

	out, err := execute(t, "", "teardown", "--node-name", "centos-7-1.test", "--inventory", e.inv)
	var exit *ExitError
	require.True(t, errors.As(err, &exit))
	assert.Contains(t, out, "abs-provision/missing-credentials")
}

func TestLogin_WithTokenFlag(t *testing.T) {
	e := setup(t)

	out, err := execute(t, "", "login", "--token", testToken)
	require.NoError(t, err)
	assert.Contains(t, out, e.fog)

	token, err := config.FogFile{Path: e.fog}.Token("abs")
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestLogin_RequiresTokenWithoutTerminal(t *testing.T) {
	setup(t)

	_, err := execute(t, "", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--token is required")
}

// recordingTransport answers every request with 200 and remembers its URL.
type recordingTransport struct {
	urls []string
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.urls = append(r.urls, req.URL.String())
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`[{"type":"centos-7","hostname":"a.test"}]`)),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

func TestNewClient_SubdomainSelectsHost(t *testing.T) {
	t.Setenv("ABS_SUBDOMAIN", "abs-spec")
	t.Setenv("ABS_BASE_URL", "")
	t.Setenv("FOG_RC", filepath.Join(t.TempDir(), ".fog"))
	cfg := config.Load(os.Getenv)

	rt := &recordingTransport{}
	client := newClient(cfg, config.FogFile{Path: cfg.FogPath}, abs.WithHTTPClient(&http.Client{Transport: rt}))
	assert.Equal(t, "https://abs-spec.k8s.infracore.puppet.net", client.BaseURL())

	_, err := client.RequestNodes(context.Background(), &api.Request{
		Resources: map[string]int{"centos-7": 1},
		Job:       api.Job{ID: "job-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://abs-spec.k8s.infracore.puppet.net/api/v2/request"}, rt.urls)
}

func TestNewClient_DefaultsToProduction(t *testing.T) {
	t.Setenv("ABS_SUBDOMAIN", "")
	t.Setenv("ABS_BASE_URL", "")
	cfg := config.Load(os.Getenv)

	client := newClient(cfg, config.FogFile{Path: filepath.Join(t.TempDir(), ".fog")})
	assert.Equal(t, "https://abs-prod.k8s.infracore.puppet.net", client.BaseURL())
}
