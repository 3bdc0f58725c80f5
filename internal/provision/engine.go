// Package provision turns task actions into ABS calls and inventory updates.
package provision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/flo-mic/absprovision/internal/api"
	"github.com/flo-mic/absprovision/internal/config"
	"github.com/flo-mic/absprovision/internal/inventory"
	"github.com/flo-mic/absprovision/internal/logging"
)

// Fleet is the part of the ABS client the engine drives.
type Fleet interface {
	RequestNodes(ctx context.Context, req *api.Request) ([]api.Host, error)
	ReturnNode(ctx context.Context, nodeName, platform, jobID, token string) error
}

// TokenSource supplies the ABS token needed to return hosts.
type TokenSource interface {
	Token(provider string) (string, error)
}

// Engine runs one action end to end. It holds no inventory state between
// calls; the file on disk is the only record.
type Engine struct {
	fleet    Fleet
	tokens   TokenSource
	cfg      *config.Config
	newJobID func() string
	observe  func(State)
}

// Option configures an Engine.
type Option func(*Engine)

// WithJobID replaces the job id generator.
func WithJobID(fn func() string) Option {
	return func(e *Engine) { e.newJobID = fn }
}

// WithObserver is called on every state change.
func WithObserver(fn func(State)) Option {
	return func(e *Engine) { e.observe = fn }
}

// New creates an Engine.
func New(fleet Fleet, tokens TokenSource, cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		fleet:    fleet,
		tokens:   tokens,
		cfg:      cfg,
		newJobID: NewJobID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewJobID returns a job id unique to this process and call.
func NewJobID() string {
	return fmt.Sprintf("iac-task-pid-%d-%s", os.Getpid(), uuid.NewString()[:8])
}

// Run dispatches action. A NoOp yields a nil Result and no error.
func (e *Engine) Run(ctx context.Context, action Action) (Result, error) {
	switch a := action.(type) {
	case Provision:
		res, err := e.Provision(ctx, a)
		if err != nil {
			return nil, err
		}
		return res, nil
	case Teardown:
		res, err := e.Teardown(ctx, a)
		if err != nil {
			return nil, err
		}
		return res, nil
	case NoOp:
		logging.Debug("ignoring action", "action", a.Name)
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported action %T", action)
	}
}

// Provision allocates the requested hosts and records them in the inventory.
func (e *Engine) Provision(ctx context.Context, p Provision) (*ProvisionResult, error) {
	inv := e.begin("provision")

	resources := parsePlatforms(p.Platform)
	if len(resources) == 0 {
		return nil, inv.fail(invalidf("specify a platform when provisioning"))
	}
	vars, err := parseVars(p.Vars)
	if err != nil {
		return nil, inv.fail(err)
	}
	path := inventory.ResolvePath(p.Inventory)
	// Refuse early rather than allocate hosts we cannot record.
	if _, err := inventory.Load(path); err != nil {
		return nil, inv.fail(err)
	}

	inv.to(InFlight)
	req := &api.Request{
		Resources: resources,
		Job: api.Job{
			ID:   e.newJobID(),
			Tags: api.JobTags{User: e.cfg.User, JenkinsBuildURL: e.cfg.BuildURL},
		},
	}
	logging.Info("requesting hosts", "platforms", resources, "job", req.Job.ID)
	hosts, err := e.fleet.RequestNodes(ctx, req)
	if err != nil {
		return nil, inv.fail(err)
	}

	inv.to(Reconciling)
	doc, err := inventory.Load(path)
	if err != nil {
		return nil, inv.fail(err)
	}
	for _, h := range hosts {
		group, target := e.newTarget(h, hostPlatform(h, resources), req.Job.ID, vars)
		if err := inventory.AddTarget(doc, group, target); err != nil {
			return nil, inv.fail(err)
		}
		logging.Info("host allocated", "uri", target.URI, "platform", target.Platform(), "group", group)
	}
	if err := inventory.Save(doc, path); err != nil {
		return nil, inv.fail(err)
	}

	inv.to(Done)
	return &ProvisionResult{Status: statusOK, Nodes: len(hosts)}, nil
}

// Teardown returns hosts to ABS and drops them from the inventory.
//
// If a return fails, hosts already handed back are still removed before the
// error is reported.
func (e *Engine) Teardown(ctx context.Context, t Teardown) (*TeardownResult, error) {
	inv := e.begin("teardown")

	name := strings.TrimSpace(t.NodeName)
	platform := strings.TrimSpace(t.Platform)
	if (name == "") == (platform == "") {
		return nil, inv.fail(invalidf("specify only one of: node_name, platform"))
	}

	path := inventory.ResolvePath(t.Inventory)
	doc, err := inventory.Load(path)
	if err != nil {
		return nil, inv.fail(err)
	}
	targets, err := selectTargets(doc, name, platform, path)
	if err != nil {
		return nil, inv.fail(err)
	}
	if len(targets) == 0 {
		logging.Info("no hosts to return", "platform", platform, "inventory", path)
		inv.to(Done)
		return &TeardownResult{Status: statusOK, Removed: []string{}}, nil
	}

	inv.to(InFlight)
	token, err := e.tokens.Token("abs")
	if err != nil {
		return nil, inv.fail(fmt.Errorf("%w: %v", ErrMissingCredentials, err))
	}
	var returned []string
	var returnErr error
	for _, target := range targets {
		logging.Info("returning host", "uri", target.URI, "job", target.JobID())
		if err := e.fleet.ReturnNode(ctx, target.URI, target.Platform(), target.JobID(), token); err != nil {
			returnErr = fmt.Errorf("returning %s: %w", target.URI, err)
			break
		}
		returned = append(returned, target.URI)
	}
	if len(returned) == 0 {
		return nil, inv.fail(returnErr)
	}

	inv.to(Reconciling)
	doc, err = inventory.Load(path)
	if err != nil {
		return nil, inv.fail(err)
	}
	removed := inventory.RemoveTargetsByURI(doc, returned)
	if err := inventory.Save(doc, path); err != nil {
		return nil, inv.fail(err)
	}
	if returnErr != nil {
		return nil, inv.fail(returnErr)
	}

	inv.to(Done)
	return &TeardownResult{Status: statusOK, Removed: removed}, nil
}

// selectTargets resolves the teardown selector against the inventory.
// Targets without a job id were not allocated by ABS and cannot be returned.
func selectTargets(doc *inventory.Document, name, platform, path string) ([]inventory.Target, error) {
	if name != "" {
		t, ok := inventory.TargetByURI(doc, name)
		if !ok {
			return nil, invalidf("node %s not found in inventory %s", name, path)
		}
		if t.JobID() == "" {
			return nil, invalidf("node %s has no job_id fact; it was not provisioned by ABS", name)
		}
		return []inventory.Target{t}, nil
	}

	var out []inventory.Target
	for _, t := range inventory.FindTargets(doc, func(t inventory.Target) bool { return t.Platform() == platform }) {
		if t.JobID() == "" {
			logging.Warn("skipping target without job_id", "uri", t.URI)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
