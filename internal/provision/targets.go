package provision

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flo-mic/absprovision/internal/api"
	"github.com/flo-mic/absprovision/internal/inventory"
)

// parsePlatforms turns "a, b,a" into {a: 2, b: 1}.
func parsePlatforms(platform string) map[string]int {
	resources := make(map[string]int)
	for _, p := range strings.Split(platform, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			resources[p]++
		}
	}
	return resources
}

// parseVars decodes the vars parameter. JSON is valid YAML, so both work.
func parseVars(vars string) (map[string]any, error) {
	if strings.TrimSpace(vars) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := yaml.Unmarshal([]byte(vars), &out); err != nil {
		return nil, invalidf("vars must be a YAML or JSON mapping: %v", err)
	}
	return out, nil
}

// GroupFor picks the transport group for a platform. Windows hosts are
// reached over WinRM, everything else over SSH.
func GroupFor(platform string) string {
	if strings.Contains(strings.ToLower(platform), "win-") {
		return inventory.WinRMNodes
	}
	return inventory.SSHNodes
}

// hostPlatform is the platform a host was allocated as. ABS normally echoes
// it in the type field; a single-platform request fills the gap otherwise.
func hostPlatform(h api.Host, resources map[string]int) string {
	if h.Type != "" {
		return h.Type
	}
	if len(resources) == 1 {
		for p := range resources {
			return p
		}
	}
	keys := make([]string, 0, len(resources))
	for p := range resources {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// newTarget builds the inventory entry for an allocated host.
func (e *Engine) newTarget(h api.Host, platform, jobID string, vars map[string]any) (string, inventory.Target) {
	group := GroupFor(platform)
	t := inventory.Target{
		URI: h.Hostname,
		Facts: map[string]any{
			"provisioner": "abs",
			"platform":    platform,
			"job_id":      jobID,
		},
		Vars: vars,
	}

	switch group {
	case inventory.WinRMNodes:
		winrm := map[string]any{"user": e.cfg.WinRMUser, "ssl": false}
		if e.cfg.Password != "" {
			winrm["password"] = e.cfg.Password
		}
		t.Config = map[string]any{"transport": "winrm", "winrm": winrm}
	default:
		ssh := map[string]any{"user": e.cfg.SSHUser, "host-key-check": false}
		if e.cfg.SSHPrivateKey != "" {
			ssh["private-key"] = e.cfg.SSHPrivateKey
		} else if e.cfg.Password != "" {
			ssh["password"] = e.cfg.Password
		}
		t.Config = map[string]any{"transport": "ssh", "ssh": ssh}
	}
	return group, t
}
