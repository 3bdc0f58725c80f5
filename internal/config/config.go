// Package config snapshots the environment once per invocation.
//
// Nothing below the entrypoint reads environment variables; components get
// the values they need from a Config built by Load.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultSubdomain selects the production ABS instance.
const DefaultSubdomain = "abs-prod"

// ManualBuildURL tags jobs started outside CI.
const ManualBuildURL = "https://litmus_manual"

// Config holds everything an invocation takes from its environment.
type Config struct {
	Subdomain        string        // ABS_SUBDOMAIN
	BaseURL          string        // ABS_BASE_URL, replaces https://<subdomain>.<domain>
	PollInterval     time.Duration // ABS_POLL_INTERVAL
	ProvisionTimeout time.Duration // ABS_PROVISION_TIMEOUT
	LogLevel         string        // ABS_LOG_LEVEL

	// Connection settings written into each new target's config.
	SSHUser       string // ABS_USER
	WinRMUser     string // ABS_WIN_USER
	Password      string // ABS_PASSWORD
	SSHPrivateKey string // ABS_SSH_PRIVATE_KEY

	FogPath  string // FOG_RC, default ~/.fog
	User     string // job tag "user"
	BuildURL string // job tag "jenkins_build_url"
}

// Load builds a Config from getenv. Pass os.Getenv in production.
//
// Environment Variables:
//   - ABS_SUBDOMAIN (default: abs-prod)
//   - ABS_BASE_URL (optional, e.g. a local ABS)
//   - ABS_POLL_INTERVAL (default: 5s)
//   - ABS_PROVISION_TIMEOUT (default: 10m)
//   - ABS_USER (default: root), ABS_WIN_USER (default: Administrator)
//   - ABS_PASSWORD, ABS_SSH_PRIVATE_KEY
//   - FOG_RC (default: ~/.fog)
//   - ABS_LOG_LEVEL (default: info)
func Load(getenv func(string) string) *Config {
	return &Config{
		Subdomain:        stringOr(getenv("ABS_SUBDOMAIN"), DefaultSubdomain),
		BaseURL:          getenv("ABS_BASE_URL"),
		PollInterval:     parseDuration(getenv("ABS_POLL_INTERVAL"), 5*time.Second),
		ProvisionTimeout: parseDuration(getenv("ABS_PROVISION_TIMEOUT"), 10*time.Minute),
		LogLevel:         stringOr(getenv("ABS_LOG_LEVEL"), "info"),
		SSHUser:          stringOr(getenv("ABS_USER"), "root"),
		WinRMUser:        stringOr(getenv("ABS_WIN_USER"), "Administrator"),
		Password:         getenv("ABS_PASSWORD"),
		SSHPrivateKey:    getenv("ABS_SSH_PRIVATE_KEY"),
		FogPath:          fogPath(getenv("FOG_RC")),
		User:             currentUser(getenv),
		BuildURL:         BuildURL(getenv),
	}
}

// BuildURL points back at the CI run that requested the hosts.
func BuildURL(getenv func(string) string) string {
	if getenv("GITHUB_ACTIONS") == "true" {
		server := stringOr(getenv("GITHUB_SERVER_URL"), "https://github.com")
		return server + "/" + getenv("GITHUB_REPOSITORY") + "/actions/runs/" + getenv("GITHUB_RUN_ID")
	}
	if u := getenv("BUILD_URL"); u != "" {
		return u
	}
	return ManualBuildURL
}

func fogPath(override string) string {
	if override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fog"
	}
	return filepath.Join(home, ".fog")
}

func currentUser(getenv func(string) string) string {
	if u := getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// parseDuration accepts Go durations ("30s") or a bare number of seconds.
// Unset or invalid values fall back to defaultVal.
func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
