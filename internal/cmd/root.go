// Package cmd wires the abs-provision command line.
//
// With no subcommand the binary behaves as a Bolt task: it reads the JSON
// parameters from stdin and prints one JSON value to stdout.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flo-mic/absprovision/internal/abs"
	"github.com/flo-mic/absprovision/internal/config"
	"github.com/flo-mic/absprovision/internal/logging"
	"github.com/flo-mic/absprovision/internal/provision"
	"github.com/flo-mic/absprovision/internal/task"
)

// ExitError carries a process exit code whose output has already been
// written. main exits with Code and prints nothing.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

func exitCode(code int) error {
	if code == task.ExitOK {
		return nil
	}
	return &ExitError{Code: code}
}

type rootOptions struct {
	logLevel string
	cfg      *config.Config
}

// Root returns the abs-provision command tree.
func Root() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "abs-provision",
		Short: "Provision and tear down ABS test hosts for a Litmus inventory",
		Long: `abs-provision borrows hosts from ABS and records them in a Litmus inventory.

Run without a subcommand it acts as a Bolt task and reads its parameters
as JSON from stdin:

  echo '{"action":"provision","platform":"centos-7"}' | abs-provision

Actions other than provision, teardown and tear_down are ignored.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.cfg = config.Load(os.Getenv)
			level := opts.cfg.LogLevel
			if opts.logLevel != "" {
				level = opts.logLevel
			}
			logging.InitWriter(cmd.ErrOrStderr(), level)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			code := task.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), newEngine(opts.cfg))
			return exitCode(code)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default $ABS_LOG_LEVEL or info)")

	cmd.AddCommand(Provision(opts))
	cmd.AddCommand(Teardown(opts))
	cmd.AddCommand(Login(opts))

	return cmd
}

// newEngine builds the engine for one invocation.
func newEngine(cfg *config.Config) *provision.Engine {
	fog := config.FogFile{Path: cfg.FogPath}
	return provision.New(newClient(cfg, fog), fog, cfg)
}

// newClient points the ABS client at cfg's subdomain, or at ABS_BASE_URL when
// set. The fog token, when present, also authenticates host requests.
func newClient(cfg *config.Config, fog config.FogFile, extra ...abs.Option) *abs.Client {
	clientOpts := []abs.Option{
		abs.WithPollInterval(cfg.PollInterval),
		abs.WithTimeout(cfg.ProvisionTimeout),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, abs.WithBaseURL(cfg.BaseURL))
	}
	if token, err := fog.Token("abs"); err == nil {
		clientOpts = append(clientOpts, abs.WithToken(token))
	} else {
		logging.Debug("requesting hosts without a token", "reason", err)
	}
	clientOpts = append(clientOpts, extra...)

	client := abs.NewClient(abs.Host(cfg.Subdomain), clientOpts...)
	logging.Debug("abs client ready", "url", client.BaseURL())
	return client
}
