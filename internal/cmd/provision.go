package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flo-mic/absprovision/internal/provision"
	"github.com/flo-mic/absprovision/internal/task"
)

// Provision returns the provision command.
func Provision(root *rootOptions) *cobra.Command {
	var p provision.Provision

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Borrow hosts from ABS and add them to the inventory",
		Long: `Provision requests one host per listed platform and writes each one to
the ssh_nodes or winrm_nodes group of the inventory.

Example:
  abs-provision provision --platform centos-7,win-2019-x86_64 --inventory spec/fixtures/litmus_inventory.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code := task.Execute(cmd.Context(), p, cmd.OutOrStdout(), newEngine(root.cfg))
			return exitCode(code)
		},
	}

	cmd.Flags().StringVarP(&p.Platform, "platform", "p", "", "Platform or comma-separated platforms to provision (required)")
	cmd.Flags().StringVarP(&p.Inventory, "inventory", "i", "", "Inventory file or directory (default spec/fixtures/litmus_inventory.yaml)")
	cmd.Flags().StringVar(&p.Vars, "vars", "", "YAML or JSON mapping stored as vars on each new target")

	return cmd
}

// Teardown returns the teardown command.
func Teardown(root *rootOptions) *cobra.Command {
	var t provision.Teardown

	cmd := &cobra.Command{
		Use:     "teardown",
		Aliases: []string{"tear_down"},
		Short:   "Return hosts to ABS and remove them from the inventory",
		Long: `Teardown returns either one host by name or every host of a platform.
Exactly one of --node-name and --platform must be given.

Example:
  abs-provision teardown --node-name foo-bar.delivery.puppetlabs.net`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code := task.Execute(cmd.Context(), t, cmd.OutOrStdout(), newEngine(root.cfg))
			return exitCode(code)
		},
	}

	cmd.Flags().StringVarP(&t.NodeName, "node-name", "n", "", "Inventory uri of the host to return")
	cmd.Flags().StringVarP(&t.Platform, "platform", "p", "", "Return every host provisioned for this platform")
	cmd.Flags().StringVarP(&t.Inventory, "inventory", "i", "", "Inventory file or directory (default spec/fixtures/litmus_inventory.yaml)")

	return cmd
}
