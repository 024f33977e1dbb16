package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// StatusFlags holds flags for the status command
type StatusFlags struct {
	Name string
}

// ResetFlags holds flags for the reset command
type ResetFlags struct {
	Name string
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	Listen   string
	BasePath string
	Metrics  bool
}

// buildRoot creates the root command and wires the subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	statusFlags := &StatusFlags{}
	resetFlags := &ResetFlags{}
	serveFlags := &ServeFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(globalFlags),
		createStatusCommand(globalFlags, statusFlags),
		createResetCommand(globalFlags, resetFlags),
		createScriptsCommand(),
		createServeCommand(globalFlags, serveFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "onceup",
		Short: "One-time upgrade script runner",
		Long: `Onceup runs an ordered batch of upgrade scripts against a target,
recording per-script outcome so each script executes exactly once.
Succeeded scripts are skipped on later activations; failed ones retry.

Examples:
  onceup run --config=onceup.toml
  onceup status --config=onceup.toml
  onceup reset --config=onceup.toml --name=migrate_users
  onceup serve --config=onceup.toml`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")

	return root
}

func createRunCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [config.toml]",
		Short: "Run the configured upgrade scripts once",
		Long: `Run one activation: every configured script is visited in order.
Scripts with a prior success are skipped, failed ones are retried, and the
batch aborts on the first failure or on a record stuck in running.

Examples:
  onceup run --config=onceup.toml
  onceup run onceup.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivation(configPath(globalFlags, args))
		},
	}
}

func createStatusCommand(globalFlags *GlobalFlags, flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show persisted script status records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(configPath(globalFlags, args), flags.Name)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "show a single script record")
	return cmd
}

func createResetCommand(globalFlags *GlobalFlags, flags *ResetFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete one script status record",
		Long: `Delete the status record for one script so the next activation treats
it as never run. This is the operator repair for a record stuck in running
(for example after a crash mid-script); activations never do this themselves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(configPath(globalFlags, args), flags.Name)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "script identity to reset (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func createScriptsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List script identities registered in this binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts()
		},
	}
}

func createServeCommand(globalFlags *GlobalFlags, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the admin HTTP API",
		Long: `Start an HTTP server exposing the admin API: trigger an activation,
inspect status records, and reset a stuck record.

Examples:
  onceup serve --config=onceup.toml
  onceup serve onceup.toml --listen=127.0.0.1:8321`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath(globalFlags, args), flags)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "listen address (overrides [server].listen)")
	cmd.Flags().StringVar(&flags.BasePath, "base-path", "", "API base path (overrides [server].base_path)")
	cmd.Flags().BoolVar(&flags.Metrics, "metrics", false, "also expose /metrics on the listen address")
	return cmd
}

func configPath(globalFlags *GlobalFlags, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return globalFlags.ConfigPath
}
