// Package app wires the procscope commands. Commands are thin: they parse
// flags, assemble the components they need and print results; the actual
// behavior lives in the internal packages.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/procscope/internal/config"
)

var (
	dbPath string

	// cfg carries environment defaults; flags override per command.
	cfg = config.LoadOrDefault()

	// RootCmd is the root command for procscope
	RootCmd = &cobra.Command{
		Use:   "procscope",
		Short: "Live process tree monitoring with debug attach and profiling",
		Long: `procscope watches a process tree: it polls the OS once a second,
reconciles each snapshot into a stable tree, and keeps the view live while
processes come and go.

Beyond watching, it recognizes debuggable processes (node --inspect,
Electron hosts), discovers their DevTools endpoints, and can capture CPU
profiles over the inspector protocol. Samples can be recorded to a local
SQLite database for later analysis.

Quick Start:
  1. procscope tree                # one-shot tree of the whole system
  2. procscope watch <pid>         # live view of one process's subtree
  3. procscope watch <pid> --record --daemon
  4. procscope stats --top 10      # who burned the CPU

Examples:
  # One-shot tree under pid 1234, with command lines
  procscope tree 1234 --command

  # Live view, keep exited processes visible
  procscope watch 1234 --retain-exited

  # Watch in the background, recording samples and serving the HTTP API
  procscope watch 1234 --daemon --record --listen 127.0.0.1:7070

  # Find the debug endpoint of a node process
  procscope attach 5678

  # Capture a 10s CPU profile
  procscope profile 5678 --duration 10s`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sample database path (default: ~/.procscope/procscope.db)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// parsePidArg reads an optional pid argument, falling back to def.
func parsePidArg(args []string, def int32) (int32, error) {
	if len(args) == 0 {
		return def, nil
	}
	pid, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", args[0])
	}
	return int32(pid), nil
}

// cmdContext returns the command's context, or Background when the command
// was invoked outside Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// procscopeDir returns ~/.procscope, creating it if needed.
func procscopeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".procscope")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create procscope directory: %w", err)
	}
	return dir, nil
}

// getDBPath returns the database path, using the flag, the environment, or
// the default under ~/.procscope.
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}

	dir, err := procscopeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "procscope.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := procscopeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := procscopeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}

// getDefaultProfileDir returns where profile artifacts land.
func getDefaultProfileDir() (string, error) {
	if cfg.ProfileDir != "" {
		return cfg.ProfileDir, nil
	}
	dir, err := procscopeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles"), nil
}
