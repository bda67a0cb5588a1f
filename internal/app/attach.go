package app

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/procscope/internal/classify"
	"github.com/blackwell-systems/procscope/internal/inspector"
	"github.com/blackwell-systems/procscope/internal/proc"
)

// defaultInspectPort is where node's inspector listens when enabled without
// an explicit port (including via SIGUSR1).
const defaultInspectPort = 9229

var (
	attachPort int

	attachCmd = &cobra.Command{
		Use:   "attach <pid>",
		Short: "Find a process's debug endpoint",
		Long: `Classify the process's command line, locate its V8 inspector and print
the WebSocket debugger URL a debugger can connect to.

A node process running with --inspect but no port, or with no debug flag at
all, is asked to open its inspector via SIGUSR1 first; discovery then uses
node's default port 9229.`,
		Example: `  # Process started with node --inspect=9229
  procscope attach 5678

  # Plain node process: enable the inspector on demand
  procscope attach 5678

  # Inspector known to listen elsewhere
  procscope attach 5678 --port 9230`,
		Args: cobra.ExactArgs(1),
		RunE: runAttach,
	}
)

func init() {
	attachCmd.Flags().IntVar(&attachPort, "port", 0, "inspector port override")

	RootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	pid, err := parsePidArg(args, 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdContext(cmd), 15*time.Second)
	defer cancel()

	target, dbg, err := resolveDebugTarget(ctx, pid, attachPort)
	if err != nil {
		return err
	}

	fmt.Printf("Process %d is debuggable (%s)\n", pid, dbg.Kind)
	fmt.Printf("  Target: %s\n", target.Title)
	fmt.Printf("  Type:   %s\n", target.Type)
	fmt.Printf("  URL:    %s\n", target.WebSocketDebuggerURL)
	return nil
}

// resolveDebugTarget classifies pid's command line and discovers its
// inspector endpoint, opening the inspector via SIGUSR1 when the process
// carries no explicit port. portOverride skips classification-derived ports.
func resolveDebugTarget(ctx context.Context, pid int32, portOverride int) (*inspector.DebugTarget, classify.Target, error) {
	rec, err := proc.NewSystemSnapshotter().Snapshot(ctx, pid)
	if err != nil {
		return nil, classify.Target{}, fmt.Errorf("failed to inspect process %d: %w", pid, err)
	}

	dbg := classify.Classify(rec.Command, rec.IsElectronHost)
	if dbg.Kind == classify.LegacyDebug {
		return nil, dbg, fmt.Errorf(
			"process %d uses the legacy --debug protocol, which exposes no discovery endpoint", pid)
	}

	port := dbg.Port
	if portOverride > 0 {
		port = portOverride
	}

	if port == 0 {
		// No explicit port: ask the runtime to open its inspector. node (and
		// Electron's node side) honors SIGUSR1 and binds to 9229. A process
		// without a SIGUSR1 handler would die instead, so only node-like
		// processes are signalled.
		if dbg.Kind == classify.NotDebuggable && !looksLikeNode(rec.Name) {
			return nil, dbg, fmt.Errorf("process %d (%s) is not debuggable", pid, rec.Name)
		}
		if err := signalInspector(ctx, pid); err != nil {
			return nil, dbg, err
		}
		port = defaultInspectPort
		time.Sleep(250 * time.Millisecond)
	}

	target, err := inspector.Discover(ctx, port)
	if err != nil {
		return nil, dbg, err
	}
	return target, dbg, nil
}

func looksLikeNode(name string) bool {
	name = strings.ToLower(name)
	return name == "node" || name == "nodejs" || strings.HasPrefix(name, "node ")
}

func signalInspector(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("process %d not found: %w", pid, err)
	}
	if err := p.SendSignalWithContext(ctx, syscall.SIGUSR1); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}
