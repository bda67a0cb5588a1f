package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/procscope/internal/proc"
)

var (
	killForce bool
	killTree  bool

	killCmd = &cobra.Command{
		Use:   "kill <pid>",
		Short: "Terminate a process",
		Long: `Send SIGTERM to a process, or SIGKILL with --force.

With --tree the whole subtree under the pid is terminated, children first,
so parents cannot respawn workers mid-kill.`,
		Example: `  # Polite
  procscope kill 1234

  # Not polite
  procscope kill 1234 --force

  # Everything under 1234, children first
  procscope kill 1234 --tree`,
		Args: cobra.ExactArgs(1),
		RunE: runKill,
	}
)

func init() {
	killCmd.Flags().BoolVar(&killForce, "force", false, "send SIGKILL instead of SIGTERM")
	killCmd.Flags().BoolVar(&killTree, "tree", false, "terminate the whole subtree, children first")

	RootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	pid, err := parsePidArg(args, 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdContext(cmd), 10*time.Second)
	defer cancel()

	if !killTree {
		if err := signalPid(ctx, pid); err != nil {
			return err
		}
		fmt.Printf("✓ Sent %s to %d\n", signalName(), pid)
		return nil
	}

	rec, err := proc.NewSystemSnapshotter().Snapshot(ctx, pid)
	if err != nil {
		return fmt.Errorf("failed to snapshot subtree of %d: %w", pid, err)
	}

	killed := 0
	var killRec func(r *proc.Record) error
	killRec = func(r *proc.Record) error {
		for _, c := range r.Children {
			if err := killRec(c); err != nil {
				return err
			}
		}
		if err := signalPid(ctx, r.Pid); err != nil {
			// Already gone is fine when tearing a tree down.
			fmt.Printf("  %d: %v\n", r.Pid, err)
			return nil
		}
		killed++
		return nil
	}
	if err := killRec(rec); err != nil {
		return err
	}

	fmt.Printf("✓ Sent %s to %d processes\n", signalName(), killed)
	return nil
}

func signalPid(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("process %d not found: %w", pid, err)
	}
	if killForce {
		if err := p.KillWithContext(ctx); err != nil {
			return fmt.Errorf("failed to kill %d: %w", pid, err)
		}
		return nil
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("failed to terminate %d: %w", pid, err)
	}
	return nil
}

func signalName() string {
	if killForce {
		return "SIGKILL"
	}
	return "SIGTERM"
}
