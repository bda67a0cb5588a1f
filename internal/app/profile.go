package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/procscope/internal/inspector"
	"github.com/blackwell-systems/procscope/internal/output"
)

var (
	profileDuration time.Duration
	profileOut      string
	profilePort     int

	profileCmd = &cobra.Command{
		Use:   "profile <pid>",
		Short: "Capture a CPU profile from a debuggable process",
		Long: `Attach to the process's V8 inspector, run its CPU profiler for the given
duration and write the captured profile as a .cpuprofile artifact. The file
loads directly into Chrome DevTools or VS Code.

Ctrl+C ends the capture early; the profile collected so far is kept.`,
		Example: `  # 10 second profile
  procscope profile 5678

  # Longer capture, custom output directory
  procscope profile 5678 --duration 30s --out /tmp/profiles`,
		Args: cobra.ExactArgs(1),
		RunE: runProfile,
	}
)

func init() {
	profileCmd.Flags().DurationVar(&profileDuration, "duration", 10*time.Second, "how long to profile")
	profileCmd.Flags().StringVar(&profileOut, "out", "", "artifact directory (default: ~/.procscope/profiles)")
	profileCmd.Flags().IntVar(&profilePort, "port", 0, "inspector port override")

	RootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	pid, err := parsePidArg(args, 0)
	if err != nil {
		return err
	}
	if profileDuration <= 0 {
		return fmt.Errorf("invalid duration: %v (must be positive)", profileDuration)
	}

	outDir := profileOut
	if outDir == "" {
		outDir, err = getDefaultProfileDir()
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmdContext(cmd), 15*time.Second)
	defer cancel()

	target, _, err := resolveDebugTarget(ctx, pid, profilePort)
	if err != nil {
		return err
	}

	session, err := inspector.StartProfile(ctx, target.WebSocketDebuggerURL)
	if err != nil {
		return err
	}

	spinner := output.NewSpinner(fmt.Sprintf("Profiling pid %d for %v", pid, profileDuration))
	spinner.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case <-time.After(profileDuration):
	case <-sigCh:
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	path, err := session.Stop(stopCtx, outDir)
	if err != nil {
		spinner.Stop()
		return err
	}
	spinner.StopWithMessage("✓ Profile captured")

	fmt.Printf("\nProfile written to %s\n", path)
	return nil
}
