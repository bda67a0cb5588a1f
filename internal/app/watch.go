package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/procscope/internal/history"
	"github.com/blackwell-systems/procscope/internal/logging"
	"github.com/blackwell-systems/procscope/internal/output"
	"github.com/blackwell-systems/procscope/internal/poller"
	"github.com/blackwell-systems/procscope/internal/proc"
	"github.com/blackwell-systems/procscope/internal/server"
	"github.com/blackwell-systems/procscope/internal/tree"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchStop        bool
	watchPIDFile     string
	watchLogFile     string
	watchInterval    time.Duration
	watchRetain      bool
	watchRecord      bool
	watchListen      string
	watchShowCommand bool

	watchCmd = &cobra.Command{
		Use:   "watch [pid]",
		Short: "Watch a process tree live",
		Long: `Poll the process table once a second and keep a live tree rooted at the
given pid. In the foreground the tree is re-rendered after every change; as a
daemon it runs headless, typically with --record or --listen so the data goes
somewhere.

Watch modes:
  • Foreground (default): re-render in the terminal, Ctrl+C to stop
  • Daemon: detach into the background
  • Stop: stop a running daemon

With --record every poll cycle is persisted to the sample database for later
'procscope stats' queries. With --listen the tree is also served over HTTP
and WebSocket.`,
		Example: `  # Live view of pid 1234's subtree
  procscope watch 1234

  # Keep exited processes visible, dimmed
  procscope watch 1234 --retain-exited

  # Record samples in the background and serve the API
  procscope watch 1234 --daemon --record --listen 127.0.0.1:7070

  # Stop the daemon
  procscope watch --stop`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.procscope/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.procscope/watch.log)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default: 1s)")
	watchCmd.Flags().BoolVar(&watchRetain, "retain-exited", false, "keep exited processes in the tree, marked gone")
	watchCmd.Flags().BoolVar(&watchRecord, "record", false, "record samples to the database")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "serve the HTTP/WebSocket API on this address")
	watchCmd.Flags().BoolVar(&watchShowCommand, "command", false, "show command lines in the foreground view")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}
	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}

	rootPid, err := parsePidArg(args, 1)
	if err != nil {
		return err
	}
	if watchInterval <= 0 {
		watchInterval = cfg.PollInterval
	}
	if !watchRetain {
		watchRetain = cfg.RetainExited
	}

	if watchDaemon {
		return startWatchDaemon(rootPid)
	}
	return runWatchMonitor(cmd, rootPid)
}

func stopWatchDaemon() error {
	running, err := poller.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	spinner.Start()
	if err := poller.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

// startWatchDaemon re-executes procscope detached, handing the child the
// same watch arguments minus --daemon.
func startWatchDaemon(rootPid int32) error {
	childArgs := []string{
		"watch", strconv.Itoa(int(rootPid)),
		"--daemon-child",
		"--pid-file", watchPIDFile,
		"--log-file", watchLogFile,
		"--interval", watchInterval.String(),
	}
	if watchRetain {
		childArgs = append(childArgs, "--retain-exited")
	}
	if watchRecord {
		childArgs = append(childArgs, "--record")
	}
	if watchListen != "" {
		childArgs = append(childArgs, "--listen", watchListen)
	}
	if dbPath != "" {
		childArgs = append(childArgs, "--db", dbPath)
	}

	spinner := output.NewSpinner("Starting daemon...")
	spinner.Start()
	if err := poller.StartDaemon(watchPIDFile, watchLogFile, childArgs); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nWatching process %d\n", rootPid)
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	if watchListen != "" {
		fmt.Printf("  API:      http://%s\n", watchListen)
	}
	fmt.Printf("\nTo stop: procscope watch --stop\n")

	return nil
}

// runWatchMonitor is the watch loop shared by foreground mode and the daemon
// child. In daemon-child mode stdout/stderr already point at the log file and
// no tree is rendered.
func runWatchMonitor(cmd *cobra.Command, rootPid int32) error {
	log := zap.NewNop()
	if watchDaemonChild {
		var err error
		log, err = logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer log.Sync()
		defer os.Remove(watchPIDFile)
	}

	store := tree.NewStore(rootPid, tree.Options{RetainExited: watchRetain})
	defer store.Close()

	metrics := server.NewMetrics()

	// Optional HTTP/WebSocket API.
	var srv *server.Server
	if watchListen != "" {
		var err error
		srv, err = server.New(store, server.Options{
			Addr:    watchListen,
			Logger:  log,
			Metrics: metrics,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	// Optional sample recording.
	if watchRecord {
		path, err := getDBPath()
		if err != nil {
			return err
		}
		db, err := history.New(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.CreateSchema(); err != nil {
			return fmt.Errorf("failed to create database schema: %w", err)
		}

		recorder, err := history.NewRecorder(db, store, rootPid, log)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		if err := recorder.Start(); err != nil {
			return fmt.Errorf("failed to start recorder: %w", err)
		}
		defer recorder.Stop()
	}

	p, err := poller.New(rootPid, store, proc.NewSystemSnapshotter(), poller.Options{
		Interval:        watchInterval,
		SnapshotTimeout: cfg.SnapshotTimeout,
		Logger:          log,
		Observer:        metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}
	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	defer p.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	if watchDaemonChild {
		log.Info("watching process tree",
			zap.Int32("rootPid", rootPid),
			zap.Duration("interval", watchInterval),
			zap.Bool("record", watchRecord),
			zap.String("listen", watchListen))
		sig := <-sigCh
		log.Info("shutting down", zap.String("signal", sig.String()))
		return nil
	}

	return renderLoop(cmd, store, sigCh)
}

// renderLoop re-renders the tree after every change notification until a
// shutdown signal arrives.
func renderLoop(cmd *cobra.Command, store *tree.Store, sigCh <-chan os.Signal) error {
	fmt.Println("Watching process tree (press Ctrl+C to stop)...")

	changes, cancel := store.Subscribe()
	defer cancel()

	clearScreen := output.IsColorEnabled()
	opts := output.TreeOptions{ShowCommand: watchShowCommand}

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			rendered := output.RenderTree(store.Root(), opts)
			if clearScreen {
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
		case sig := <-sigCh:
			fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
			return nil
		}
	}
}
