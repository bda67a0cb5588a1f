package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/procscope/internal/history"
	"github.com/blackwell-systems/procscope/internal/output"
)

var (
	statsTop    int
	statsPid    int32
	statsCycles bool
	statsLimit  int
	statsPrune  time.Duration

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Query recorded process samples",
		Long: `Query the sample database written by 'procscope watch --record'.

Without flags the top CPU consumers across all recorded cycles are shown.
Use --pid for the CPU/memory series of one process, --cycles for recent poll
cycles, and --prune to delete old data.`,
		Example: `  # Top 10 CPU consumers
  procscope stats

  # CPU/memory series for one pid
  procscope stats --pid 1234

  # Recent poll cycles
  procscope stats --cycles

  # Drop everything older than a week
  procscope stats --prune 168h`,
		RunE: runStats,
	}
)

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of top consumers to show")
	statsCmd.Flags().Int32Var(&statsPid, "pid", 0, "show the recorded series for this pid")
	statsCmd.Flags().BoolVar(&statsCycles, "cycles", false, "show recent poll cycles")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 50, "row limit for --pid and --cycles")
	statsCmd.Flags().DurationVar(&statsPrune, "prune", 0, "delete cycles older than this duration")

	RootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsTop <= 0 {
		return fmt.Errorf("invalid top: %d (must be positive)", statsTop)
	}
	if statsLimit <= 0 {
		return fmt.Errorf("invalid limit: %d (must be positive)", statsLimit)
	}

	path, err := getDBPath()
	if err != nil {
		return err
	}
	db, err := history.New(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if statsPrune > 0 {
		n, err := db.Prune(time.Now().Add(-statsPrune))
		if err != nil {
			return statsErr(err)
		}
		fmt.Fprintf(out, "✓ Pruned %d cycles older than %v\n", n, statsPrune)
		return nil
	}

	if statsPid > 0 {
		points, err := db.Series(statsPid, statsLimit)
		if err != nil {
			return statsErr(err)
		}
		fmt.Fprint(out, output.RenderSeriesTable(statsPid, points))
		return nil
	}

	if statsCycles {
		cycles, err := db.RecentCycles(statsLimit)
		if err != nil {
			return statsErr(err)
		}
		fmt.Fprint(out, output.RenderCycleTable(cycles))
		return nil
	}

	entries, err := db.TopConsumers(statsTop)
	if err != nil {
		return statsErr(err)
	}
	fmt.Fprint(out, output.RenderTopTable(entries))
	return nil
}

// statsErr decorates the no-schema case with a hint; recording is what
// creates the tables.
func statsErr(err error) error {
	if history.IsNotInitialized(err) {
		return fmt.Errorf("no samples recorded yet; run 'procscope watch <pid> --record' first")
	}
	return err
}
