package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/procscope/internal/history"
)

// RenderTopTable renders the aggregated top-consumers view, highest average
// CPU first (the query pre-sorts; no sorting here).
func RenderTopTable(entries []history.TopEntry) string {
	if len(entries) == 0 {
		return "No samples recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-24s %-10s %-10s %s\n",
		"PID", "Name", "Avg CPU", "Max Mem", "Samples"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%-8d %-24s %-10s %-10s %d\n",
			e.Pid,
			truncate(e.Name, 24),
			fmt.Sprintf("%.1f%%", e.AvgCPULoad),
			humanize.IBytes(uint64(e.MaxMemory)),
			e.Samples))
	}

	return sb.String()
}

// RenderCycleTable renders recorded poll cycles, newest first.
func RenderCycleTable(cycles []history.Cycle) string {
	if len(cycles) == 0 {
		return "No cycles recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-16s %-10s %s\n",
		"ID", "Observed", "Root PID", "Nodes"))
	sb.WriteString(strings.Repeat("─", 48))
	sb.WriteString("\n")

	for _, c := range cycles {
		sb.WriteString(fmt.Sprintf("%-8d %-16s %-10d %d\n",
			c.ID,
			formatRelativeTime(c.ObservedAt),
			c.RootPid,
			c.NodeCount))
	}

	return sb.String()
}

// RenderSeriesTable renders one pid's recorded CPU/memory series, oldest
// first.
func RenderSeriesTable(pid int32, points []history.SeriesPoint) string {
	if len(points) == 0 {
		return fmt.Sprintf("No samples recorded for pid %d.\n", pid)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Samples for pid %d:\n", pid))
	sb.WriteString(fmt.Sprintf("%-28s %-10s %s\n", "Observed", "CPU", "Memory"))
	sb.WriteString(strings.Repeat("─", 48))
	sb.WriteString("\n")

	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%-28s %-10s %s\n",
			p.ObservedAt.Format(time.RFC3339),
			fmt.Sprintf("%.1f%%", p.CPULoad),
			humanize.IBytes(uint64(p.Memory))))
	}

	return sb.String()
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	}
}
