// Package output renders procscope's terminal output: the process tree view
// and progress indicators. Rendering reads the tree only through the store's
// accessors; it re-pulls whatever it displays after each change
// notification.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/procscope/internal/tree"
)

// ANSI color codes for the tree view
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// TreeOptions controls tree rendering.
type TreeOptions struct {
	// ShowCommand appends the (truncated) command line to each row.
	ShowCommand bool
	// CommandWidth caps the rendered command line length. Zero means 60.
	CommandWidth int
	// Color forces colors on; otherwise IsColorEnabled decides.
	Color bool
}

// RenderTree renders the process tree rooted at root with box-drawing
// connectors, one row per node: pid, name, CPU load, resident memory and
// optionally the command line. Exited nodes kept by the retention policy are
// dimmed and marked gone.
func RenderTree(root *tree.Node, opts TreeOptions) string {
	if opts.CommandWidth <= 0 {
		opts.CommandWidth = 60
	}
	color := opts.Color || IsColorEnabled()

	var sb strings.Builder
	writeNode(&sb, root, "", "", color, opts)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *tree.Node, connector, childPrefix string, color bool, opts TreeOptions) {
	rec := n.Record()

	name := rec.Name
	if name == "" {
		name = "?"
	}

	row := fmt.Sprintf("%s%d %s", connector, rec.Pid, name)
	stats := fmt.Sprintf("  %s cpu  %s", formatLoad(rec.CPULoad), humanize.IBytes(uint64(rec.Memory)))
	if opts.ShowCommand && rec.Command != "" {
		stats += "  " + truncate(rec.Command, opts.CommandWidth)
	}

	switch {
	case n.MarkedRemoved():
		sb.WriteString(colorize(color, colorGray, row+stats+"  (gone)"))
	case rec.CPULoad >= 80:
		sb.WriteString(row + colorize(color, colorRed, stats))
	default:
		sb.WriteString(row + colorize(color, colorGray, stats))
	}
	sb.WriteString("\n")

	kids := n.Children()
	for i, c := range kids {
		last := i == len(kids)-1
		conn, prefix := childPrefix+"├─ ", childPrefix+"│  "
		if last {
			conn, prefix = childPrefix+"└─ ", childPrefix+"   "
		}
		writeNode(sb, c, conn, prefix, color, opts)
	}
}

func formatLoad(load float64) string {
	return fmt.Sprintf("%.1f%%", load)
}

func colorize(enabled bool, color, text string) string {
	if enabled {
		return color + text + colorReset
	}
	return text
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
