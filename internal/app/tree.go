package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/procscope/internal/output"
	"github.com/blackwell-systems/procscope/internal/proc"
	"github.com/blackwell-systems/procscope/internal/tree"
)

var (
	treeShowCommand bool
	treeColor       bool

	treeCmd = &cobra.Command{
		Use:   "tree [pid]",
		Short: "Print a one-shot process tree",
		Long: `Take a single snapshot of the process table and print the tree rooted
at the given pid. Without an argument the tree is rooted at pid 1, i.e. the
whole system.`,
		Example: `  # Whole system
  procscope tree

  # Subtree under pid 1234, with command lines
  procscope tree 1234 --command`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTree,
	}
)

func init() {
	treeCmd.Flags().BoolVar(&treeShowCommand, "command", false, "show command lines")
	treeCmd.Flags().BoolVar(&treeColor, "color", false, "force colored output")

	RootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	rootPid, err := parsePidArg(args, 1)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdContext(cmd), cfg.PollInterval)
	defer cancel()

	rec, err := proc.NewSystemSnapshotter().Snapshot(ctx, rootPid)
	if err != nil {
		return fmt.Errorf("failed to snapshot process tree: %w", err)
	}

	store := tree.NewStore(rootPid, tree.Options{})
	defer store.Close()
	if err := store.Apply(rec); err != nil {
		return fmt.Errorf("failed to build tree: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderTree(store.Root(), output.TreeOptions{
		ShowCommand: treeShowCommand,
		Color:       treeColor,
	}))
	return nil
}
