package app

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestTreeCommand_Registration(t *testing.T) {
	found := false
	for _, cmd := range RootCmd.Commands() {
		if cmd.Name() == "tree" {
			found = true
			break
		}
	}
	if !found {
		t.Error("tree command not registered with root command")
	}
}

func TestTreeCommand_Flags(t *testing.T) {
	for _, name := range []string{"command", "color"} {
		if treeCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not defined", name)
		}
	}
}

func TestTreeCommand_RejectsBadPid(t *testing.T) {
	if err := runTree(treeCmd, []string{"not-a-pid"}); err == nil {
		t.Error("expected error for invalid pid argument")
	}
}

func TestTreeCommand_OwnProcess(t *testing.T) {
	// Snapshot the test process itself; it always exists and is visible.
	pid := os.Getpid()

	var buf bytes.Buffer
	treeCmd.SetOut(&buf)
	defer treeCmd.SetOut(nil)

	if err := runTree(treeCmd, []string{fmt.Sprintf("%d", pid)}); err != nil {
		t.Fatalf("runTree() error = %v", err)
	}

	if !strings.Contains(buf.String(), fmt.Sprintf("%d", pid)) {
		t.Errorf("rendered tree missing own pid:\n%s", buf.String())
	}
}
