package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blackwell-systems/procscope/internal/proc"
	"github.com/blackwell-systems/procscope/internal/tree"
)

func buildStore(t *testing.T, retain bool) *tree.Store {
	t.Helper()
	s := tree.NewStore(1, tree.Options{RetainExited: retain})

	snap := &proc.Record{
		Pid: 1, Name: "root", Command: "/sbin/root", CPULoad: 0.5, Memory: 1024,
		Children: []*proc.Record{
			{Pid: 20, PPid: 1, Name: "idle", Command: "idle --loop", CPULoad: 0.1, Memory: 2048},
			{Pid: 10, PPid: 1, Name: "busy", Command: "busy --hard", CPULoad: 95, Memory: 4096,
				Children: []*proc.Record{
					{Pid: 11, PPid: 10, Name: "helper", Command: "helper", CPULoad: 2, Memory: 512},
				}},
		},
	}
	if err := s.Apply(snap); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return s
}

func TestRenderTree(t *testing.T) {
	s := buildStore(t, false)
	defer s.Close()

	got := RenderTree(s.Root(), TreeOptions{ShowCommand: true})

	for _, want := range []string{"1 root", "10 busy", "11 helper", "20 idle", "95.0%", "busy --hard"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered tree missing %q:\n%s", want, got)
		}
	}

	// pid order: busy(10) before idle(20); helper nested under busy.
	if strings.Index(got, "10 busy") > strings.Index(got, "20 idle") {
		t.Errorf("children not in pid order:\n%s", got)
	}
	if !strings.Contains(got, "│  └─ 11 helper") {
		t.Errorf("helper should be nested under busy:\n%s", got)
	}
}

func TestRenderTree_MarksExitedNodes(t *testing.T) {
	s := buildStore(t, true)
	defer s.Close()

	// busy and its subtree exit.
	if err := s.Apply(&proc.Record{
		Pid: 1, Name: "root", Command: "/sbin/root",
		Children: []*proc.Record{
			{Pid: 20, PPid: 1, Name: "idle", Command: "idle --loop"},
		},
	}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got := RenderTree(s.Root(), TreeOptions{})
	if !strings.Contains(got, "(gone)") {
		t.Errorf("retained exited node should be marked gone:\n%s", got)
	}
	if !strings.Contains(got, "10 busy") {
		t.Errorf("retained exited node should still render:\n%s", got)
	}
}

func TestRenderTree_CommandTruncation(t *testing.T) {
	s := tree.NewStore(1, tree.Options{})
	defer s.Close()
	long := strings.Repeat("x", 200)
	if err := s.Apply(&proc.Record{Pid: 1, Name: "root", Command: long}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got := RenderTree(s.Root(), TreeOptions{ShowCommand: true, CommandWidth: 20})
	if strings.Contains(got, long) {
		t.Error("command should have been truncated")
	}
	if !strings.Contains(got, "...") {
		t.Errorf("truncated command should end with ellipsis:\n%s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 10); got != "abcdef" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "ab..." {
		t.Errorf("truncate = %q, want ab...", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("truncate tiny = %q, want abc", got)
	}
}

func TestSpinner_NonTTYPrintsOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Working")
	s.SetWriter(&buf)

	s.Start()
	s.StopWithMessage("done")

	out := buf.String()
	if !strings.Contains(out, "Working...") {
		t.Errorf("non-TTY spinner should print its message once, got %q", out)
	}
	if !strings.Contains(out, "done") {
		t.Errorf("StopWithMessage output missing, got %q", out)
	}
}
