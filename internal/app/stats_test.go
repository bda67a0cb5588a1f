package app

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/procscope/internal/history"
)

func TestStatsCommand_Registration(t *testing.T) {
	found := false
	for _, cmd := range RootCmd.Commands() {
		if cmd.Name() == "stats" {
			found = true
			break
		}
	}
	if !found {
		t.Error("stats command not registered with root command")
	}
}

func TestStatsCommand_Flags(t *testing.T) {
	for _, name := range []string{"top", "pid", "cycles", "limit", "prune"} {
		if statsCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not defined", name)
		}
	}

	topFlag := statsCmd.Flags().Lookup("top")
	if topFlag.DefValue != "10" {
		t.Errorf("top flag default: got %s, want 10", topFlag.DefValue)
	}
}

func TestStatsCommand_Validation(t *testing.T) {
	origTop, origLimit := statsTop, statsLimit
	defer func() { statsTop, statsLimit = origTop, origLimit }()

	statsTop = 0
	if err := runStats(statsCmd, nil); err == nil {
		t.Error("expected error for --top 0")
	}

	statsTop, statsLimit = 10, -1
	if err := runStats(statsCmd, nil); err == nil {
		t.Error("expected error for negative --limit")
	}
}

// seedStatsDB writes one recorded cycle into a file-backed database and
// points the --db flag at it.
func seedStatsDB(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stats.db")
	db, err := history.New(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	samples := []history.Sample{
		{Pid: 10, PPid: 1, Name: "busy", Command: "busy --hard", CPULoad: 90, Memory: 4096},
		{Pid: 20, PPid: 1, Name: "idle", Command: "idle", CPULoad: 1, Memory: 1024},
	}
	if _, err := db.InsertCycle(time.Now(), 1, samples); err != nil {
		t.Fatalf("failed to insert cycle: %v", err)
	}

	oldDBPath := dbPath
	dbPath = path
	t.Cleanup(func() { dbPath = oldDBPath })
}

func runStatsCapture(t *testing.T, args []string) string {
	t.Helper()

	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	defer RootCmd.SetOut(nil)
	defer RootCmd.SetErr(nil)

	RootCmd.SetArgs(args)
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}
	return buf.String()
}

func TestStatsCommand_TopConsumers(t *testing.T) {
	seedStatsDB(t)

	out := runStatsCapture(t, []string{"stats", "--db", dbPath})
	if !bytes.Contains([]byte(out), []byte("busy")) {
		t.Errorf("expected top consumers to list 'busy', got:\n%s", out)
	}
}

func TestStatsCommand_Cycles(t *testing.T) {
	seedStatsDB(t)

	out := runStatsCapture(t, []string{"stats", "--db", dbPath, "--cycles"})
	if !bytes.Contains([]byte(out), []byte("Root PID")) {
		t.Errorf("expected cycle table, got:\n%s", out)
	}
}

func TestStatsCommand_Series(t *testing.T) {
	seedStatsDB(t)

	out := runStatsCapture(t, []string{"stats", "--db", dbPath, "--pid", "10"})
	if !bytes.Contains([]byte(out), []byte("pid 10")) {
		t.Errorf("expected series for pid 10, got:\n%s", out)
	}
}

func TestStatsCommand_UninitializedDatabaseHint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	oldDBPath := dbPath
	dbPath = path
	defer func() { dbPath = oldDBPath }()

	origTop, origPid, origCycles, origPrune := statsTop, statsPid, statsCycles, statsPrune
	statsTop, statsPid, statsCycles, statsPrune = 10, 0, false, 0
	defer func() { statsTop, statsPid, statsCycles, statsPrune = origTop, origPid, origCycles, origPrune }()

	err := runStats(statsCmd, nil)
	if err == nil {
		t.Fatal("expected error for uninitialized database")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("--record")) {
		t.Errorf("expected hint pointing at --record, got: %v", err)
	}
}
