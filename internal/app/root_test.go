package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "procscope" {
		t.Errorf("expected Use to be 'procscope', got '%s'", RootCmd.Use)
	}
	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
	if !RootCmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}
	if RootCmd.SuggestionsMinimumDistance != 2 {
		t.Errorf("SuggestionsMinimumDistance = %d, want 2", RootCmd.SuggestionsMinimumDistance)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{"tree", "watch", "kill", "attach", "profile", "stats"}

	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected command '%s' to be registered", name)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	flag := RootCmd.PersistentFlags().Lookup("db")
	if flag == nil {
		t.Fatal("expected --db flag to be registered")
	}
	if flag.Usage == "" {
		t.Error("expected --db flag to have usage text")
	}
}

func TestGetDBPath(t *testing.T) {
	oldDBPath := dbPath
	defer func() { dbPath = oldDBPath }()

	dbPath = "/tmp/custom.db"
	path, err := getDBPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/tmp/custom.db" {
		t.Errorf("expected flag value to win, got '%s'", path)
	}

	dbPath = ""
	if cfg.DBPath == "" {
		path, err = getDBPath()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, ".procscope", "procscope.db")
		if path != want {
			t.Errorf("expected default path '%s', got '%s'", want, path)
		}
	}
}

func TestGetDefaultPIDFile(t *testing.T) {
	path, err := getDefaultPIDFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(path, "watch.pid") {
		t.Errorf("expected path to end with 'watch.pid', got '%s'", path)
	}
	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Errorf("expected directory '%s' to exist", filepath.Dir(path))
	}
}

func TestGetDefaultLogFile(t *testing.T) {
	path, err := getDefaultLogFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(path, "watch.log") {
		t.Errorf("expected path to end with 'watch.log', got '%s'", path)
	}
}

func TestParsePidArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		def     int32
		want    int32
		wantErr bool
	}{
		{"no args uses default", nil, 1, 1, false},
		{"valid pid", []string{"1234"}, 1, 1234, false},
		{"zero pid", []string{"0"}, 1, 0, true},
		{"negative pid", []string{"-5"}, 1, 0, true},
		{"not a number", []string{"abc"}, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePidArg(tt.args, tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePidArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parsePidArg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	defer RootCmd.SetOut(nil)

	RootCmd.SetArgs([]string{"--help"})
	if err := RootCmd.Execute(); err != nil {
		t.Errorf("expected --help to succeed, got error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help output to contain 'Usage:', got: %s", out)
	}
	if !strings.Contains(out, "watch") {
		t.Errorf("expected help output to list subcommands, got: %s", out)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	RootCmd.SetOut(bytes.NewBuffer(nil))
	RootCmd.SetErr(bytes.NewBuffer(nil))
	defer RootCmd.SetOut(nil)
	defer RootCmd.SetErr(nil)

	RootCmd.SetArgs([]string{"blorp"})
	err := Execute()

	if err == nil {
		t.Fatal("expected Execute() to return an error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected error to contain 'unknown command', got: %v", err)
	}
}
