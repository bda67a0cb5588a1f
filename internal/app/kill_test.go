package app

import "testing"

func TestKillCommand_Registration(t *testing.T) {
	found := false
	for _, cmd := range RootCmd.Commands() {
		if cmd.Name() == "kill" {
			found = true
			break
		}
	}
	if !found {
		t.Error("kill command not registered with root command")
	}
}

func TestKillCommand_Flags(t *testing.T) {
	for _, name := range []string{"force", "tree"} {
		if killCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not defined", name)
		}
	}
}

func TestSignalName(t *testing.T) {
	origForce := killForce
	defer func() { killForce = origForce }()

	killForce = false
	if got := signalName(); got != "SIGTERM" {
		t.Errorf("signalName() = %s, want SIGTERM", got)
	}

	killForce = true
	if got := signalName(); got != "SIGKILL" {
		t.Errorf("signalName() = %s, want SIGKILL", got)
	}
}

func TestKillCommand_RejectsBadPid(t *testing.T) {
	if err := runKill(killCmd, []string{"zero"}); err == nil {
		t.Error("expected error for invalid pid argument")
	}
	if err := runKill(killCmd, []string{"0"}); err == nil {
		t.Error("expected error for pid 0")
	}
}
