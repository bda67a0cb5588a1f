package logging

import "testing"

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("New(%q) error = %v", level, err)
		}
	}

	if _, err := New("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewOrNop_FallsBack(t *testing.T) {
	if logger := NewOrNop("nonsense"); logger == nil {
		t.Error("NewOrNop should never return nil")
	}
}
