package tree

import (
	"errors"
	"testing"
	"time"
)

func TestStore_NotifyAfterApply(t *testing.T) {
	s := NewStore(1, Options{})
	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.Apply(rec(1, 0, rec(10, 0))); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a change notification after Apply")
	}
}

func TestStore_NotificationsCoalesce(t *testing.T) {
	s := NewStore(1, Options{})
	ch, cancel := s.Subscribe()
	defer cancel()

	// Two merges before the consumer reads: one pending wakeup, not two.
	if err := s.Apply(rec(1, 1)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := s.Apply(rec(1, 2)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	<-ch
	select {
	case <-ch:
		t.Error("coalescing channel should hold at most one pending wakeup")
	default:
	}
}

func TestStore_ApplyAfterCloseIsNoOp(t *testing.T) {
	s := NewStore(1, Options{})
	if err := s.Apply(rec(1, 0, rec(10, 0))); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	s.Close()
	s.Close() // idempotent

	err := s.Apply(rec(1, 0, rec(10, 0), rec(20, 0)))
	if !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("Apply() after Close error = %v, want ErrStoreClosed", err)
	}
	if s.Find(20) != nil {
		t.Error("a late snapshot must not mutate a closed store")
	}
}

func TestStore_CloseClosesSubscribers(t *testing.T) {
	s := NewStore(1, Options{})
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel should be closed on store Close")
	}
}

func TestStore_SubscribeAfterClose(t *testing.T) {
	s := NewStore(1, Options{})
	s.Close()

	ch, cancel := s.Subscribe()
	defer cancel()

	if _, ok := <-ch; ok {
		t.Error("Subscribe after Close should return an already-closed channel")
	}
}

func TestStore_CancelUnsubscribes(t *testing.T) {
	s := NewStore(1, Options{})
	ch, cancel := s.Subscribe()

	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Error("cancel should close the subscriber channel")
	}

	// Applying after cancel must not panic on the removed channel.
	if err := s.Apply(rec(1, 0)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

func TestStore_FindAndLen(t *testing.T) {
	s := NewStore(1, Options{})
	if err := s.Apply(rec(1, 0, rec(10, 0, rec(11, 0)), rec(20, 0))); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
	if n := s.Find(11); n == nil || n.Pid() != 11 {
		t.Error("Find(11) should locate the nested node")
	}
	if s.Find(99) != nil {
		t.Error("Find(99) should return nil for an unknown pid")
	}
}

func TestStore_RecordCopyHasNoChildren(t *testing.T) {
	s := NewStore(1, Options{})
	if err := s.Apply(rec(1, 0, rec(10, 0))); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := s.Root().Record(); got.Children != nil {
		t.Error("Record() copies must carry structure on nodes, not records")
	}
}
