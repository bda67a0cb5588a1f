package tree

import (
	"errors"
	"sync"

	"github.com/blackwell-systems/procscope/internal/proc"
)

// ErrStoreClosed is returned by Apply after Close. A snapshot that resolves
// after teardown is expected to hit this; callers discard it silently.
var ErrStoreClosed = errors.New("tree store is closed")

// Options configures a Store.
type Options struct {
	// RetainExited keeps nodes whose pid disappeared from a snapshot,
	// marked removed, instead of dropping them. Default off.
	RetainExited bool
}

// Store owns the canonical process tree. All mutation is funneled through
// Apply, which runs the merge under a single-writer lock; the merge itself
// is not reentrant. Readers see either the tree before a merge or after it,
// never a partially merged one.
type Store struct {
	mu     sync.RWMutex
	root   *Node
	opts   Options
	closed bool

	subs   map[int]chan struct{}
	nextID int
}

// NewStore creates a store whose synthetic root node stands for rootPid.
// The root is created exactly once, is never removed, and is reconciled
// field-by-field against each snapshot's root record.
func NewStore(rootPid int32, opts Options) *Store {
	s := &Store{
		opts: opts,
		subs: make(map[int]chan struct{}),
	}
	s.root = &Node{store: s, rec: proc.Record{Pid: rootPid}}
	return s
}

// Root returns the sentinel root node. The pointer is stable for the life
// of the store.
func (s *Store) Root() *Node {
	return s.root
}

// Apply merges a fresh snapshot into the tree and, if anything was merged,
// raises one coarse change notification. A malformed root record fails the
// whole merge; a malformed child record fails only that subtree, and the
// error is reported after the remaining siblings have merged.
func (s *Store) Apply(rec *proc.Record) error {
	if rec == nil || rec.Pid <= 0 {
		return proc.ErrMalformedRecord
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	err := merge(s.root, rec, s.opts.RetainExited)
	s.notifyLocked()
	s.mu.Unlock()

	return err
}

// Subscribe registers a change listener. The channel has a buffer of one
// and sends are coalescing: a consumer that falls behind misses intermediate
// wakeups, never the final one. The channel is closed when the store closes
// or when cancel is called.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// notifyLocked wakes every subscriber without blocking. Must be called with
// the write lock held, strictly after the merge has completed.
func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close tears the store down. Idempotent. Late Apply calls become no-ops
// and subscriber channels are closed so consumers can terminate.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Find walks the tree depth-first and returns the node with the given pid,
// or nil if no such node exists.
func (s *Store) Find(pid int32) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.root, pid)
}

func find(n *Node, pid int32) *Node {
	if n.rec.Pid == pid {
		return n
	}
	for _, c := range n.children {
		if hit := find(c, pid); hit != nil {
			return hit
		}
	}
	return nil
}

// Len reports the number of nodes currently in the tree, root included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return count(s.root)
}

func count(n *Node) int {
	total := 1
	for _, c := range n.children {
		total += count(c)
	}
	return total
}

// Walk visits every node depth-first under the read lock, handing the
// visitor a copy of each node's record. The visitor must not call back into
// the store or its nodes.
func (s *Store) Walk(visit func(rec proc.Record, depth int, removed bool)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	walk(s.root, 0, visit)
}

func walk(n *Node, depth int, visit func(proc.Record, int, bool)) {
	visit(n.rec, depth, n.markedRemoved)
	for _, c := range n.children {
		walk(c, depth+1, visit)
	}
}
