// Package tree holds the canonical in-memory process tree and the merge
// algorithm that reconciles it against fresh snapshots.
//
// A Node is a durable wrapper around one logical process: its object
// identity is preserved across snapshot cycles for as long as its pid keeps
// appearing, while the record it wraps is overwritten by value on every
// successful merge. Consumers (renderers, recorders, HTTP handlers) hold
// Node pointers between cycles and re-read their contents after each change
// notification.
package tree

import "github.com/blackwell-systems/procscope/internal/proc"

// Node is one durable entry of the process tree. All fields are guarded by
// the owning Store's lock; the exported accessors take it.
type Node struct {
	store *Store

	// rec is the node's backing copy of the last merged snapshot data.
	// Its Children field is always nil; child structure lives on the Node.
	rec           proc.Record
	children      []*Node
	markedRemoved bool
}

// Pid returns the node's process id. Pids are fixed at node creation; a pid
// never changes for the lifetime of a Node.
func (n *Node) Pid() int32 {
	return n.rec.Pid
}

// Record returns a copy of the node's current attributes. The copy's
// Children field is nil; use Children for structure.
func (n *Node) Record() proc.Record {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	return n.rec
}

// Children returns the node's current children in display order (ascending
// by pid, with retained exited nodes after the live ones). The returned
// slice is a copy; the Nodes it points to are the canonical ones.
func (n *Node) Children() []*Node {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// MarkedRemoved reports whether the node's pid has disappeared from a
// snapshot while the retention policy keeps it visible.
func (n *Node) MarkedRemoved() bool {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	return n.markedRemoved
}
