package tree

import (
	"errors"
	"sort"

	"github.com/blackwell-systems/procscope/internal/proc"
)

// merge reconciles node (and transitively its subtree) with rec, preserving
// Node identity wherever the underlying pid persists among a node's direct
// children. Must be called with the store's write lock held.
//
// Per level the algorithm is:
//  1. copy rec's mutable scalar fields onto the node's backing record;
//  2. for each child record, in source arrival order, match an existing
//     child by pid anywhere among the node's children — matched children
//     recurse, unmatched records become brand-new nodes;
//  3. order the resulting live children ascending by pid (source arrival
//     order is deliberately discarded: pid order is the canonical,
//     deterministic display order);
//  4. children whose pid vanished are dropped, or appended after the live
//     ones with markedRemoved set when retention is enabled.
//
// A child record without a pid fails that subtree and is reported after the
// remaining siblings have been merged; the tree is never left partially
// merged at a level because of one bad sibling.
//
// Pid reuse is invisible here: a new process that takes over a dead pid
// within one cycle is treated as the old one continuing.
func merge(node *Node, rec *proc.Record, retainExited bool) error {
	node.rec.Command = rec.Command
	node.rec.CPULoad = rec.CPULoad
	node.rec.Memory = rec.Memory
	node.rec.IsElectronHost = rec.IsElectronHost
	if node.rec.Name == "" {
		// First merge after node creation (or the sentinel root's first
		// snapshot): adopt the identity fields.
		node.rec.Name = rec.Name
		node.rec.PPid = rec.PPid
	}

	var errs []error
	seen := make(map[int32]bool, len(rec.Children))
	live := make([]*Node, 0, len(rec.Children))

	for _, childRec := range rec.Children {
		if childRec == nil || childRec.Pid <= 0 {
			errs = append(errs, proc.ErrMalformedRecord)
			continue
		}
		if seen[childRec.Pid] {
			// Upstream guarantees sibling pid uniqueness; a duplicate would
			// double-merge one node, so ignore it.
			continue
		}
		seen[childRec.Pid] = true

		child := findChild(node, childRec.Pid)
		if child == nil {
			child = newNode(node.store, childRec)
		} else {
			child.markedRemoved = false
			if err := merge(child, childRec, retainExited); err != nil {
				errs = append(errs, err)
			}
		}
		live = append(live, child)
	}

	sort.Slice(live, func(i, j int) bool { return live[i].rec.Pid < live[j].rec.Pid })

	if retainExited {
		for _, old := range node.children {
			if !seen[old.rec.Pid] {
				old.markedRemoved = true
				live = append(live, old)
			}
		}
	}

	node.children = live
	return errors.Join(errs...)
}

// findChild looks for pid among node's direct children, at any position.
func findChild(node *Node, pid int32) *Node {
	for _, c := range node.children {
		if c.rec.Pid == pid {
			return c
		}
	}
	return nil
}

// newNode builds a fresh Node subtree from a record that matched nothing.
// The subtree gets the same canonical pid ordering as merged levels.
func newNode(s *Store, rec *proc.Record) *Node {
	n := &Node{store: s}
	n.rec = *rec
	n.rec.Children = nil

	for _, childRec := range rec.Children {
		if childRec == nil || childRec.Pid <= 0 {
			continue
		}
		n.children = append(n.children, newNode(s, childRec))
	}
	sort.Slice(n.children, func(i, j int) bool {
		return n.children[i].rec.Pid < n.children[j].rec.Pid
	})
	return n
}
