// Package proc acquires point-in-time snapshots of the operating system's
// process tree. A snapshot is a tree of Records rooted at a requested pid,
// fully populated in a single call; Records are ephemeral values that are
// rebuilt from scratch on every snapshot.
package proc

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned when a record is missing its pid. A record
// without a pid cannot participate in identity matching and indicates a
// broken snapshot source.
var ErrMalformedRecord = errors.New("malformed process record: missing pid")

// Record describes one process at snapshot time.
//
// Pids are unique among live processes at a point in time but are reused by
// the OS over time; a Record carries no secondary identity signal, so a pid
// that dies and is reused within one poll interval is indistinguishable from
// the same process continuing.
type Record struct {
	Pid            int32     `json:"pid"`
	PPid           int32     `json:"ppid"`
	Command        string    `json:"command"`
	Name           string    `json:"name"`
	CPULoad        float64   `json:"cpuLoad"`
	Memory         float64   `json:"memory"`
	IsElectronHost bool      `json:"isElectronHost,omitempty"`
	Children       []*Record `json:"children,omitempty"`
}

// Validate checks that the record and its whole subtree carry usable pids.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("nil record: %w", ErrMalformedRecord)
	}
	if r.Pid <= 0 {
		return ErrMalformedRecord
	}
	for _, c := range r.Children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}
