package proc

import (
	"context"
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshotter produces a complete process tree for a root pid. The call may
// take OS-dependent time and may fail; callers are expected to bound it with
// a context deadline. Partial or incremental snapshots are not supported.
type Snapshotter interface {
	Snapshot(ctx context.Context, rootPid int32) (*Record, error)
}

// SnapshotFunc adapts a plain function to the Snapshotter interface.
type SnapshotFunc func(ctx context.Context, rootPid int32) (*Record, error)

// Snapshot calls f.
func (f SnapshotFunc) Snapshot(ctx context.Context, rootPid int32) (*Record, error) {
	return f(ctx, rootPid)
}

// SystemSnapshotter reads the live process table through gopsutil. CPU load
// and memory figures are computed here, by the source, not by consumers.
type SystemSnapshotter struct{}

// NewSystemSnapshotter returns a Snapshotter backed by the local OS.
func NewSystemSnapshotter() *SystemSnapshotter {
	return &SystemSnapshotter{}
}

// flatProc is one row of the process table before tree assembly.
type flatProc struct {
	pid     int32
	ppid    int32
	name    string
	command string
	cpuLoad float64
	memory  float64
}

// Snapshot enumerates every live process once and assembles the subtree
// rooted at rootPid. Processes that vanish mid-enumeration are skipped.
func (s *SystemSnapshotter) Snapshot(ctx context.Context, rootPid int32) (*Record, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	flat := make([]flatProc, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("snapshot cancelled: %w", err)
		}

		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			continue // gone since enumeration
		}

		fp := flatProc{pid: p.Pid, ppid: ppid}

		// Name, command and resource figures are best-effort; a process we
		// can see but not inspect still belongs in the tree.
		fp.name, _ = p.NameWithContext(ctx)
		fp.command, _ = p.CmdlineWithContext(ctx)
		if fp.command == "" {
			fp.command = fp.name
		}
		fp.cpuLoad, _ = p.CPUPercentWithContext(ctx)
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			fp.memory = float64(mem.RSS)
		}

		flat = append(flat, fp)
	}

	return assemble(flat, rootPid)
}

// assemble links a flat process listing into a Record tree and returns the
// subtree rooted at rootPid. Children keep the listing's arrival order; the
// reconciler, not the source, owns display ordering.
func assemble(flat []flatProc, rootPid int32) (*Record, error) {
	byPid := make(map[int32]*Record, len(flat))
	for _, fp := range flat {
		if fp.pid <= 0 {
			continue
		}
		byPid[fp.pid] = &Record{
			Pid:            fp.pid,
			PPid:           fp.ppid,
			Command:        fp.command,
			Name:           fp.name,
			CPULoad:        fp.cpuLoad,
			Memory:         fp.memory,
			IsElectronHost: IsElectronHost(fp.name, fp.command),
		}
	}

	root, ok := byPid[rootPid]
	if !ok {
		return nil, fmt.Errorf("process %d not found", rootPid)
	}

	// Deterministic parent iteration keeps child arrival order stable for a
	// given listing. A process whose parent is outside the subtree (or
	// itself) is simply not attached.
	pids := make([]int32, 0, len(byPid))
	for pid := range byPid {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	for _, pid := range pids {
		rec := byPid[pid]
		if rec.Pid == rootPid {
			continue
		}
		if parent, ok := byPid[rec.PPid]; ok && rec.PPid != rec.Pid {
			parent.Children = append(parent.Children, rec)
		}
	}

	return root, nil
}
