package history

import (
	"fmt"
	"time"
)

// InsertCycle records one poll cycle and its samples in a single
// transaction, so a reader never sees a half-written cycle.
func (s *Store) InsertCycle(observedAt time.Time, rootPid int32, samples []Sample) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO poll_cycles (observed_at, root_pid, node_count) VALUES (?, ?, ?)`,
		observedAt.Format(time.RFC3339Nano), rootPid, len(samples),
	)
	if err != nil {
		return 0, mapSchemaErr(fmt.Errorf("failed to insert cycle: %w", err))
	}
	cycleID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get cycle id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO samples (cycle_id, pid, ppid, name, command, cpu_load, memory_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		if _, err := stmt.Exec(cycleID, smp.Pid, smp.PPid, smp.Name, smp.Command, smp.CPULoad, smp.Memory); err != nil {
			return 0, fmt.Errorf("failed to insert sample for pid %d: %w", smp.Pid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cycle: %w", err)
	}
	return cycleID, nil
}

// RecentCycles returns the most recent cycles, newest first.
func (s *Store) RecentCycles(limit int) ([]Cycle, error) {
	rows, err := s.db.Query(
		`SELECT id, observed_at, root_pid, node_count
		 FROM poll_cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, mapSchemaErr(fmt.Errorf("failed to list cycles: %w", err))
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		var observedAt string
		if err := rows.Scan(&c.ID, &observedAt, &c.RootPid, &c.NodeCount); err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		c.ObservedAt, err = time.Parse(time.RFC3339Nano, observedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse observed_at: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}
	return cycles, nil
}

// Series returns the recorded CPU/memory series for one pid, oldest first.
func (s *Store) Series(pid int32, limit int) ([]SeriesPoint, error) {
	rows, err := s.db.Query(
		`SELECT c.observed_at, smp.cpu_load, smp.memory_bytes
		 FROM samples smp JOIN poll_cycles c ON c.id = smp.cycle_id
		 WHERE smp.pid = ?
		 ORDER BY c.id DESC LIMIT ?`, pid, limit)
	if err != nil {
		return nil, mapSchemaErr(fmt.Errorf("failed to query series for pid %d: %w", pid, err))
	}
	defer rows.Close()

	var points []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		var observedAt string
		if err := rows.Scan(&observedAt, &p.CPULoad, &p.Memory); err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		p.ObservedAt, err = time.Parse(time.RFC3339Nano, observedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse observed_at: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series: %w", err)
	}

	// Query returned newest first for the LIMIT; flip to oldest first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// TopConsumers aggregates recorded usage per pid, ordered by average CPU
// load descending.
func (s *Store) TopConsumers(limit int) ([]TopEntry, error) {
	rows, err := s.db.Query(
		`SELECT pid, MAX(name), AVG(cpu_load), MAX(memory_bytes), COUNT(*)
		 FROM samples
		 GROUP BY pid
		 ORDER BY AVG(cpu_load) DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, mapSchemaErr(fmt.Errorf("failed to query top consumers: %w", err))
	}
	defer rows.Close()

	var entries []TopEntry
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.Pid, &e.Name, &e.AvgCPULoad, &e.MaxMemory, &e.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan top consumer row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top consumers: %w", err)
	}
	return entries, nil
}

// Prune deletes cycles (and, via cascade, their samples) older than cutoff.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM poll_cycles WHERE observed_at < ?`,
		cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, mapSchemaErr(fmt.Errorf("failed to prune cycles: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned cycles: %w", err)
	}
	return n, nil
}
