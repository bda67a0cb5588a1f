package history

import "time"

// Sample is one process observation inside a recorded cycle.
type Sample struct {
	Pid     int32
	PPid    int32
	Name    string
	Command string
	CPULoad float64
	Memory  float64
}

// Cycle summarizes one recorded poll cycle.
type Cycle struct {
	ID         int64
	ObservedAt time.Time
	RootPid    int32
	NodeCount  int
}

// SeriesPoint is one point of a per-pid resource series.
type SeriesPoint struct {
	ObservedAt time.Time
	CPULoad    float64
	Memory     float64
}

// TopEntry aggregates a process's resource usage across recorded cycles.
type TopEntry struct {
	Pid        int32
	Name       string
	AvgCPULoad float64
	MaxMemory  float64
	Samples    int
}
