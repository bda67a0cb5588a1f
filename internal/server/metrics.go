package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes poll-cycle and tree instrumentation on a private registry
// (one Server per monitored root; the default registry would collide).
// It implements poller.CycleObserver.
type Metrics struct {
	registry      *prometheus.Registry
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	nodeCount     prometheus.Gauge
}

// NewMetrics creates and registers the procscope collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procscope",
		Name:      "poll_cycles_total",
		Help:      "Poll cycles by outcome.",
	}, []string{"status"})

	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "procscope",
		Name:      "cycle_duration_seconds",
		Help:      "Snapshot-plus-merge duration of successful cycles.",
		Buckets:   prometheus.DefBuckets,
	})

	m.nodeCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "procscope",
		Name:      "tree_nodes",
		Help:      "Nodes currently in the process tree.",
	})

	m.registry.MustRegister(m.cyclesTotal, m.cycleDuration, m.nodeCount)
	return m
}

// CycleOK records a successful cycle.
func (m *Metrics) CycleOK(d time.Duration, nodeCount int) {
	m.cyclesTotal.WithLabelValues("ok").Inc()
	m.cycleDuration.Observe(d.Seconds())
	m.nodeCount.Set(float64(nodeCount))
}

// CyclePartial records a cycle whose merge rejected malformed subtrees but
// still changed the tree.
func (m *Metrics) CyclePartial(d time.Duration, nodeCount int) {
	m.cyclesTotal.WithLabelValues("partial").Inc()
	m.cycleDuration.Observe(d.Seconds())
	m.nodeCount.Set(float64(nodeCount))
}

// CycleError records a failed cycle.
func (m *Metrics) CycleError() {
	m.cyclesTotal.WithLabelValues("error").Inc()
}

// CycleSkipped records a tick dropped because a snapshot was in flight.
func (m *Metrics) CycleSkipped() {
	m.cyclesTotal.WithLabelValues("skipped").Inc()
}
