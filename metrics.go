package vonsim

import (
	"sync/atomic"

	"github.com/ehrlich-b/vonsim/internal/interfaces"
)

// latencyBuckets are the turnaround-time histogram bucket ceilings, in
// ticks, used to estimate percentiles without storing every sample.
var latencyBuckets = []uint64{
	10, 50, 100, 500, 1_000, 5_000, 10_000, 100_000,
}

const numLatencyBuckets = 8

// RunMetrics tracks atomic, process-wide statistics for one simulation
// run: how many processes started/finished, cache hit/miss totals, and a
// turnaround-time histogram for percentile estimation. Per-core
// running/idle/waiting-io time lives on each internal/core.Core and
// reaches metricsio.CoreReport through sim.Run's report building instead
// of through this type, since that path already owns per-core state.
type RunMetrics struct {
	ProcessesStarted  atomic.Uint64
	ProcessesFinished atomic.Uint64

	CacheHits   atomic.Uint64
	CacheMisses atomic.Uint64

	IOCompletions atomic.Uint64

	TotalTurnaroundTicks atomic.Uint64
	TurnaroundBuckets    [numLatencyBuckets]atomic.Uint64

	Ticks atomic.Uint64
}

// NewRunMetrics constructs a zeroed metrics instance.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

// RecordProcessStarted increments the started counter.
func (m *RunMetrics) RecordProcessStarted() {
	m.ProcessesStarted.Add(1)
}

// RecordProcessFinished increments the finished counter and records the
// process's turnaround time into the histogram.
func (m *RunMetrics) RecordProcessFinished(turnaroundTicks uint64) {
	m.ProcessesFinished.Add(1)
	m.TotalTurnaroundTicks.Add(turnaroundTicks)
	for i, bucket := range latencyBuckets {
		if turnaroundTicks <= bucket {
			m.TurnaroundBuckets[i].Add(1)
		}
	}
}

// RecordCacheAccess tallies a cache hit or miss.
func (m *RunMetrics) RecordCacheAccess(hit bool) {
	if hit {
		m.CacheHits.Add(1)
	} else {
		m.CacheMisses.Add(1)
	}
}

// RecordIOCompletion tallies one completed I/O request.
func (m *RunMetrics) RecordIOCompletion() {
	m.IOCompletions.Add(1)
}

// RecordTick advances the run's global tick counter.
func (m *RunMetrics) RecordTick() {
	m.Ticks.Add(1)
}

// RunMetricsSnapshot is a point-in-time, non-atomic view of RunMetrics.
type RunMetricsSnapshot struct {
	ProcessesStarted  uint64
	ProcessesFinished uint64

	CacheHits   uint64
	CacheMisses uint64
	HitRate     float64

	IOCompletions uint64

	AvgTurnaroundTicks float64
	TurnaroundP50      uint64
	TurnaroundP99      uint64

	Ticks uint64
}

// Snapshot takes a consistent-enough point-in-time copy of the counters.
func (m *RunMetrics) Snapshot() RunMetricsSnapshot {
	snap := RunMetricsSnapshot{
		ProcessesStarted:  m.ProcessesStarted.Load(),
		ProcessesFinished: m.ProcessesFinished.Load(),
		CacheHits:         m.CacheHits.Load(),
		CacheMisses:       m.CacheMisses.Load(),
		IOCompletions:     m.IOCompletions.Load(),
		Ticks:             m.Ticks.Load(),
	}

	totalAccesses := snap.CacheHits + snap.CacheMisses
	if totalAccesses > 0 {
		snap.HitRate = float64(snap.CacheHits) / float64(totalAccesses)
	}

	if snap.ProcessesFinished > 0 {
		snap.AvgTurnaroundTicks = float64(m.TotalTurnaroundTicks.Load()) / float64(snap.ProcessesFinished)
		snap.TurnaroundP50 = m.calculatePercentile(0.50)
		snap.TurnaroundP99 = m.calculatePercentile(0.99)
	}

	return snap
}

// calculatePercentile estimates the turnaround-time percentile via
// linear interpolation between histogram buckets.
func (m *RunMetrics) calculatePercentile(percentile float64) uint64 {
	total := m.ProcessesFinished.Load()
	if total == 0 {
		return 0
	}
	target := uint64(float64(total) * percentile)

	prevBucket := uint64(0)
	var prevCount uint64
	for i, bucket := range latencyBuckets {
		count := m.TurnaroundBuckets[i].Load()
		if count >= target {
			if count == prevCount {
				return bucket
			}
			fraction := float64(target-prevCount) / float64(count-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
		prevCount = count
	}
	return latencyBuckets[numLatencyBuckets-1]
}

// Observer receives live notifications as the simulation loop runs,
// letting a caller drive a progress display or its own metrics system
// without polling the report after the fact. It is an alias of
// internal/interfaces.Observer so internal/sim can accept and drive one
// without importing this package.
type Observer = interfaces.Observer

// NoOpObserver discards every notification.
type NoOpObserver struct{}

func (NoOpObserver) ObserveProcessStarted(int)            {}
func (NoOpObserver) ObserveProcessFinished(int, uint64)    {}
func (NoOpObserver) ObserveCacheAccess(bool)               {}
func (NoOpObserver) ObserveIOCompletion(int)               {}
func (NoOpObserver) ObserveTick(uint64)                    {}

// MetricsObserver implements Observer by recording into a RunMetrics.
type MetricsObserver struct {
	metrics *RunMetrics
}

// NewMetricsObserver builds an observer backed by m.
func NewMetricsObserver(m *RunMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveProcessStarted(int) {
	o.metrics.RecordProcessStarted()
}

func (o *MetricsObserver) ObserveProcessFinished(_ int, turnaroundTicks uint64) {
	o.metrics.RecordProcessFinished(turnaroundTicks)
}

func (o *MetricsObserver) ObserveCacheAccess(hit bool) {
	o.metrics.RecordCacheAccess(hit)
}

func (o *MetricsObserver) ObserveIOCompletion(int) {
	o.metrics.RecordIOCompletion()
}

func (o *MetricsObserver) ObserveTick(uint64) {
	o.metrics.RecordTick()
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
