// Package ioqueue implements the asynchronous I/O subsystem: a
// mutex-protected queue of blocked processes, each carrying the
// requests it issued and a remaining-ticks countdown, drained by a
// caller-driven Step call.
package ioqueue

import (
	"fmt"
	"io"
	"sync"

	"github.com/ehrlich-b/vonsim/internal/logging"
	"github.com/ehrlich-b/vonsim/internal/pcb"
	"github.com/ehrlich-b/vonsim/internal/pipeline"
)

type entry struct {
	p          *pcb.PCB
	requests   []pipeline.IORequest
	remaining  int64
	totalTicks int64
}

// ReadyCallback is invoked once per completed entry, letting the caller
// re-enqueue the process (typically scheduler.Unblock).
type ReadyCallback func(p *pcb.PCB)

// Manager is the I/O queue. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries []entry
	ready   ReadyCallback

	out io.Writer
}

// New constructs an empty I/O manager. out receives the side-effect log
// of completed requests (print/out operations); pass nil to discard it.
func New(out io.Writer) *Manager {
	if out == nil {
		out = io.Discard
	}
	return &Manager{out: out}
}

// SetReadyCallback installs the callback invoked when a process's I/O
// completes.
func (m *Manager) SetReadyCallback(cb ReadyCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = cb
}

// Register enqueues p as blocked on the given requests. remaining is
// max(1, latencyTicks + sum of each request's Cost).
func (m *Manager) Register(p *pcb.PCB, requests []pipeline.IORequest, latencyTicks uint64) {
	if p == nil {
		return
	}
	p.State = pcb.Blocked

	total := int64(latencyTicks)
	for _, r := range requests {
		total += int64(r.Cost)
	}
	if total < 1 {
		total = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{p: p, requests: requests, remaining: total, totalTicks: total})
}

// Step decrements every entry's remaining countdown by one tick, and for
// each entry that completes: runs its requests' side effects, updates the
// owning PCB's counters, marks it Ready, and invokes the ready callback.
func (m *Manager) Step() {
	m.mu.Lock()
	var done []entry
	kept := m.entries[:0]
	for _, e := range m.entries {
		e.remaining--
		if e.remaining <= 0 {
			done = append(done, e)
		} else {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	cb := m.ready
	m.mu.Unlock()

	for _, e := range done {
		m.complete(e, cb)
	}
}

func (m *Manager) complete(e entry, cb ReadyCallback) {
	for _, r := range e.requests {
		m.runSideEffect(e.p, r)
	}
	if e.p == nil {
		return
	}
	e.p.Counters.IOCycles.Add(uint64(e.totalTicks))
	e.p.State = pcb.Ready
	if cb != nil {
		cb(e.p)
	}
}

func (m *Manager) runSideEffect(p *pcb.PCB, r pipeline.IORequest) {
	pid := 0
	if p != nil {
		pid = p.PID
	}
	switch r.Op {
	case "out", "print":
		if _, err := fmt.Fprintf(m.out, "pid=%d print: %d\n", pid, r.Value); err != nil {
			logging.Default().Warnf("ioqueue: output write failed: %v", err)
		}
	case "in", "nop":
		// no observable side effect.
	default:
		logging.Default().Warnf("ioqueue: unknown operation %q for pid=%d", r.Op, pid)
	}
}

// PendingCount reports how many entries are currently queued.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
