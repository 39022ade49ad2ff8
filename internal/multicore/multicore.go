// Package multicore owns a fixed-size vector of cores and coordinates
// assignment and per-tick stepping across all of them in a fixed order.
package multicore

import (
	"github.com/ehrlich-b/vonsim/internal/core"
	"github.com/ehrlich-b/vonsim/internal/pcb"
	"github.com/ehrlich-b/vonsim/internal/pipeline"
)

// MultiCore holds N cores and drives them uniformly each tick.
type MultiCore struct {
	cores []*core.Core
	mem   pipeline.MemoryAccessor
}

// New constructs n cores backed by the given memory accessor.
func New(n int, mem pipeline.MemoryAccessor) *MultiCore {
	cores := make([]*core.Core, n)
	for i := range cores {
		cores[i] = core.New(i)
	}
	return &MultiCore{cores: cores, mem: mem}
}

// Cores exposes the underlying core slice for read-only inspection (e.g.
// per-core metrics).
func (mc *MultiCore) Cores() []*core.Core { return mc.cores }

// NumCores returns the core count.
func (mc *MultiCore) NumCores() int { return len(mc.cores) }

// AssignReady calls fetchNext for each idle core, stamping ArrivalTime's
// counterpart StartTime the first time a process is ever dispatched, and
// binds whatever it returns. fetchNext returning nil ends assignment for
// this tick, leaving that core and any later idle cores idle.
func (mc *MultiCore) AssignReady(fetchNext func() *pcb.PCB, currentTick uint64) {
	for _, c := range mc.cores {
		if !c.IsIdle() {
			continue
		}
		p := fetchNext()
		if p == nil {
			return
		}
		if p.StartTime == 0 {
			p.StartTime = currentTick
			if currentTick >= p.ArrivalTime {
				p.ResponseTime = currentTick - p.ArrivalTime
			}
		}
		c.Assign(p)
	}
}

// StepAll advances every core one tick, in core-index order, and returns
// every non-None event produced. Each core's quantum is its currently
// assigned process's own Quantum field, not a global value — this is
// what lets FCFS/PRIORITY/SJN processes effectively run unpreempted by
// loading a large quantum, while RR processes use a small one.
func (mc *MultiCore) StepAll() []core.Event {
	var events []core.Event
	for _, c := range mc.cores {
		c.UpdateCoreTime()
		ev := c.StepOneCycle(mc.mem)
		if ev.Kind != core.None {
			events = append(events, ev)
		}
	}
	return events
}

// HasActiveCores reports whether any core holds an assigned process.
func (mc *MultiCore) HasActiveCores() bool {
	return mc.CountActiveCores() > 0
}

// CountActiveCores reports how many cores are non-idle.
func (mc *MultiCore) CountActiveCores() int {
	n := 0
	for _, c := range mc.cores {
		if !c.IsIdle() {
			n++
		}
	}
	return n
}
