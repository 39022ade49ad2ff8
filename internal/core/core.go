// Package core drives one pipeline engine against at most one assigned
// process at a time, translating its tick-by-tick behavior into the
// discrete events the multicore layer and simulation loop dispatch on.
package core

import (
	"github.com/ehrlich-b/vonsim/internal/pcb"
	"github.com/ehrlich-b/vonsim/internal/pipeline"
)

// EventKind names the terminal (or non-) event a tick produced.
type EventKind int

const (
	None EventKind = iota
	Finished
	Blocked
	Preempted
)

func (k EventKind) String() string {
	switch k {
	case Finished:
		return "FINISHED"
	case Blocked:
		return "BLOCKED"
	case Preempted:
		return "PREEMPTED"
	default:
		return "NONE"
	}
}

// Event carries the outcome of one StepOneCycle call. PCB is the process
// the event concerns (nil for None). IORequests is only populated for
// Blocked and is the sole owner of that slice going forward — the Core
// clears its own reference before returning it, mirroring the source's
// std::move handoff.
type Event struct {
	Kind       EventKind
	PCB        *pcb.PCB
	IORequests []pipeline.IORequest
}

// status is the Core's own local state, distinct from the PCB's state:
// it exists so UpdateCoreTime can tell idle from running without
// consulting a (possibly nil) PCB.
type status int

const (
	idle status = iota
	running
)

// Core owns one pipeline engine and, at most, one assigned process.
type Core struct {
	id      int
	status  status
	current *pcb.PCB
	unit    *pipeline.Unit

	TimeRunning   uint64
	TimeIdle      uint64
	TimeWaitingIO uint64
}

// New constructs an idle core identified by id (used only for
// diagnostics/metrics labeling).
func New(id int) *Core {
	return &Core{id: id, unit: pipeline.NewUnit()}
}

// ID returns the core's identifier.
func (c *Core) ID() int { return c.id }

// IsIdle reports whether the core holds no assigned process.
func (c *Core) IsIdle() bool { return c.status == idle }

// Assign binds p to this core. It fails if the core is already running
// a process.
func (c *Core) Assign(p *pcb.PCB) bool {
	if c.status != idle {
		return false
	}
	c.current = p
	c.unit.Reset()
	c.status = running
	p.State = pcb.Running
	return true
}

// UpdateCoreTime must be called once per global tick, before
// StepOneCycle, to keep the running/idle/waiting-io counters current.
// TimeWaitingIO only advances while the assigned process is Blocked;
// StepOneCycle releases a blocked process in the same tick, so a core
// counts those ticks as idle and TimeWaitingIO stays 0.
func (c *Core) UpdateCoreTime() {
	if c.status == idle {
		c.TimeIdle++
		return
	}
	if c.current != nil && c.current.State == pcb.Blocked {
		c.TimeWaitingIO++
		return
	}
	c.TimeRunning++
}

// StepOneCycle advances the pipeline by one tick. A terminal event
// (Finished, Blocked, Preempted) clears the core's current process so a
// subsequent Assign can happen; at most one terminal event is emitted per
// tick.
func (c *Core) StepOneCycle(mem pipeline.MemoryAccessor) Event {
	if c.status == idle || c.current == nil {
		return Event{Kind: None}
	}

	p := c.current
	res := c.unit.Tick(p, mem, p.Quantum)

	if res.BlockedIO {
		ev := Event{Kind: Blocked, PCB: p, IORequests: res.IORequests}
		c.current = nil
		c.status = idle
		return ev
	}

	if res.Drained {
		kind := Preempted
		if res.EndProgram {
			kind = Finished
		}
		ev := Event{Kind: kind, PCB: p}
		c.current = nil
		c.status = idle
		return ev
	}

	return Event{Kind: None}
}
