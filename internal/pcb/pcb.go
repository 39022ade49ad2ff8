// Package pcb holds the Process Control Block: the single owned record
// that tracks one simulated program's identity, scheduling parameters,
// register state, partition binding, program image, and counters.
package pcb

import "sync/atomic"

// State is the lifecycle state of a process.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Finished
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// MemWeights are the per-access cost multipliers charged against a
// process's weighted-cycle counter.
type MemWeights struct {
	Cache     uint64
	Primary   uint64
	Secondary uint64
}

// RegisterBank is the opaque CPU context: a program counter (a word
// index, not a byte offset) plus a small general-purpose register file.
// Its internal layout is never interpreted outside the pipeline package.
type RegisterBank struct {
	PC    uint32
	GPR   [16]uint32
	Flags uint8
}

// Counters groups the atomically-incremented statistics a PCB accumulates
// while its owning core or memory manager steps it. They are atomic because
// the pipeline, the memory manager, and the I/O manager may all record
// against the same PCB without synchronizing with each other beyond the
// single-core-per-PCB invariant.
type Counters struct {
	PipelineCycles    atomic.Uint64
	StageInvocations  atomic.Uint64
	MemReads          atomic.Uint64
	MemWrites         atomic.Uint64
	PrimaryAccesses   atomic.Uint64
	SecondaryAccesses atomic.Uint64
	CacheAccesses     atomic.Uint64
	MemoryCycles      atomic.Uint64
	CacheHits         atomic.Uint64
	CacheMisses       atomic.Uint64
	IOCycles          atomic.Uint64
}

// PCB is the single owned record for one simulated process. The
// simulation loop's PCB arena exclusively owns every PCB; a Core, the
// scheduler, or the IOManager hold only a reference at a time, per the
// ownership rule that a PCB lives in at most one of those three places.
type PCB struct {
	PID  int
	Name string

	Quantum       int
	Priority      int
	BurstEstimate uint64
	JobLength     uint32

	State State
	Regs  RegisterBank

	// PartitionID is -1 and PartitionBase/PartitionSize are 0 until the
	// memory manager allocates a partition for this process.
	PartitionID   int
	PartitionBase uint32
	PartitionSize uint32

	DataSegment []uint32
	CodeSegment []uint32
	Labels      map[string]uint32
	DataSymbols map[string]uint32

	Counters Counters

	ArrivalTime  uint64
	StartTime    uint64
	FinishTime   uint64
	WaitTime     uint64
	ResponseTime uint64

	MemWeights MemWeights
}

// New creates a PCB with an unbound partition and the given name/pid.
func New(pid int, name string) *PCB {
	return &PCB{
		PID:         pid,
		Name:        name,
		State:       Ready,
		PartitionID: -1,
		Labels:      make(map[string]uint32),
		DataSymbols: make(map[string]uint32),
	}
}

// Bound reports whether the process has been allocated a partition.
func (p *PCB) Bound() bool {
	return p.PartitionID >= 0
}

// Turnaround returns finish-arrival; callers must only read this once
// FinishTime has been stamped.
func (p *PCB) Turnaround() uint64 {
	if p.FinishTime < p.ArrivalTime {
		return 0
	}
	return p.FinishTime - p.ArrivalTime
}
