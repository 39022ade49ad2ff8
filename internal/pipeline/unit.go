package pipeline

import (
	"github.com/ehrlich-b/vonsim/internal/logging"
	"github.com/ehrlich-b/vonsim/internal/pcb"
)

// drainStart is counterForEnd's initial value: five stages must each get
// one more tick to drain the window before the pipeline is considered
// empty, even though steady state only ever has instructions in four of
// the five slots at once.
const drainStart = 5

// MemoryAccessor is the subset of *memmgr.Manager the Memory stage needs.
// Kept as an interface here so pipeline never imports memmgr.
type MemoryAccessor interface {
	ReadLogical(logical uint32, p *pcb.PCB) (uint32, error)
	WriteLogical(logical, word uint32, p *pcb.PCB) error
}

type slot struct {
	raw     uint32
	instr   Instruction
	effects Effects
	loaded  uint32
	valid   bool
}

// Unit is the per-core windowed five-stage pipeline engine: Fetch,
// Decode, Execute, Memory, WriteBack each act on a different in-flight
// instruction in the same tick.
type Unit struct {
	data          []slot
	counter       int
	counterForEnd int
	endProgram    bool
	endExecution  bool
	clockCounter  int

	alu ALU
}

// NewUnit constructs a freshly reset pipeline engine.
func NewUnit() *Unit {
	return &Unit{counterForEnd: drainStart}
}

// Reset clears all window state for a new process assignment.
func (u *Unit) Reset() {
	u.data = u.data[:0]
	u.counter = 0
	u.counterForEnd = drainStart
	u.endProgram = false
	u.endExecution = false
	u.clockCounter = 0
}

// ClockCounter reports ticks spent on the currently assigned process.
func (u *Unit) ClockCounter() int { return u.clockCounter }

// TickResult reports what happened in one Tick call.
type TickResult struct {
	// Drained is true once the window has fully emptied following an
	// end-of-program or quantum-triggered drain.
	Drained bool
	// EndProgram is true if the drain was triggered by the end sentinel
	// rather than quantum exhaustion.
	EndProgram bool
	// BlockedIO is true if Execute issued an I/O request this tick; the
	// caller must hand IORequests to the I/O manager and not resume this
	// Unit until the process is unblocked and reassigned.
	BlockedIO  bool
	IORequests []IORequest
}

// Tick advances the pipeline by one cycle against p's register bank and
// program image, per the spec's per-tick protocol: WB, MEM, EX, DE, IF
// slots fire in that order against data[c-4..c], then c and clockCounter
// advance.
func (u *Unit) Tick(p *pcb.PCB, mem MemoryAccessor, quantum int) TickResult {
	c, e := u.counter, u.counterForEnd
	var result TickResult

	if c >= 4 && e >= 1 {
		u.writeBack(&u.data[c-4], p)
	}
	if c >= 3 && e >= 2 {
		u.memoryStage(&u.data[c-3], p, mem)
	}
	if c >= 2 && e >= 3 {
		blocked := u.execute(&u.data[c-2], p)
		if blocked {
			result.BlockedIO = true
			result.IORequests = append(result.IORequests, *u.data[c-2].effects.IO)
		}
	}
	if c >= 1 && e >= 4 {
		u.decode(&u.data[c-1])
	}
	if e == drainStart {
		u.fetch(p, mem)
	}

	u.counter++
	u.clockCounter++
	p.Counters.PipelineCycles.Add(1)

	if u.clockCounter >= quantum || u.endProgram {
		u.endExecution = true
	}
	if u.endExecution {
		u.counterForEnd--
	}
	if u.counterForEnd <= 0 {
		result.Drained = true
		result.EndProgram = u.endProgram
	}
	return result
}

func (u *Unit) fetch(p *pcb.PCB, mem MemoryAccessor) {
	raw, err := mem.ReadLogical(p.Regs.PC, p)
	if err != nil {
		logging.Default().Warnf("pipeline: fetch at pc=%d failed: %v", p.Regs.PC, err)
		u.endProgram = true
		u.data = append(u.data, slot{})
		return
	}
	if IsEndSentinel(raw) {
		u.endProgram = true
		u.data = append(u.data, slot{})
		return
	}
	u.data = append(u.data, slot{raw: raw, valid: true})
	p.Regs.PC++
}

func (u *Unit) decode(s *slot) {
	if !s.valid {
		return
	}
	s.instr = Decode(s.raw)
}

func (u *Unit) execute(s *slot, p *pcb.PCB) (blockedIO bool) {
	if !s.valid {
		return false
	}
	s.effects = u.alu.Execute(s.instr, &p.Regs)

	if s.effects.Unknown {
		logging.Default().Warnf("pipeline: unknown opcode %d at pc=%d for pid=%d", s.instr.Opcode, p.Regs.PC, p.PID)
	}
	if s.effects.IO != nil {
		p.State = pcb.Blocked
		return true
	}
	if s.effects.PCOverride {
		p.Regs.PC = s.effects.NewPC
	}
	if s.effects.Halt {
		u.endProgram = true
	}
	return false
}

func (u *Unit) memoryStage(s *slot, p *pcb.PCB, mem MemoryAccessor) {
	if !s.valid {
		return
	}
	switch s.effects.MemOp {
	case MemLoad:
		word, err := mem.ReadLogical(s.effects.MemLogicalAddr, p)
		if err != nil {
			logging.Default().Warnf("pipeline: load at %d failed: %v", s.effects.MemLogicalAddr, err)
			return
		}
		s.loaded = word
		s.effects.WriteReg = true
		s.effects.RegValue = word
	case MemStore:
		if err := mem.WriteLogical(s.effects.MemLogicalAddr, s.effects.MemStoreValue, p); err != nil {
			logging.Default().Warnf("pipeline: store at %d failed: %v", s.effects.MemLogicalAddr, err)
		}
	}
}

func (u *Unit) writeBack(s *slot, p *pcb.PCB) {
	if !s.valid {
		return
	}
	if s.effects.WriteReg && s.effects.RegIndex >= 0 && s.effects.RegIndex < len(p.Regs.GPR) {
		p.Regs.GPR[s.effects.RegIndex] = s.effects.RegValue
	}
	if s.effects.SetFlags {
		p.Regs.Flags = s.effects.Flags
	}
}
