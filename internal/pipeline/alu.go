package pipeline

import "github.com/ehrlich-b/vonsim/internal/pcb"

// Flag bits within pcb.RegisterBank.Flags.
const (
	FlagZero uint8 = 1 << iota
	FlagNegative
)

// MemOpKind names what the Memory stage must do with an Effects value.
type MemOpKind uint8

const (
	MemNone MemOpKind = iota
	MemLoad
	MemStore
)

// IORequest is one I/O side-effect emitted by Execute for an IN/OUT
// instruction. Cost is the per-request tick charge the I/O manager adds
// on top of its base latency.
type IORequest struct {
	Op    string
	Value uint32
	Cost  uint64
}

// Effects is everything downstream stages need to commit: a register
// write, a PC override (branch/jump), flag updates, a pending memory
// access, an I/O request, or a halt signal. ALU.Execute never touches
// memory or the PCB directly — the Memory stage interprets Effects.
type Effects struct {
	WriteReg bool
	RegIndex int
	RegValue uint32

	PCOverride bool
	NewPC      uint32

	SetFlags bool
	Flags    uint8

	MemOp          MemOpKind
	MemLogicalAddr uint32
	MemStoreValue  uint32

	IO *IORequest

	Halt bool

	// Unknown is set when Execute saw an opcode it doesn't model. The
	// rest of Effects is a pure no-op in this case; the caller logs it.
	Unknown bool
}

// ALU is the opaque execution oracle named in the spec: a fully
// specified switch over this package's small instruction set, standing
// in for a real ISA's bit-level ALU.
type ALU struct{}

// Execute computes the Effects of one decoded instruction against the
// current register bank. Branches use regs.PC as it stands when Execute
// runs (the word index after the most recently fetched instruction) as
// their base.
func (ALU) Execute(instr Instruction, regs *pcb.RegisterBank) Effects {
	switch instr.Opcode {
	case OpADD:
		return regResult(instr.Rd, regs.GPR[instr.Rs]+regs.GPR[instr.Rt])
	case OpSUB:
		return regResult(instr.Rd, regs.GPR[instr.Rs]-regs.GPR[instr.Rt])
	case OpAND:
		return regResult(instr.Rd, regs.GPR[instr.Rs]&regs.GPR[instr.Rt])
	case OpOR:
		return regResult(instr.Rd, regs.GPR[instr.Rs]|regs.GPR[instr.Rt])
	case OpXOR:
		return regResult(instr.Rd, regs.GPR[instr.Rs]^regs.GPR[instr.Rt])
	case OpNOT:
		return regResult(instr.Rd, ^regs.GPR[instr.Rs])
	case OpSHL:
		return regResult(instr.Rd, regs.GPR[instr.Rs]<<(regs.GPR[instr.Rt]&0x1F))
	case OpSHR:
		return regResult(instr.Rd, regs.GPR[instr.Rs]>>(regs.GPR[instr.Rt]&0x1F))
	case OpCMP:
		return cmpResult(regs.GPR[instr.Rs], regs.GPR[instr.Rt])
	case OpADDI:
		return regResult(instr.Rt, uint32(int32(regs.GPR[instr.Rs])+instr.Imm))
	case OpLOAD:
		return Effects{
			MemOp:          MemLoad,
			MemLogicalAddr: uint32(int32(regs.GPR[instr.Rs]) + instr.Imm),
			RegIndex:       instr.Rt,
		}
	case OpSTORE:
		return Effects{
			MemOp:          MemStore,
			MemLogicalAddr: uint32(int32(regs.GPR[instr.Rs]) + instr.Imm),
			MemStoreValue:  regs.GPR[instr.Rt],
		}
	case OpBEQ:
		if regs.GPR[instr.Rs] == regs.GPR[instr.Rt] {
			return Effects{PCOverride: true, NewPC: uint32(int32(regs.PC) + instr.Imm)}
		}
		return Effects{}
	case OpBNE:
		if regs.GPR[instr.Rs] != regs.GPR[instr.Rt] {
			return Effects{PCOverride: true, NewPC: uint32(int32(regs.PC) + instr.Imm)}
		}
		return Effects{}
	case OpJMP:
		return Effects{PCOverride: true, NewPC: instr.Target}
	case OpIN:
		return Effects{IO: &IORequest{Op: "in", Cost: 1}}
	case OpOUT:
		return Effects{IO: &IORequest{Op: "out", Value: regs.GPR[instr.Rs], Cost: 1}}
	case OpHALT:
		return Effects{Halt: true}
	default:
		// Unknown opcode: log-and-no-op per the spec's error table. The
		// caller (unit.go's execute()) does the logging half.
		return Effects{Unknown: true}
	}
}

func regResult(idx int, value uint32) Effects {
	return Effects{WriteReg: true, RegIndex: idx, RegValue: value}
}

func cmpResult(a, b uint32) Effects {
	var flags uint8
	if a == b {
		flags |= FlagZero
	}
	if int32(a-b) < 0 {
		flags |= FlagNegative
	}
	return Effects{SetFlags: true, Flags: flags}
}
