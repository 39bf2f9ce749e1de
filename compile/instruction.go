// Package compile lowers a finalized graph.Graph into a flat bytecode
// Program that the vm package interprets one input byte at a time.
package compile

import "fmt"

// OpCode discriminates an Instruction's semantics (spec §3).
type OpCode uint8

const (
	// OpLit consumes the input byte if it equals A, else kills the thread.
	OpLit OpCode = iota
	// OpEither consumes the input byte if it equals A or B, else kills.
	OpEither
	// OpRange consumes the input byte if A <= byte <= B, else kills.
	OpRange
	// OpJump unconditionally sets PC to Addr.
	OpJump
	// OpFork spawns a sibling thread at Addr; the current thread falls
	// through to the next instruction.
	OpFork
	// OpJumpTable dispatches on the input byte via a 256-entry table that
	// immediately follows this instruction in the program.
	OpJumpTable
	// OpCheckBranch guards a following FORK/JUMP pair with dedup state Addr.
	OpCheckBranch
	// OpCheckHalt kills the thread if dedup state Addr is already set.
	OpCheckHalt
	// OpMatch records a match under pattern label Addr.
	OpMatch
	// OpHalt kills the thread unconditionally.
	OpHalt
)

func (op OpCode) String() string {
	switch op {
	case OpLit:
		return "LIT"
	case OpEither:
		return "EITHER"
	case OpRange:
		return "RANGE"
	case OpJump:
		return "JUMP"
	case OpFork:
		return "FORK"
	case OpJumpTable:
		return "JUMP_TABLE"
	case OpCheckBranch:
		return "CHECK_BRANCH"
	case OpCheckHalt:
		return "CHECK_HALT"
	case OpMatch:
		return "MATCH"
	case OpHalt:
		return "HALT"
	default:
		return fmt.Sprintf("OP(%d)", uint8(op))
	}
}

// Addr is a program index. It doubles as a check-state index for
// CHECK_BRANCH/CHECK_HALT and as a pattern label for MATCH.
type Addr uint32

// Instruction is a single fixed-width bytecode instruction (spec §3).
// For OpLit, A holds the literal byte. For OpEither/OpRange, A and B hold
// the two payload bytes. For OpJump/OpFork/OpCheckBranch/OpCheckHalt/OpMatch,
// Arg holds the address/index/label. OpJumpTable and OpHalt carry no
// meaningful payload.
type Instruction struct {
	Op  OpCode
	A   byte
	B   byte
	Arg Addr
}

// Lit builds a LIT instruction.
func Lit(b byte) Instruction { return Instruction{Op: OpLit, A: b} }

// EitherOp builds an EITHER instruction.
func EitherOp(a, b byte) Instruction { return Instruction{Op: OpEither, A: a, B: b} }

// RangeOp builds a RANGE instruction.
func RangeOp(lo, hi byte) Instruction { return Instruction{Op: OpRange, A: lo, B: hi} }

// Jump builds a JUMP instruction targeting addr.
func Jump(addr Addr) Instruction { return Instruction{Op: OpJump, Arg: addr} }

// Fork builds a FORK instruction targeting addr.
func Fork(addr Addr) Instruction { return Instruction{Op: OpFork, Arg: addr} }

// CheckBranch builds a CHECK_BRANCH instruction over check-state idx.
func CheckBranch(idx Addr) Instruction { return Instruction{Op: OpCheckBranch, Arg: idx} }

// CheckHalt builds a CHECK_HALT instruction over check-state idx.
func CheckHalt(idx Addr) Instruction { return Instruction{Op: OpCheckHalt, Arg: idx} }

// Match builds a MATCH instruction for pattern label.
func Match(label uint32) Instruction { return Instruction{Op: OpMatch, Arg: Addr(label)} }

// Halt builds a HALT instruction.
func Halt() Instruction { return Instruction{Op: OpHalt} }

// JumpTableHeader marks the start of a 256-entry jump table; the 256
// dispatch instructions (OpJump or OpHalt) immediately follow it in the
// program.
func JumpTableHeader() Instruction { return Instruction{Op: OpJumpTable} }

// Program is the immutable output of compilation: a flat instruction
// sequence plus the metadata the VM needs to seed and skip efficiently
// (spec §3, §4.3).
type Program struct {
	Instructions     []Instruction
	NumCheckedStates uint32 // includes reserved index 0, the dirty flag
	NumLabels        uint32 // one past the highest pattern label used by any MATCH
	FirstBytes       [256]bool
	SkipTable        [256]uint32
	MinMatchLength   uint32
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int { return len(p.Instructions) }

// String renders the program as a numbered instruction listing, used by the
// `prog` CLI subcommand (spec §6).
func (p *Program) String() string {
	s := ""
	for i, ins := range p.Instructions {
		s += fmt.Sprintf("%6d  %-12s", i, ins.Op)
		switch ins.Op {
		case OpLit:
			s += fmt.Sprintf("%q\n", ins.A)
		case OpEither:
			s += fmt.Sprintf("%q, %q\n", ins.A, ins.B)
		case OpRange:
			s += fmt.Sprintf("[%q-%q]\n", ins.A, ins.B)
		case OpJump, OpFork:
			s += fmt.Sprintf("%d\n", ins.Arg)
		case OpCheckBranch, OpCheckHalt:
			s += fmt.Sprintf("check[%d]\n", ins.Arg)
		case OpMatch:
			s += fmt.Sprintf("label %d\n", ins.Arg)
		default:
			s += "\n"
		}
	}
	return s
}
