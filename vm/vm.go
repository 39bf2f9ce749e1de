package vm

import (
	"github.com/streamforge/lgrep/compile"
	"github.com/streamforge/lgrep/simd"
)

// VM interprets a compile.Program against a stream of input blocks. A VM is
// stateful across Feed calls: active/next lists, the check-state bitset,
// and the match-reconciliation buffer all persist, so callers may present
// the input in arbitrarily sized pieces and get byte-identical results to
// one single Feed covering the whole input (spec §4.7, property 2).
//
// A VM is not safe for concurrent use; the program it runs may be shared
// read-only across many VMs searching concurrently (spec §5).
type VM struct {
	prog *compile.Program

	active []Thread
	next   []Thread

	check []bool

	buffer []matchCandidate

	pos uint64 // absolute offset of the next byte Feed will consume
}

// New creates a VM bound to prog. The active/next lists are preallocated to
// the program length, matching the teacher's reuse-don't-reallocate
// discipline for the hot per-byte path.
func New(prog *compile.Program) *VM {
	return &VM{
		prog:   prog,
		active: make([]Thread, 0, prog.Len()),
		next:   make([]Thread, 0, prog.Len()),
		check:  make([]bool, prog.NumCheckedStates),
		buffer: make([]matchCandidate, prog.NumLabels),
	}
}

// Pos returns the absolute offset of the next byte the VM will consume.
func (m *VM) Pos() uint64 { return m.pos }

// Feed advances the VM over one block of input, invoking emit synchronously
// for every hit committed while processing this block. Feed may be called
// any number of times before Flush; the VM's state carries over.
func (m *VM) Feed(block []byte, emit HitCallback) {
	i := 0
	for i < len(block) {
		b := block[i]
		offset := m.pos

		if len(m.active) == 0 && !m.prog.FirstBytes[b] {
			// No thread is alive and this byte cannot seed one. The byte
			// under the cursor only rules out a match starting at this
			// offset, so use the SIMD-accelerated table scan to jump
			// straight to the next byte that could seed a thread, instead
			// of re-checking FirstBytes one byte at a time.
			rest := block[i:]
			if idx := memchrSkip(rest, &m.prog.FirstBytes); idx >= 0 {
				m.pos += uint64(idx)
				i += idx
			} else {
				m.pos += uint64(len(rest))
				i += len(rest)
			}
			continue
		}

		if m.prog.FirstBytes[b] {
			m.active = append(m.active, newThread(0, offset))
		}

		for ti := 0; ti < len(m.active); ti++ {
			t := m.active[ti]
			m.run(&t, b, offset)
			if t.Label != noLabel && t.End == offset {
				m.reconcile(t, emit)
			}
		}

		m.active, m.next = m.next, m.active[:0]
		if m.check[0] {
			for j := range m.check {
				m.check[j] = false
			}
		}

		m.pos++
		i++
	}
}

// run executes a single thread's instruction chain for the current byte,
// until it either consumes the byte (pushed to m.next) or dies. It mutates
// t in place so the caller can inspect the final Label/End for
// reconciliation, mirroring the reference interpreter's call-by-reference
// execute() loop.
func (m *VM) run(t *Thread, b byte, offset uint64) {
	for {
		ins := m.prog.Instructions[t.PC]
		switch ins.Op {
		case compile.OpLit:
			if b == ins.A {
				t.PC++
				m.next = append(m.next, *t)
			}
			return
		case compile.OpEither:
			if b == ins.A || b == ins.B {
				t.PC++
				m.next = append(m.next, *t)
			}
			return
		case compile.OpRange:
			if ins.A <= b && b <= ins.B {
				t.PC++
				m.next = append(m.next, *t)
			}
			return
		case compile.OpJump:
			t.PC = ins.Arg
		case compile.OpFork:
			sibling := *t
			sibling.PC = ins.Arg
			m.active = append(m.active, sibling)
			t.PC++
		case compile.OpJumpTable:
			// The table slot at t.PC+1+b holds the real JUMP/HALT
			// instruction for this byte; push the thread pointed at that
			// slot into next and let it execute on the following byte,
			// exactly as the reference VM does (the byte is logically
			// consumed here, not when the slot's JUMP later runs).
			slot := t.PC + 1 + compile.Addr(b)
			if m.prog.Instructions[slot].Op == compile.OpHalt {
				return
			}
			t.PC = slot
			m.next = append(m.next, *t)
			return
		case compile.OpCheckBranch:
			idx := ins.Arg
			if m.check[idx] {
				t.PC += 2 // skip past the guarded FORK/JUMP entirely
			} else {
				m.check[idx] = true
				m.check[0] = true
				t.PC++ // land on the guarded FORK/JUMP, run it this step
			}
		case compile.OpCheckHalt:
			idx := ins.Arg
			if m.check[idx] {
				return
			}
			m.check[idx] = true
			m.check[0] = true
			t.PC++
		case compile.OpMatch:
			t.Label = uint32(ins.Arg)
			t.End = offset
			t.PC++
		case compile.OpHalt:
			return
		}
	}
}

// runEpsilons is run's end-of-input counterpart: byte-consuming opcodes do
// not fire (there is no more input to test against) and instead simply
// strand the thread in next, where it is discarded once Flush returns
// (spec §4.6, "End-of-input flush").
func (m *VM) runEpsilons(t *Thread, offset uint64) {
	for {
		ins := m.prog.Instructions[t.PC]
		switch ins.Op {
		case compile.OpLit, compile.OpEither, compile.OpRange, compile.OpJumpTable:
			m.next = append(m.next, *t)
			return
		case compile.OpJump:
			t.PC = ins.Arg
		case compile.OpFork:
			sibling := *t
			sibling.PC = ins.Arg
			m.active = append(m.active, sibling)
			t.PC++
		case compile.OpCheckBranch:
			idx := ins.Arg
			if m.check[idx] {
				t.PC += 2
			} else {
				m.check[idx] = true
				m.check[0] = true
				t.PC++
			}
		case compile.OpCheckHalt:
			idx := ins.Arg
			if m.check[idx] {
				return
			}
			m.check[idx] = true
			m.check[0] = true
			t.PC++
		case compile.OpMatch:
			t.Label = uint32(ins.Arg)
			t.End = offset
			t.PC++
		case compile.OpHalt:
			return
		}
	}
}

// reconcile folds a thread's freshly produced match into the leftmost-
// longest buffer, emitting a hit when an earlier, non-overlapping candidate
// is displaced (spec §4.6).
func (m *VM) reconcile(t Thread, emit HitCallback) {
	cell := &m.buffer[t.Label]
	switch {
	case !cell.occupied:
		*cell = matchCandidate{start: t.Start, end: t.End, occupied: true}
	case cell.start == t.Start && cell.end < t.End:
		cell.end = t.End
	case cell.end <= t.Start:
		emit(Hit{Offset: cell.start, Length: cell.end - cell.start, Label: t.Label})
		*cell = matchCandidate{start: t.Start, end: t.End, occupied: true}
	}
}

// Flush drains any threads still alive after the last input byte through
// an epsilon-only pass, reconciles their matches, and emits every
// remaining buffered candidate as a final hit. Call once at end-of-input;
// the VM should not be reused afterward.
func (m *VM) Flush(emit HitCallback) {
	offset := m.pos
	for ti := 0; ti < len(m.active); ti++ {
		t := m.active[ti]
		m.runEpsilons(&t, offset)
		if t.Label != noLabel && t.End == offset {
			m.reconcile(t, emit)
		}
	}
	m.active = m.active[:0]
	m.next = m.next[:0]
	if m.check[0] {
		for j := range m.check {
			m.check[j] = false
		}
	}

	for label := range m.buffer {
		cell := &m.buffer[label]
		if cell.occupied {
			emit(Hit{Offset: cell.start, Length: cell.end - cell.start, Label: uint32(label)})
			*cell = matchCandidate{}
		}
	}
}

// memchrSkip scans forward for the next byte that could seed a thread,
// driving Feed's no-active-thread fast path once the Commentz-Walter skip
// table has nothing further to say about the current byte. It is a thin
// wrapper over the SIMD-accelerated table scan the teacher ships.
func memchrSkip(block []byte, firstBytes *[256]bool) int {
	return simd.MemchrInTable(block, firstBytes)
}
