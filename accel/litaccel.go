// Package accel wraps github.com/coregx/ahocorasick as an optional literal
// fast path (spec §4.7, DOMAIN STACK): when every pattern in a compiled set
// is a plain literal, LiteralAutomaton drives a pure multi-pattern-literal
// search that bypasses the bytecode VM entirely, mirroring the teacher's
// own UseAhoCorasick strategy selection in meta/compile.go for large
// literal alternations.
package accel

import (
	"github.com/coregx/ahocorasick"

	"github.com/streamforge/lgrep/internal/conv"
	"github.com/streamforge/lgrep/vm"
)

// LiteralAutomaton implements search.Strategy (Feed/Flush, matching
// *vm.VM's own shape) over a fixed set of literal patterns.
//
// The retrieved example pack never exercises github.com/coregx/ahocorasick
// from outside the teacher's own meta package, and the teacher only ever
// reads Match.Start/Match.End (meta/find.go) since its own automaton backs
// a single regex's literal alternation, never a multi-pattern label. Feed
// below also reads Match.PatternID and uses it as the hit label, taking it
// to be the literal's AddPattern insertion index; see DESIGN.md.
type LiteralAutomaton struct {
	auto   *ahocorasick.Automaton
	maxLen int

	pos   uint64 // absolute offset one past the last byte handed to Feed
	carry []byte // trailing bytes of the previous block, held back so a
	// literal spanning a block boundary is still found in the next Feed
	// call, mirroring the VM's own cross-block thread state (spec §4.7,
	// property 2) at a coarser grain.
}

// NewLiteralAutomaton builds an automaton over literals, indexed so each
// literal's position in the slice becomes its match label. Returns an
// error if the pattern set is empty or the underlying builder rejects it.
func NewLiteralAutomaton(literals [][]byte) (*LiteralAutomaton, error) {
	b := ahocorasick.NewBuilder()
	maxLen := 1
	for _, lit := range literals {
		b.AddPattern(lit)
		if len(lit) > maxLen {
			maxLen = len(lit)
		}
	}
	auto, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &LiteralAutomaton{auto: auto, maxLen: maxLen}, nil
}

// Feed scans one block and reports the matches Find returns, resuming one
// byte past each match's start so overlapping matches at different offsets
// are all reported; where several literals match at the same offset, only
// the one Find returns is reported. It carries forward enough trailing
// context to catch matches that straddle the next block's boundary.
func (a *LiteralAutomaton) Feed(block []byte, emit vm.HitCallback) {
	carryLen := len(a.carry)
	buf := make([]byte, 0, carryLen+len(block))
	buf = append(buf, a.carry...)
	buf = append(buf, block...)
	base := a.pos - uint64(carryLen)

	at := 0
	for at <= len(buf) {
		m := a.auto.Find(buf, at)
		if m == nil {
			break
		}
		// A match wholly inside the carried prefix was already emitted the
		// last time this bytes range was scanned; only matches that reach
		// into the new block are new information.
		if m.End > carryLen {
			emit(vm.Hit{
				Offset: base + uint64(m.Start),
				Length: uint64(m.End - m.Start),
				Label:  conv.IntToUint32(m.PatternID),
			})
		}
		at = m.Start + 1
	}

	a.pos += uint64(len(block))
	keep := a.maxLen - 1
	if keep > len(buf) {
		keep = len(buf)
	}
	if keep < 0 {
		keep = 0
	}
	a.carry = append(a.carry[:0], buf[len(buf)-keep:]...)
}

// Flush is a no-op: an Aho-Corasick match is always fully resolved by the
// time Find returns it, unlike the bytecode VM's epsilon-pending threads.
func (a *LiteralAutomaton) Flush(vm.HitCallback) {}

// IsMatch reports whether any literal occurs anywhere in block, without
// computing match offsets. Exposed for callers that only need a yes/no
// answer (e.g. a --quiet mode), matching the teacher's ismatch.go split
// between Find and IsMatch call sites.
func (a *LiteralAutomaton) IsMatch(block []byte) bool {
	return a.auto.IsMatch(block)
}
