package encoding

import (
	"fmt"

	"github.com/streamforge/lgrep/graph"
)

type asciiEncoding struct{}

// ASCII is the one-byte-per-code-point encoding: every pattern rune must
// fit in a single byte.
var ASCII Encoding = asciiEncoding{}

func init() { Register(ASCII) }

func (asciiEncoding) Name() string { return "ASCII" }

func (asciiEncoding) Literal(fb *graph.FragmentBuilder, r rune) (Frag, error) {
	if r < 0 || r > 0xFF {
		return Frag{}, fmt.Errorf("encoding: code point %U does not fit in ASCII", r)
	}
	id := fb.AddState()
	fb.SetPredicate(id, graph.Literal(byte(r)))
	return Frag{Starts: []graph.StateID{id}, Ends: []graph.StateID{id}}, nil
}

func (asciiEncoding) Range(fb *graph.FragmentBuilder, lo, hi rune) (Frag, error) {
	if lo < 0 || hi > 0xFF || lo > hi {
		return Frag{}, fmt.Errorf("encoding: range [%U,%U] does not fit in ASCII", lo, hi)
	}
	id := fb.AddState()
	fb.SetPredicate(id, graph.Range(byte(lo), byte(hi)))
	return Frag{Starts: []graph.StateID{id}, Ends: []graph.StateID{id}}, nil
}

func (asciiEncoding) Dot(fb *graph.FragmentBuilder) (Frag, error) {
	id := fb.AddState()
	fb.SetPredicate(id, graph.Range(0, 255))
	return Frag{Starts: []graph.StateID{id}, Ends: []graph.StateID{id}}, nil
}
