// Package encoding expands code-point-level pattern predicates into
// byte-level NFA fragments for a specific text encoding (spec §4.5, §6).
// The pattern parser is encoding-agnostic; it asks an Encoding to turn each
// literal rune or rune range into states wired into the shared scratch
// graph it is building.
package encoding

import "github.com/streamforge/lgrep/graph"

// Frag is a small fragment within a larger scratch graph under
// construction: Starts are the states a predecessor should wire an edge
// into to attempt this fragment, Ends are the states a successor should
// wire an edge from. Unlike graph.Fragment, both sides may hold more than
// one state, letting the pattern parser compose alternation and optional
// constructs without a dedicated epsilon node type.
type Frag struct {
	Starts []graph.StateID
	Ends   []graph.StateID
}

// Encoding expands a single pattern rune, or an inclusive rune range, into
// byte-level states appended to fb.
type Encoding interface {
	Name() string
	Literal(fb *graph.FragmentBuilder, r rune) (Frag, error)
	Range(fb *graph.FragmentBuilder, lo, hi rune) (Frag, error)
	// Dot expands the pattern's "match any character" atom. This is its
	// own method rather than a call to Range over the full code point
	// domain because encodings whose code units are wider than one byte
	// (UTF16LE) can express "any" far more directly as raw byte ranges
	// than by enumerating every code point.
	Dot(fb *graph.FragmentBuilder) (Frag, error)
}

var registry = map[string]Encoding{}

// Register makes e available under e.Name() to pattern.Compile, which looks
// up the names a pattern file's encoding_list column lists. Called from each
// encoding's init().
func Register(e Encoding) { registry[e.Name()] = e }

// Lookup returns the registered Encoding named name.
func Lookup(name string) (Encoding, bool) {
	e, ok := registry[name]
	return e, ok
}
