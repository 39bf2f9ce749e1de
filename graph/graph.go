// Package graph implements the mutable NFA graph that patterns compile into.
//
// A Graph is an ordered sequence of States. State 0 is always the shared
// start state and has no predicate (an epsilon source). Every pattern
// fragment merged into the graph reaches the start state through an epsilon
// edge, so all patterns run concurrently under a single traversal.
//
// Adjacency is stored with a 0/1/many representation: the overwhelming
// majority of states have zero or one successor, so paying for a slice
// header and a heap allocation on every state would be wasteful. Only states
// with two or more neighbors spill into a side table of neighbor slices.
package graph

import "fmt"

// StateID identifies a state within a Graph. Indices are stable for the
// lifetime of the graph.
type StateID uint32

// PredicateKind discriminates the byte-matching behavior of a State.
type PredicateKind uint8

const (
	// PredNone marks a state with no byte predicate: the start state, and
	// any zero-width hub the pattern parser uses to join or fan out
	// branches. Such a state consumes no input.
	PredNone PredicateKind = iota
	// PredLiteral matches a single byte.
	PredLiteral
	// PredRange matches an inclusive byte range [Lo, Hi].
	PredRange
	// PredEither matches exactly one of two bytes.
	PredEither
	// PredSet matches any byte present in a 256-bit set.
	PredSet
)

// Predicate describes which input byte(s) a state accepts.
type Predicate struct {
	Kind   PredicateKind
	Lo, Hi byte      // PredLiteral (Lo only), PredRange, PredEither (Lo, Hi)
	Set    *ByteSet  // PredSet
}

// Literal returns a predicate that matches exactly the byte b.
func Literal(b byte) Predicate { return Predicate{Kind: PredLiteral, Lo: b} }

// Range returns a predicate that matches any byte in [lo, hi].
func Range(lo, hi byte) Predicate { return Predicate{Kind: PredRange, Lo: lo, Hi: hi} }

// Either returns a predicate that matches exactly a or b.
func Either(a, b byte) Predicate { return Predicate{Kind: PredEither, Lo: a, Hi: b} }

// Set returns a predicate that matches any byte present in s.
func Set(s *ByteSet) Predicate { return Predicate{Kind: PredSet, Set: s} }

// Accepts reports whether the predicate accepts byte b.
func (p Predicate) Accepts(b byte) bool {
	switch p.Kind {
	case PredLiteral:
		return b == p.Lo
	case PredRange:
		return p.Lo <= b && b <= p.Hi
	case PredEither:
		return b == p.Lo || b == p.Hi
	case PredSet:
		return p.Set != nil && p.Set.Contains(b)
	default:
		return false
	}
}

// AcceptingBytes returns the set of bytes the predicate accepts. Used by
// the first-byte-set analysis.
func (p Predicate) AcceptingBytes() *ByteSet {
	s := new(ByteSet)
	switch p.Kind {
	case PredLiteral:
		s.Add(p.Lo)
	case PredRange:
		for b := int(p.Lo); b <= int(p.Hi); b++ {
			s.Add(byte(b))
		}
	case PredEither:
		s.Add(p.Lo)
		s.Add(p.Hi)
	case PredSet:
		if p.Set != nil {
			*s = *p.Set
		}
	}
	return s
}

// ByteSet is a 256-bit membership set over byte values.
type ByteSet [4]uint64

// Add inserts b into the set.
func (s *ByteSet) Add(b byte) { s[b>>6] |= 1 << (b & 63) }

// Contains reports whether b is in the set.
func (s *ByteSet) Contains(b byte) bool { return s[b>>6]&(1<<(b&63)) != 0 }

// Union merges other into s.
func (s *ByteSet) Union(other *ByteSet) {
	for i := range s {
		s[i] |= other[i]
	}
}

// Array expands the set into a [256]bool, the representation the compiler
// and VM consume directly (Program.FirstBytes).
func (s *ByteSet) Array() [256]bool {
	var a [256]bool
	for b := 0; b < 256; b++ {
		a[b] = s.Contains(byte(b))
	}
	return a
}

// Count returns the number of bytes present in the set.
func (s *ByteSet) Count() int {
	n := 0
	for _, w := range s {
		for w != 0 {
			w &= w - 1
			n++
		}
	}
	return n
}

// noLabel marks a state with no match label.
const noLabel = ^uint32(0)

// adjKind is the discriminant of the 0/1/many neighbor encoding.
type adjKind uint8

const (
	adjZero adjKind = iota
	adjOne
	adjMany
)

// adjacency is the compact 0/1/many neighbor list for one direction
// (in or out) of a single state.
type adjacency struct {
	kind   adjKind
	single StateID // valid when kind == adjOne
	row    int     // index into Graph.rows when kind == adjMany
}

type state struct {
	pred  Predicate
	label uint32 // noLabel when unset
	in    adjacency
	out   adjacency
}

// Graph is the mutable NFA graph shared by all patterns compiled together.
type Graph struct {
	states []state
	rows   [][]StateID // side table for adjZero/adjOne overflow ("many")
}

// New creates an empty graph with the start state (index 0) already present.
func New() *Graph {
	g := &Graph{}
	start := g.AddState()
	if start != 0 {
		panic("graph: start state must be index 0")
	}
	return g
}

// AddState appends a new state with no predicate, no label, and no edges.
// Returns its StateID. O(1) amortized.
func (g *Graph) AddState() StateID {
	id := StateID(len(g.states))
	g.states = append(g.states, state{label: noLabel})
	return id
}

// NumStates returns the number of states in the graph.
func (g *Graph) NumStates() int { return len(g.states) }

func (g *Graph) mustState(v StateID) *state {
	if int(v) >= len(g.states) {
		panic(fmt.Sprintf("graph: state %d out of range (have %d)", v, len(g.states)))
	}
	return &g.states[v]
}

// SetPredicate sets the transition predicate for state v.
func (g *Graph) SetPredicate(v StateID, p Predicate) {
	g.mustState(v).pred = p
}

// Predicate returns the transition predicate for state v.
func (g *Graph) Predicate(v StateID) Predicate {
	return g.mustState(v).pred
}

// SetLabel stamps a match label (pattern index) on state v, marking it
// accepting.
func (g *Graph) SetLabel(v StateID, label uint32) {
	g.mustState(v).label = label
}

// Label returns the match label of v and whether one is set.
func (g *Graph) Label(v StateID) (label uint32, ok bool) {
	l := g.mustState(v).label
	return l, l != noLabel
}

// IsMatch reports whether v carries a match label.
func (g *Graph) IsMatch(v StateID) bool {
	_, ok := g.Label(v)
	return ok
}

// EdgeExists reports whether an edge src->dst is already present.
func (g *Graph) EdgeExists(src, dst StateID) bool {
	found := false
	g.iterAdj(&g.mustState(src).out, func(v StateID) {
		if v == dst {
			found = true
		}
	})
	return found
}

// AddEdge adds an edge src->dst to both the source's out-list and the
// destination's in-list. A no-op if the edge already exists.
func (g *Graph) AddEdge(src, dst StateID) {
	if g.EdgeExists(src, dst) {
		return
	}
	g.addAdj(&g.mustState(src).out, dst)
	g.addAdj(&g.mustState(dst).in, src)
}

func (g *Graph) addAdj(a *adjacency, v StateID) {
	switch a.kind {
	case adjZero:
		a.kind = adjOne
		a.single = v
	case adjOne:
		row := []StateID{a.single, v}
		a.row = len(g.rows)
		g.rows = append(g.rows, row)
		a.kind = adjMany
	case adjMany:
		g.rows[a.row] = append(g.rows[a.row], v)
	}
}

func (g *Graph) iterAdj(a *adjacency, f func(StateID)) {
	switch a.kind {
	case adjZero:
	case adjOne:
		f(a.single)
	case adjMany:
		for _, v := range g.rows[a.row] {
			f(v)
		}
	}
}

func (g *Graph) degree(a *adjacency) int {
	switch a.kind {
	case adjZero:
		return 0
	case adjOne:
		return 1
	default:
		return len(g.rows[a.row])
	}
}

// OutDegree returns the number of outgoing edges of v in O(1).
func (g *Graph) OutDegree(v StateID) int { return g.degree(&g.mustState(v).out) }

// InDegree returns the number of incoming edges of v in O(1).
func (g *Graph) InDegree(v StateID) int { return g.degree(&g.mustState(v).in) }

// OutNeighbors calls f once per outgoing neighbor of v, in insertion order.
func (g *Graph) OutNeighbors(v StateID, f func(StateID)) {
	g.iterAdj(&g.mustState(v).out, f)
}

// InNeighbors calls f once per incoming neighbor of v, in insertion order.
func (g *Graph) InNeighbors(v StateID, f func(StateID)) {
	g.iterAdj(&g.mustState(v).in, f)
}

// OutNeighborSlice materializes the outgoing neighbors of v. Prefer
// OutNeighbors for hot paths; this exists for callers (codegen, tests) that
// want a stable slice to sort or index into.
func (g *Graph) OutNeighborSlice(v StateID) []StateID {
	var out []StateID
	g.OutNeighbors(v, func(n StateID) { out = append(out, n) })
	return out
}
