package compile

import (
	"testing"

	"github.com/streamforge/lgrep/graph"
)

// literalFragment builds a scratch fragment matching s, mirroring
// graph.buildLiteralFragment but from the compile package's test files.
func literalFragment(fb *graph.FragmentBuilder, s string) (*graph.Fragment, *graph.Graph) {
	var ids []graph.StateID
	for i := 0; i < len(s); i++ {
		id := fb.AddState()
		fb.SetPredicate(id, graph.Literal(s[i]))
		ids = append(ids, id)
	}
	for i := 0; i+1 < len(ids); i++ {
		fb.AddEdge(ids[i], ids[i+1])
	}
	return fb.Build(ids[0], ids[len(ids)-1], []graph.StateID{ids[len(ids)-1]})
}

func TestGenerateSingleLiteral(t *testing.T) {
	m := graph.NewMerger()
	f, s := literalFragment(graph.NewFragmentBuilder(), "ab")
	m.Merge(f, s, 0)
	g := m.Graph()

	prog, err := Generate(g, [256]bool{}, [256]uint32{}, graph.MinMatchLength(g))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if prog.Len() == 0 {
		t.Fatalf("expected a non-empty program")
	}

	// The program must contain exactly one MATCH instruction (single
	// pattern, single accepting state) and no CHECK instructions (every
	// state here has in-degree <= 1).
	matches, checks := 0, 0
	for _, ins := range prog.Instructions {
		switch ins.Op {
		case OpMatch:
			matches++
		case OpCheckBranch, OpCheckHalt:
			checks++
		}
	}
	if matches != 1 {
		t.Errorf("got %d MATCH instructions, want 1", matches)
	}
	if checks != 0 {
		t.Errorf("got %d CHECK instructions, want 0 for a single unbranched literal", checks)
	}
}

func TestGenerateSharedPrefixAllocatesCheckIndex(t *testing.T) {
	// "ab" and "ac" share their first state's convergence point only if a
	// later state is re-entered; build a graph where two independent
	// literals both point into the same shared tail state to force a
	// check-guarded convergence point (in-degree 2).
	fb := graph.NewFragmentBuilder()
	a := fb.AddState()
	b := fb.AddState()
	c := fb.AddState()
	shared := fb.AddState()
	fb.SetPredicate(a, graph.Literal('a'))
	fb.SetPredicate(b, graph.Literal('b'))
	fb.SetPredicate(c, graph.Literal('c'))
	fb.SetPredicate(shared, graph.Literal('!'))
	fb.AddEdge(a, shared)
	fb.AddEdge(b, shared)
	fb.AddEdge(c, shared)
	frag, scratch := fb.Build(a, shared, []graph.StateID{shared})

	m := graph.NewMerger()
	m.Merge(frag, scratch, 0)
	g := m.Graph()

	prog, err := Generate(g, [256]bool{}, [256]uint32{}, graph.MinMatchLength(g))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if prog.NumCheckedStates < 2 {
		t.Fatalf("NumCheckedStates = %d, want at least 2 (index 0 reserved + the shared state)", prog.NumCheckedStates)
	}

	sawCheck := false
	for _, ins := range prog.Instructions {
		if ins.Op == OpCheckBranch || ins.Op == OpCheckHalt {
			sawCheck = true
		}
	}
	if !sawCheck {
		t.Errorf("expected at least one CHECK instruction guarding the shared convergence state")
	}
}

func TestGenerateEpsilonHubMidPattern(t *testing.T) {
	// "a(b|c)d": a zero-width PredNone state joins the b/c branches, used
	// by the pattern parser for alternation that doesn't start at the
	// pattern's first byte. It must compile to a fork/jump tail with no
	// transition instruction of its own.
	fb := graph.NewFragmentBuilder()
	a := fb.AddState()
	hub := fb.AddState()
	b := fb.AddState()
	c := fb.AddState()
	d := fb.AddState()
	fb.SetPredicate(a, graph.Literal('a'))
	fb.SetPredicate(b, graph.Literal('b'))
	fb.SetPredicate(c, graph.Literal('c'))
	fb.SetPredicate(d, graph.Literal('d'))
	fb.AddEdge(a, hub)
	fb.AddEdge(hub, b)
	fb.AddEdge(hub, c)
	fb.AddEdge(b, d)
	fb.AddEdge(c, d)
	frag, scratch := fb.Build(a, d, []graph.StateID{d})

	m := graph.NewMerger()
	m.Merge(frag, scratch, 0)
	g := m.Graph()

	prog, err := Generate(g, [256]bool{}, [256]uint32{}, graph.MinMatchLength(g))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if prog.Len() == 0 {
		t.Fatalf("expected a non-empty program")
	}
}

func TestGenerateWideFanoutUsesJumpTable(t *testing.T) {
	fb := graph.NewFragmentBuilder()
	root := fb.AddState()
	fb.SetPredicate(root, graph.Literal('X'))
	var exits []graph.StateID
	for b := 0; b < jumpTableOutDegreeThreshold+5; b++ {
		leaf := fb.AddState()
		fb.SetPredicate(leaf, graph.Literal(byte(b)))
		fb.AddEdge(root, leaf)
		exits = append(exits, leaf)
	}
	frag, scratch := fb.Build(root, root, exits)

	m := graph.NewMerger()
	m.Merge(frag, scratch, 0)
	g := m.Graph()

	prog, err := Generate(g, [256]bool{}, [256]uint32{}, graph.MinMatchLength(g))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	sawTable := false
	for _, ins := range prog.Instructions {
		if ins.Op == OpJumpTable {
			sawTable = true
		}
	}
	if !sawTable {
		t.Errorf("expected a JUMP_TABLE instruction for a state with %d successors", jumpTableOutDegreeThreshold+5)
	}
}
