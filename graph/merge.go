package graph

// Fragment is the entry/exit pair of an NFA sub-graph representing one
// pattern before it is merged into the shared graph (spec §4.2, §4.5). The
// parser collaborator produces one Fragment per pattern; Accepting lists the
// states within the fragment that should be stamped with the pattern's
// match label once merged (usually just Exit, but epsilon-alternatives of
// one pattern may produce several accepting states sharing one label).
type Fragment struct {
	Entry     StateID
	Exit      StateID
	Accepting []StateID
}

// Merger assembles per-pattern fragments into one shared Graph with a
// common start state, so that all patterns run simultaneously under a
// single VM pass (spec §4.2).
type Merger struct {
	g *Graph
}

// NewMerger creates a Merger around a fresh shared graph.
func NewMerger() *Merger {
	return &Merger{g: New()}
}

// Graph returns the graph built so far.
func (m *Merger) Graph() *Graph { return m.g }

// FragmentBuilder is the minimal surface the parser collaborator uses to
// build a Fragment before merging: it constructs states and edges in an
// isolated scratch graph, then Merge offsets them into the shared graph.
type FragmentBuilder struct {
	g *Graph
}

// NewFragmentBuilder creates a scratch graph for building one pattern's
// fragment in isolation from the shared graph.
func NewFragmentBuilder() *FragmentBuilder {
	// A fresh scratch graph also starts with its own state 0, which is
	// discarded here: fragments do not use a start state of their own,
	// they get epsilon-wired to the shared start state 0 on Merge.
	return &FragmentBuilder{g: &Graph{states: nil}}
}

// AddState appends a new state to the scratch graph. Returns its local id.
func (fb *FragmentBuilder) AddState() StateID {
	id := StateID(len(fb.g.states))
	fb.g.states = append(fb.g.states, state{label: noLabel})
	return id
}

// SetPredicate sets the predicate of a scratch state.
func (fb *FragmentBuilder) SetPredicate(v StateID, p Predicate) { fb.g.SetPredicate(v, p) }

// AddEdge adds an edge within the scratch graph.
func (fb *FragmentBuilder) AddEdge(src, dst StateID) { fb.g.AddEdge(src, dst) }

// Build finalizes the fragment given its entry/exit/accepting states,
// expressed in the scratch graph's local numbering.
func (fb *FragmentBuilder) Build(entry, exit StateID, accepting []StateID) (*Fragment, *Graph) {
	return &Fragment{Entry: entry, Exit: exit, Accepting: accepting}, fb.g
}

// Merge copies frag's states (drawn from scratch, its own local Graph) into
// the shared graph, offsetting indices, stamping label on frag's accepting
// states only, and wiring an epsilon edge from the shared start state to
// the fragment's entry. Determinism of per-byte behavior is preserved:
// overlapping predicates are never merged silently, they remain separate
// states (spec §4.2 item 3).
//
// On success returns the fragment's entry state as seen in the shared
// graph. Never mutates the shared graph on the parser's behalf if scratch
// is nil (signals a parser failure) — the caller is expected to have
// already surfaced that error and simply skip calling Merge.
func (m *Merger) Merge(frag *Fragment, scratch *Graph, label uint32) StateID {
	offset := StateID(m.g.NumStates())

	for i := 0; i < scratch.NumStates(); i++ {
		m.g.AddState()
	}
	for i := 0; i < scratch.NumStates(); i++ {
		v := StateID(i)
		m.g.SetPredicate(offset+v, scratch.Predicate(v))
		scratch.OutNeighbors(v, func(n StateID) {
			m.g.AddEdge(offset+v, offset+n)
		})
	}

	for _, acc := range frag.Accepting {
		m.g.SetLabel(offset+acc, label)
	}

	entry := offset + frag.Entry
	m.g.AddEdge(0, entry)
	return entry
}
