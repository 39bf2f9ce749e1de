package graph

// Determinize returns a new graph with every pair of provably
// interchangeable states collapsed into one: same predicate, same
// accepting label, and out-edges that point, in the same order, to other
// interchangeable states. This is Moore-style DFA partition refinement
// generalized to preserve edge order, since this engine's fan-out order
// doubles as codegen's branch priority (spec.md §9 "Determinization") and
// must survive untouched.
//
// Unlike textbook subset construction over an alphabet-indexed transition
// function, states here already carry their own consuming predicate
// (spec §2): determinizing never introduces a new combined byte-set
// predicate, it only ever reduces the existing state and fan-out count.
// Bytecode shape generated from the result is unaffected; only the
// program's size tends to shrink when patterns share suffixes.
func Determinize(g *Graph) *Graph {
	n := g.NumStates()
	if n == 0 {
		return g
	}

	class := partitionRefine(g, n)

	ng := &Graph{}
	newID := make([]StateID, n)
	repr := make([]StateID, 0, n)
	seen := make(map[int]int, n) // class -> index into repr/newID space

	for v := 0; v < n; v++ {
		c := class[v]
		if _, ok := seen[c]; !ok {
			seen[c] = len(repr)
			repr = append(repr, StateID(v))
			ng.AddState()
		}
		newID[v] = StateID(seen[c])
	}

	for i, origID := range repr {
		nid := StateID(i)
		ng.SetPredicate(nid, g.Predicate(origID))
		if label, ok := g.Label(origID); ok {
			ng.SetLabel(nid, label)
		}
	}

	for i, origID := range repr {
		nid := StateID(i)
		g.OutNeighbors(origID, func(nb StateID) {
			ng.AddEdge(nid, newID[nb])
		})
	}

	return ng
}

// partitionRefine computes the coarsest partition of [0,n) states such
// that two states in the same class have identical predicates, identical
// accepting labels, and out-edges that agree, position by position, on
// which class each successor belongs to.
func partitionRefine(g *Graph, n int) []int {
	type sigKey struct {
		kind      PredicateKind
		lo, hi    byte
		label     uint32
		accepting bool
	}

	class := make([]int, n)
	initial := make(map[sigKey]int, n)
	for v := 0; v < n; v++ {
		p := g.Predicate(StateID(v))
		label, ok := g.Label(StateID(v))
		k := sigKey{kind: p.Kind, lo: p.Lo, hi: p.Hi, label: label, accepting: ok}
		id, ok2 := initial[k]
		if !ok2 {
			id = len(initial)
			initial[k] = id
		}
		class[v] = id
	}
	count := len(initial)

	type refinedKey struct {
		base int
		sig  string
	}
	for {
		next := make(map[refinedKey]int, n)
		newClass := make([]int, n)
		for v := 0; v < n; v++ {
			var buf []byte
			g.OutNeighbors(StateID(v), func(nb StateID) {
				c := uint32(class[nb])
				buf = append(buf, byte(c), byte(c>>8), byte(c>>16), byte(c>>24))
			})
			key := refinedKey{base: class[v], sig: string(buf)}
			id, ok := next[key]
			if !ok {
				id = len(next)
				next[key] = id
			}
			newClass[v] = id
		}
		if len(next) == count {
			return newClass
		}
		class = newClass
		count = len(next)
	}
}
