package graph

// FirstByteSet computes the union of accepting bytes across every
// byte-consuming state reachable from the start state through PredNone hubs
// alone. The VM uses it to skip input positions at which no thread could
// possibly begin (spec §4.3, §4.6 step 1).
func FirstByteSet(g *Graph) *ByteSet {
	set := new(ByteSet)
	seen := make([]bool, g.NumStates())
	var visit func(v StateID)
	visit = func(v StateID) {
		g.OutNeighbors(v, func(n StateID) {
			if seen[n] {
				return
			}
			seen[n] = true
			if g.Predicate(n).Kind == PredNone {
				visit(n)
				return
			}
			set.Union(g.Predicate(n).AcceptingBytes())
		})
	}
	visit(0)
	return set
}

// bfsDepths returns, for every state reachable from state 0, the fewest
// byte-consuming states on a path from state 0 to it (edges into PredNone
// states are free), -1 for states not reached from the start.
func bfsDepths(g *Graph) []int {
	depth := make([]int, g.NumStates())
	for i := range depth {
		depth[i] = -1
	}
	depth[0] = 0
	queue := []StateID{0}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		d := depth[v]
		g.OutNeighbors(v, func(n StateID) {
			w := 1
			if g.Predicate(n).Kind == PredNone {
				w = 0
			}
			if depth[n] == -1 || d+w < depth[n] {
				depth[n] = d + w
				queue = append(queue, n)
			}
		})
	}
	return depth
}

// MinMatchLength returns the length of the shortest path from state 0 to any
// accepting state, measured in consumed bytes (epsilon edges are free).
// Returns 0 if no accepting state is reachable.
func MinMatchLength(g *Graph) uint32 {
	depth := bfsDepths(g)
	best := -1
	for v := 0; v < g.NumStates(); v++ {
		if g.IsMatch(StateID(v)) && depth[v] >= 0 {
			if best == -1 || depth[v] < best {
				best = depth[v]
			}
		}
	}
	if best < 0 {
		return 0
	}
	return uint32(best)
}

// SkipTable computes, for each of the 256 possible bytes, the minimum number
// of input positions the search cursor may safely advance when no thread is
// currently active and the byte under the cursor is b. This is a
// Commentz-Walter-style lookahead (spec §4.3): for every state v reachable
// at BFS depth d that accepts byte b, shift[b] is the maximum over all such
// v of (minMatchLength - d), clamped to be at least 1. Bytes accepted by no
// reachable state get shift = minMatchLength (or 1 if that would be 0).
func SkipTable(g *Graph) [256]uint32 {
	depth := bfsDepths(g)
	minLen := MinMatchLength(g)

	var table [256]uint32
	def := minLen
	if def == 0 {
		def = 1
	}
	for i := range table {
		table[i] = def
	}

	seen := make([]bool, 256)
	for v := 0; v < g.NumStates(); v++ {
		if depth[v] < 0 {
			continue
		}
		pred := g.Predicate(StateID(v))
		if pred.Kind == PredNone {
			continue
		}
		bytes := pred.AcceptingBytes()
		for b := 0; b < 256; b++ {
			if !bytes.Contains(byte(b)) {
				continue
			}
			shift := int(minLen) - depth[v]
			if shift < 1 {
				shift = 1
			}
			if !seen[b] || uint32(shift) > table[b] {
				table[b] = uint32(shift)
				seen[b] = true
			}
		}
	}
	return table
}
