package compile

import (
	"github.com/streamforge/lgrep/graph"
	"github.com/streamforge/lgrep/internal/conv"
	"github.com/streamforge/lgrep/internal/sparse"
)

// jumpTableOutDegreeThreshold is the out-degree above which a state's tail
// switches from a FORK/JUMP chain to a 256-entry JUMP_TABLE.
const jumpTableOutDegreeThreshold = 32

// maxSnippetSlots is the naive-tail size above which a state's snippet
// switches to a JUMP_TABLE regardless of out-degree (spec §4.4).
const maxSnippetSlots = 256

// discoverInfo is the per-state bookkeeping the discovery pass produces.
type discoverInfo struct {
	rank     int // DFS discover rank; -1 if unreachable
	checkIdx Addr
	hasCheck bool
}

// Generate lowers g into a bytecode Program (spec §4.4). firstBytes,
// skipTable and minMatchLength are attached verbatim from the graph
// analyses (spec §4.3); Generate does not recompute them.
func Generate(g *graph.Graph, firstBytes [256]bool, skipTable [256]uint32, minMatchLength uint32) (*Program, error) {
	n := g.NumStates()
	infos := make([]discoverInfo, n)
	for i := range infos {
		infos[i].rank = -1
	}

	order := discover(g, infos)

	// Allocate check indices: index 0 is reserved as the per-byte-step dirty
	// flag (spec §4.6); every state with in-degree > 1 gets the next free
	// index, in discover order for determinism.
	next := Addr(1)
	for _, v := range order {
		if g.InDegree(v) > 1 {
			infos[v].hasCheck = true
			infos[v].checkIdx = next
			next++
		}
	}

	// The instruction set has no opcode for an arbitrary byte-set transition:
	// LIT/EITHER/RANGE cover every consuming predicate a parser is expected
	// to emit. PredSet exists in the graph package purely as a carrier for
	// unioned first-byte sets (see graph.FirstByteSet); it must never reach
	// a state's own transition predicate. Seeing one here means a parser
	// bug, not a legal epsilon state.
	//
	// PredNone is legal on any state, not just state 0: the parser uses it
	// as a zero-width fan-out hub for constructs with no byte of their own
	// (optional/repeat joins, mid-pattern alternation). Such a state emits
	// no transition instruction, only its tail fork/jump chain.
	for _, v := range order {
		if g.Predicate(v).Kind == graph.PredSet {
			return nil, &InvariantError{State: int(v), Message: "state predicate is an unlowered byte-set"}
		}
	}

	cg := &codegen{g: g, infos: infos}

	// Size pass: decide straight-line vs. jump-table encoding per state and
	// compute each state's snippet size without knowing final addresses yet.
	sizes := make([]int, n)
	plans := make([]snippetPlan, n)
	for _, v := range order {
		plan := cg.planSnippet(v)
		plans[v] = plan
		sizes[v] = plan.size()
	}

	// Address pass: snippets are laid out in discover-rank order, so each
	// state's start address is the prefix sum of the sizes before it.
	starts := make([]Addr, n)
	addr := Addr(0)
	for _, v := range order {
		starts[v] = addr
		addr += Addr(sizes[v])
	}
	total := int(addr)

	prog := &Program{
		Instructions:     make([]Instruction, 0, total),
		NumCheckedStates: uint32(next),
		FirstBytes:       firstBytes,
		SkipTable:        skipTable,
		MinMatchLength:   minMatchLength,
	}

	for _, v := range order {
		before := len(prog.Instructions)
		cg.emitSnippet(prog, v, plans[v], starts)
		got := len(prog.Instructions) - before
		if got != sizes[v] {
			return nil, &InvariantError{
				State:   int(v),
				Message: "emitted instruction count does not match precomputed snippet size",
			}
		}
	}

	for _, ins := range prog.Instructions {
		if ins.Op == OpMatch && uint32(ins.Arg)+1 > prog.NumLabels {
			prog.NumLabels = uint32(ins.Arg) + 1
		}
	}

	return prog, nil
}

// discover runs a deterministic DFS from state 0, visiting out-neighbors in
// insertion order, and returns the states in discover order. Any state
// unreachable from 0 (should not occur given the merge invariant that every
// fragment hangs off the shared start) is appended afterward in ID order so
// Generate still produces a valid, if suboptimally laid out, program.
func discover(g *graph.Graph, infos []discoverInfo) []graph.StateID {
	n := g.NumStates()
	visited := sparse.NewSparseSet(conv.IntToUint32(n))
	order := make([]graph.StateID, 0, n)

	var stack []graph.StateID
	stack = append(stack, 0)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Contains(uint32(v)) {
			continue
		}
		visited.Insert(uint32(v))
		infos[v].rank = len(order)
		order = append(order, v)

		// Push children in reverse so the first child is popped (and hence
		// discovered) first, preserving the edge's insertion order as the
		// DFS tree order that the fallthrough optimization relies on.
		kids := g.OutNeighborSlice(v)
		for i := len(kids) - 1; i >= 0; i-- {
			if !visited.Contains(uint32(kids[i])) {
				stack = append(stack, kids[i])
			}
		}
	}

	for v := 0; v < n; v++ {
		if !visited.Contains(uint32(v)) {
			infos[v].rank = len(order)
			order = append(order, graph.StateID(v))
		}
	}
	return order
}

// tailEdge is one resolved tail instruction: either a guarded/unguarded
// FORK or a guarded/unguarded terminal JUMP.
type tailEdge struct {
	target  graph.StateID
	isJump  bool // false => FORK
	guarded bool
}

// snippetPlan is the precomputed shape of one state's emitted instructions,
// frozen before addresses are known so sizes (and hence addresses) are
// stable across the size and address passes.
type snippetPlan struct {
	hasTransition  bool
	hasMatch       bool
	useJumpTable   bool
	tail           []tailEdge // straight-line encoding
	fallthroughTo  graph.StateID
	hasFallthrough bool
	fallGuarded    bool
	indirect       []jtGroup // jump-table encoding: appended FORK/JUMP groups
}

// jtGroup is one appended indirect sequence in a jump-table snippet, shared
// by every table byte whose accepting successor set equals targets.
type jtGroup struct {
	offset  int // slot offset within the indirect section
	targets []graph.StateID
	size    int // instruction count, including any CHECK guards
}

func (p snippetPlan) size() int {
	n := 0
	if p.hasTransition {
		n++
	}
	if p.hasMatch {
		n++
	}
	if p.useJumpTable {
		n++ // header
		n += 256
		for _, grp := range p.indirect {
			n += grp.size
		}
		return n
	}
	for _, e := range p.tail {
		if e.guarded {
			n++
		}
		n++
	}
	if p.hasFallthrough && p.fallGuarded {
		n++
	}
	if len(p.tail) == 0 && !p.hasFallthrough {
		n++ // HALT: a state with no successors ends its thread here
	}
	return n
}

// groupSize returns the instruction count of a straight-line FORK chain
// ending in a terminal JUMP over targets (no fallthrough option exists for
// an appended indirect sequence): one slot per target for the FORK/JUMP
// itself, plus one more for each target that carries a check index.
func (cg *codegen) groupSize(targets []graph.StateID) int {
	n := len(targets)
	for _, w := range targets {
		if _, checked := cg.hasCheck(w); checked {
			n++
		}
	}
	return n
}

type codegen struct {
	g     *graph.Graph
	infos []discoverInfo
}

func (cg *codegen) hasCheck(v graph.StateID) (Addr, bool) {
	return cg.infos[v].checkIdx, cg.infos[v].hasCheck
}

// planSnippet decides the instruction shape for state v without resolving
// addresses.
func (cg *codegen) planSnippet(v graph.StateID) snippetPlan {
	var plan snippetPlan
	plan.hasTransition = cg.g.Predicate(v).Kind != graph.PredNone
	_, plan.hasMatch = cg.g.Label(v)

	edges := cg.g.OutNeighborSlice(v)
	outDegree := len(edges)

	fallIdx := -1
	for i, w := range edges {
		if cg.infos[w].rank == cg.infos[v].rank+1 {
			fallIdx = i
			break
		}
	}

	naive := cg.planStraight(edges, fallIdx)
	naiveSize := 0
	for _, e := range naive.tail {
		if e.guarded {
			naiveSize++
		}
		naiveSize++
	}
	if naive.hasFallthrough && naive.fallGuarded {
		naiveSize++
	}

	base := 0
	if plan.hasTransition {
		base++
	}
	if plan.hasMatch {
		base++
	}

	if outDegree > jumpTableOutDegreeThreshold || base+naiveSize > maxSnippetSlots {
		plan.useJumpTable = true
		plan.indirect = cg.planJumpTable(edges)
		return plan
	}

	plan.tail = naive.tail
	plan.hasFallthrough = naive.hasFallthrough
	plan.fallthroughTo = naive.fallthroughTo
	plan.fallGuarded = naive.fallGuarded
	return plan
}

// planStraight builds the FORK/JUMP chain plan for a state's out-edges
// (spec §4.4 step 3, non-jump-table case).
func (cg *codegen) planStraight(edges []graph.StateID, fallIdx int) snippetPlan {
	var plan snippetPlan
	var nonFall []graph.StateID
	for i, w := range edges {
		if i == fallIdx {
			continue
		}
		nonFall = append(nonFall, w)
	}

	hasFall := fallIdx >= 0
	for i, w := range nonFall {
		isTerminal := i == len(nonFall)-1 && !hasFall
		_, checked := cg.hasCheck(w)
		plan.tail = append(plan.tail, tailEdge{target: w, isJump: isTerminal, guarded: checked})
	}

	if hasFall {
		w := edges[fallIdx]
		plan.hasFallthrough = true
		plan.fallthroughTo = w
		_, plan.fallGuarded = cg.hasCheck(w)
	}
	return plan
}

// planJumpTable groups v's out-edges by accepting byte so each distinct
// successor set shares one appended indirect sequence (spec §4.4 step 3,
// jump-table case). Bytes accepted by exactly one successor route straight
// to that successor's post-transition address and need no appended group
// unless the successor itself carries a check index.
func (cg *codegen) planJumpTable(edges []graph.StateID) []jtGroup {
	// bucket maps a stable signature of an accepting-successor set to that
	// set, so every byte sharing the same successors shares one group.
	bucket := map[string][]graph.StateID{}
	byByte := [256]string{}

	for b := 0; b < 256; b++ {
		var ws []graph.StateID
		for _, w := range edges {
			if cg.g.Predicate(w).Accepts(byte(b)) {
				ws = append(ws, w)
			}
		}
		if len(ws) == 0 {
			continue
		}
		// A byte with a single accepting successor only needs a group if
		// that successor requires a dedup guard; otherwise the table entry
		// jumps directly to it (see emitJumpTableEntries).
		if len(ws) == 1 {
			if _, checked := cg.hasCheck(ws[0]); !checked {
				continue
			}
		}
		sig := sigKey(ws)
		byByte[b] = sig
		if _, ok := bucket[sig]; !ok {
			bucket[sig] = ws
		}
	}

	var groups []jtGroup
	offset := 0
	seen := map[string]int{}
	for b := 0; b < 256; b++ {
		sig := byByte[b]
		if sig == "" {
			continue
		}
		if _, ok := seen[sig]; ok {
			continue
		}
		targets := bucket[sig]
		seen[sig] = offset
		sz := cg.groupSize(targets)
		groups = append(groups, jtGroup{offset: offset, targets: targets, size: sz})
		offset += sz
	}
	return groups
}

// emitSnippet appends the instructions for state v to prog, resolving
// forward addresses from starts (already fully known from the address
// pass).
func (cg *codegen) emitSnippet(prog *Program, v graph.StateID, plan snippetPlan, starts []Addr) {
	if plan.hasTransition {
		prog.Instructions = append(prog.Instructions, cg.transitionInstruction(v))
	}
	if plan.hasMatch {
		label, _ := cg.g.Label(v)
		prog.Instructions = append(prog.Instructions, Match(label))
	}

	if plan.useJumpTable {
		cg.emitJumpTable(prog, v, starts)
		return
	}

	for _, e := range plan.tail {
		if e.guarded {
			idx, _ := cg.hasCheck(e.target)
			if e.isJump {
				prog.Instructions = append(prog.Instructions, CheckHalt(idx))
			} else {
				prog.Instructions = append(prog.Instructions, CheckBranch(idx))
			}
		}
		if e.isJump {
			prog.Instructions = append(prog.Instructions, Jump(starts[e.target]))
		} else {
			prog.Instructions = append(prog.Instructions, Fork(starts[e.target]))
		}
	}
	if plan.hasFallthrough && plan.fallGuarded {
		idx, _ := cg.hasCheck(plan.fallthroughTo)
		prog.Instructions = append(prog.Instructions, CheckHalt(idx))
	}
	if len(plan.tail) == 0 && !plan.hasFallthrough {
		prog.Instructions = append(prog.Instructions, Halt())
	}
}

func (cg *codegen) transitionInstruction(v graph.StateID) Instruction {
	p := cg.g.Predicate(v)
	switch p.Kind {
	case graph.PredLiteral:
		return Lit(p.Lo)
	case graph.PredRange:
		return RangeOp(p.Lo, p.Hi)
	case graph.PredEither:
		return EitherOp(p.Lo, p.Hi)
	default:
		// Unreachable: callers only invoke this when planSnippet found
		// hasTransition true, which excludes PredNone, and Generate
		// rejects PredSet before emission ever starts.
		return Halt()
	}
}

// postTransition returns the address immediately after v's own transition
// instruction, the landing spot for a jump-table entry that has already
// validated the byte on v's behalf.
func postTransition(v graph.StateID, starts []Addr) Addr {
	return starts[v] + 1
}

func (cg *codegen) emitJumpTable(prog *Program, v graph.StateID, starts []Addr) {
	edges := cg.g.OutNeighborSlice(v)
	groups := cg.planJumpTable(edges)

	prog.Instructions = append(prog.Instructions, JumpTableHeader())
	tableAt := len(prog.Instructions)
	prog.Instructions = append(prog.Instructions, make([]Instruction, 256)...)
	indirectAt := len(prog.Instructions)

	sigAddr := map[string]Addr{}
	for _, grp := range groups {
		sigAddr[sigKey(grp.targets)] = Addr(indirectAt + grp.offset)
	}

	for b := 0; b < 256; b++ {
		var ws []graph.StateID
		for _, w := range edges {
			if cg.g.Predicate(w).Accepts(byte(b)) {
				ws = append(ws, w)
			}
		}
		var entry Instruction
		switch {
		case len(ws) == 0:
			entry = Halt()
		case len(ws) == 1:
			if _, checked := cg.hasCheck(ws[0]); !checked {
				entry = Jump(postTransition(ws[0], starts))
				break
			}
			entry = Jump(sigAddr[sigKey(ws)])
		default:
			entry = Jump(sigAddr[sigKey(ws)])
		}
		prog.Instructions[tableAt+b] = entry
	}

	for _, grp := range groups {
		for i, w := range grp.targets {
			isLast := i == len(grp.targets)-1
			if _, checked := cg.hasCheck(w); checked {
				idx, _ := cg.hasCheck(w)
				if isLast {
					prog.Instructions = append(prog.Instructions, CheckHalt(idx))
				} else {
					prog.Instructions = append(prog.Instructions, CheckBranch(idx))
				}
			}
			if isLast {
				prog.Instructions = append(prog.Instructions, Jump(postTransition(w, starts)))
			} else {
				prog.Instructions = append(prog.Instructions, Fork(postTransition(w, starts)))
			}
		}
	}
}

func sigKey(ws []graph.StateID) string {
	s := make([]byte, 0, 4*len(ws))
	for _, w := range ws {
		s = append(s, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return string(s)
}
