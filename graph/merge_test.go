package graph

import "testing"

// buildLiteralFragment builds a scratch fragment matching the literal
// string s: a chain of one state per byte, entry = first state, exit = last.
func buildLiteralFragment(s string) (*Fragment, *Graph) {
	fb := NewFragmentBuilder()
	var ids []StateID
	for i := 0; i < len(s); i++ {
		id := fb.AddState()
		fb.SetPredicate(id, Literal(s[i]))
		ids = append(ids, id)
	}
	for i := 0; i+1 < len(ids); i++ {
		fb.AddEdge(ids[i], ids[i+1])
	}
	return fb.Build(ids[0], ids[len(ids)-1], []StateID{ids[len(ids)-1]})
}

func TestMergeTwoLiteralFragments(t *testing.T) {
	m := NewMerger()

	f1, s1 := buildLiteralFragment("abc")
	entry1 := m.Merge(f1, s1, 0)

	f2, s2 := buildLiteralFragment("de")
	entry2 := m.Merge(f2, s2, 1)

	g := m.Graph()

	if !g.EdgeExists(0, entry1) {
		t.Fatalf("expected epsilon edge from start to first fragment's entry")
	}
	if !g.EdgeExists(0, entry2) {
		t.Fatalf("expected epsilon edge from start to second fragment's entry")
	}

	// Walk fragment 1 and check labels/predicates survived the offset.
	v := entry1
	for i, want := range []byte("abc") {
		if !g.Predicate(v).Accepts(want) {
			t.Fatalf("state %d does not accept %q", v, want)
		}
		if i == len("abc")-1 {
			label, ok := g.Label(v)
			if !ok || label != 0 {
				t.Fatalf("exit state of fragment 1 should carry label 0, got (%d,%v)", label, ok)
			}
		} else {
			if g.IsMatch(v) {
				t.Fatalf("non-exit state of fragment 1 should not be a match")
			}
		}
		var next StateID
		g.OutNeighbors(v, func(n StateID) { next = n })
		v = next
	}
}

func TestMergePreservesDeterminism(t *testing.T) {
	// Two fragments sharing a common first byte must not collapse into one
	// state (spec §4.2 item 3: overlapping predicates stay separate).
	m := NewMerger()
	f1, s1 := buildLiteralFragment("ab")
	f2, s2 := buildLiteralFragment("ac")
	m.Merge(f1, s1, 0)
	m.Merge(f2, s2, 1)

	g := m.Graph()
	count := 0
	g.OutNeighbors(0, func(v StateID) {
		if g.Predicate(v).Accepts('a') {
			count++
		}
	})
	if count != 2 {
		t.Fatalf("expected two separate 'a' states reachable from start, got %d", count)
	}
}
