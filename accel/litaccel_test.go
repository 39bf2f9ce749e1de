package accel

import (
	"sort"
	"testing"

	"github.com/streamforge/lgrep/vm"
)

func sortedHits(hits []vm.Hit) []vm.Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Offset != hits[j].Offset {
			return hits[i].Offset < hits[j].Offset
		}
		return hits[i].Label < hits[j].Label
	})
	return hits
}

func feedWhole(t *testing.T, a *LiteralAutomaton, input []byte) []vm.Hit {
	t.Helper()
	var got []vm.Hit
	emit := func(h vm.Hit) { got = append(got, h) }
	a.Feed(input, emit)
	a.Flush(emit)
	return sortedHits(got)
}

func TestLiteralAutomatonMatchesEachLiteral(t *testing.T) {
	a, err := NewLiteralAutomaton([][]byte{[]byte("ab"), []byte("bc")})
	if err != nil {
		t.Fatalf("NewLiteralAutomaton() error = %v", err)
	}
	got := feedWhole(t, a, []byte("xabcy"))
	if len(got) != 2 {
		t.Fatalf("got %+v, want 2 hits", got)
	}
	if got[0].Offset != 1 || got[0].Label != 0 {
		t.Fatalf("hit[0] = %+v, want offset 1 label 0 (\"ab\")", got[0])
	}
	if got[1].Offset != 2 || got[1].Label != 1 {
		t.Fatalf("hit[1] = %+v, want offset 2 label 1 (\"bc\")", got[1])
	}
}

func TestLiteralAutomatonNoMatch(t *testing.T) {
	a, err := NewLiteralAutomaton([][]byte{[]byte("zzz")})
	if err != nil {
		t.Fatalf("NewLiteralAutomaton() error = %v", err)
	}
	if got := feedWhole(t, a, []byte("xabcy")); len(got) != 0 {
		t.Fatalf("got %+v, want no hits", got)
	}
}

// TestLiteralAutomatonSpansBlockBoundary verifies the carry-forward logic:
// a literal split exactly across two Feed calls must still be reported
// exactly once, at the correct absolute offset.
func TestLiteralAutomatonSpansBlockBoundary(t *testing.T) {
	a, err := NewLiteralAutomaton([][]byte{[]byte("needle")})
	if err != nil {
		t.Fatalf("NewLiteralAutomaton() error = %v", err)
	}
	input := []byte("xxxneedleyyy")
	var got []vm.Hit
	emit := func(h vm.Hit) { got = append(got, h) }
	for i := 0; i < len(input); i++ {
		a.Feed(input[i:i+1], emit)
	}
	a.Flush(emit)
	if len(got) != 1 {
		t.Fatalf("got %+v, want exactly one hit", got)
	}
	if got[0].Offset != 3 || got[0].Length != 6 {
		t.Fatalf("got %+v, want offset=3 length=6", got[0])
	}
}

func TestLiteralAutomatonMultipleBlocksNoDuplicate(t *testing.T) {
	a, err := NewLiteralAutomaton([][]byte{[]byte("ab")})
	if err != nil {
		t.Fatalf("NewLiteralAutomaton() error = %v", err)
	}
	var got []vm.Hit
	emit := func(h vm.Hit) { got = append(got, h) }
	// "ab" fully inside the first block; make sure the carried-forward
	// trailing byte ("b") from block 1 isn't re-reported when block 2 is fed.
	a.Feed([]byte("xab"), emit)
	a.Feed([]byte("cde"), emit)
	a.Flush(emit)
	if len(got) != 1 {
		t.Fatalf("got %+v, want exactly one hit (no duplicate)", got)
	}
	if got[0].Offset != 1 {
		t.Fatalf("got %+v, want offset=1", got[0])
	}
}

func TestLiteralAutomatonIsMatch(t *testing.T) {
	a, err := NewLiteralAutomaton([][]byte{[]byte("needle")})
	if err != nil {
		t.Fatalf("NewLiteralAutomaton() error = %v", err)
	}
	if !a.IsMatch([]byte("haystack needle haystack")) {
		t.Fatalf("IsMatch() = false, want true")
	}
	if a.IsMatch([]byte("haystack haystack")) {
		t.Fatalf("IsMatch() = true, want false")
	}
}

var _ interface {
	Feed(block []byte, emit vm.HitCallback)
	Flush(emit vm.HitCallback)
} = (*LiteralAutomaton)(nil)
