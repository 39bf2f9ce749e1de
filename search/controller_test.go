package search

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/streamforge/lgrep/compile"
	"github.com/streamforge/lgrep/graph"
	"github.com/streamforge/lgrep/vm"
)

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

func buildProgram(t *testing.T, patterns []string) *compile.Program {
	t.Helper()
	m := graph.NewMerger()
	for label, p := range patterns {
		frag, scratch := literalFragment(graph.NewFragmentBuilder(), p)
		m.Merge(frag, scratch, uint32(label))
	}
	g := m.Graph()
	prog, err := compile.Generate(g, graph.FirstByteSet(g).Array(), graph.SkipTable(g), graph.MinMatchLength(g))
	if err != nil {
		t.Fatalf("compile.Generate() error = %v", err)
	}
	return prog
}

func sortedHits(hits []vm.Hit) []vm.Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Offset != hits[j].Offset {
			return hits[i].Offset < hits[j].Offset
		}
		return hits[i].Label < hits[j].Label
	})
	return hits
}

func TestControllerMatchesWholeInputAcrossBlockSizes(t *testing.T) {
	prog := buildProgram(t, []string{"ab", "abc", "bc"})
	input := bytes.Repeat([]byte("xabcabxbcabcy"), 200)

	var want []vm.Hit
	{
		m := vm.New(prog)
		m.Feed(input, func(h vm.Hit) { want = append(want, h) })
		m.Flush(func(h vm.Hit) { want = append(want, h) })
	}
	want = sortedHits(want)

	for _, blockSize := range []int{1, 3, 17, 4096, len(input) * 2} {
		c := NewVMController(prog, blockSize)
		var got []vm.Hit
		stats, err := c.Search(context.Background(), bytes.NewReader(input), func(h vm.Hit) { got = append(got, h) })
		if err != nil {
			t.Fatalf("blockSize=%d: Search() error = %v", blockSize, err)
		}
		if stats.BytesSearched != uint64(len(input)) {
			t.Fatalf("blockSize=%d: BytesSearched = %d, want %d", blockSize, stats.BytesSearched, len(input))
		}
		if !reflectHitsEqual(sortedHits(got), want) {
			t.Fatalf("blockSize=%d: got %+v, want %+v", blockSize, got, want)
		}
	}
}

func reflectHitsEqual(a, b []vm.Hit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestControllerEmptyInput(t *testing.T) {
	prog := buildProgram(t, []string{"abc"})
	c := NewVMController(prog, 64)
	var got []vm.Hit
	stats, err := c.Search(context.Background(), bytes.NewReader(nil), func(h vm.Hit) { got = append(got, h) })
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 || stats.BytesSearched != 0 {
		t.Fatalf("expected no hits and no bytes, got hits=%+v stats=%+v", got, stats)
	}
}

func TestControllerNilReader(t *testing.T) {
	prog := buildProgram(t, []string{"abc"})
	c := NewVMController(prog, 64)
	if _, err := c.Search(context.Background(), nil, func(vm.Hit) {}); !errors.Is(err, ErrNoInput) {
		t.Fatalf("Search(nil) error = %v, want ErrNoInput", err)
	}
}

func TestControllerContextCancellation(t *testing.T) {
	prog := buildProgram(t, []string{"abc"})
	c := NewVMController(prog, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input := bytes.Repeat([]byte("abcabcabc"), 100)
	_, err := c.Search(ctx, bytes.NewReader(input), func(vm.Hit) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Search() error = %v, want context.Canceled", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestControllerWrapsReadErrors(t *testing.T) {
	prog := buildProgram(t, []string{"abc"})
	c := NewVMController(prog, 64)
	boom := errors.New("boom")
	_, err := c.Search(context.Background(), errReader{boom}, func(vm.Hit) {})
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Search() error = %v, want *IOError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("errors.Is(err, boom) = false, want true")
	}
}

var _ io.Reader = errReader{}
