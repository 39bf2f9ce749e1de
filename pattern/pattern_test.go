package pattern

import (
	"errors"
	"strings"
	"testing"

	"github.com/streamforge/lgrep/graph"
)

func newTestMerger() *graph.Merger { return graph.NewMerger() }

func TestLoadFileSingleFieldForm(t *testing.T) {
	pats, err := LoadFile(strings.NewReader("cat\ndog\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(pats) != 2 || pats[0].Text != "cat" || pats[1].Text != "dog" {
		t.Fatalf("got %+v", pats)
	}
	if pats[0].Index != 0 || pats[1].Index != 1 {
		t.Fatalf("expected sequential indices, got %+v", pats)
	}
}

func TestLoadFileFourFieldForm(t *testing.T) {
	pats, err := LoadFile(strings.NewReader("cat\t1\t1\tASCII,UTF16LE\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(pats) != 1 {
		t.Fatalf("got %d patterns, want 1", len(pats))
	}
	p := pats[0]
	if !p.FixedString || !p.CaseInsensitive {
		t.Fatalf("expected fixed_string and case_insensitive both set, got %+v", p)
	}
	if len(p.Encodings) != 2 || p.Encodings[0] != "ASCII" || p.Encodings[1] != "UTF16LE" {
		t.Fatalf("got Encodings = %v", p.Encodings)
	}
}

func TestLoadFileUnrecognizedBooleanKeepsDefault(t *testing.T) {
	pats, err := LoadFile(strings.NewReader("cat\tmaybe\tnope\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if pats[0].FixedString || pats[0].CaseInsensitive {
		t.Fatalf("expected both booleans to keep their false default, got %+v", pats[0])
	}
}

func TestLoadFileSkipsBlankAndCommentLines(t *testing.T) {
	pats, err := LoadFile(strings.NewReader("# a comment\n\ncat\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(pats) != 1 || pats[0].Text != "cat" {
		t.Fatalf("got %+v", pats)
	}
}

func TestLoadFileEmptyIsAnError(t *testing.T) {
	_, err := LoadFile(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyPatternSet) {
		t.Fatalf("LoadFile(\"\") error = %v, want ErrEmptyPatternSet", err)
	}
}

func TestCompileUnknownEncodingIsCollected(t *testing.T) {
	m := newTestMerger()
	err := Compile(m, Pattern{Text: "cat", Encodings: []string{"EBCDIC"}})
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("Compile() error = %v, want *EncodingError", err)
	}
}

func TestCompileBadSyntaxIsCollected(t *testing.T) {
	m := newTestMerger()
	err := Compile(m, Pattern{Text: "a(b"})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Compile() error = %v, want *ParseError", err)
	}
}
