package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/streamforge/lgrep/accel"
	"github.com/streamforge/lgrep/compile"
	"github.com/streamforge/lgrep/graph"
	"github.com/streamforge/lgrep/pattern"
	"github.com/streamforge/lgrep/search"
)

// loadPatterns reads and parses the pattern file at path through fs.
func loadPatterns(fs afero.Fs, path string) ([]pattern.Pattern, error) {
	if path == "" {
		return nil, fmt.Errorf("lgrep: --patterns is required")
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lgrep: opening pattern file: %w", err)
	}
	defer f.Close()
	return pattern.LoadFile(f)
}

// buildGraph merges every pattern's fragment into one shared graph.Graph,
// optionally running the determinization pre-pass of spec.md §9. Per the
// §7 propagation policy, a pattern's parse or encoding error is collected
// (logged) rather than aborting the whole compile; the compile only fails
// if every pattern was rejected.
func buildGraph(pats []pattern.Pattern, determinize bool) (*graph.Graph, error) {
	m := graph.NewMerger()
	compiled := 0
	for _, p := range pats {
		if err := pattern.Compile(m, p); err != nil {
			slog.Warn("pattern rejected", "index", p.Index, "text", p.Text, "error", err)
			continue
		}
		compiled++
	}
	if compiled == 0 {
		return nil, pattern.ErrEmptyPatternSet
	}
	g := m.Graph()
	if determinize {
		g = graph.Determinize(g)
	}
	return g, nil
}

// buildProgram lowers g into a bytecode Program using the standard
// first-byte-set, skip-table, and minimum-match-length analyses (spec §4.3).
func buildProgram(g *graph.Graph) (*compile.Program, error) {
	return compile.Generate(g, graph.FirstByteSet(g).Array(), graph.SkipTable(g), graph.MinMatchLength(g))
}

// usableForAccel reports whether p can be searched by the literal
// Aho-Corasick fast path: a plain, case-sensitive, default-encoded literal.
// Anything else (regex metacharacters, case folding, a non-ASCII encoding)
// needs the bytecode VM's fuller semantics.
func usableForAccel(p pattern.Pattern) bool {
	if !p.FixedString || p.CaseInsensitive {
		return false
	}
	if len(p.Encodings) == 0 {
		return true
	}
	return len(p.Encodings) == 1 && p.Encodings[0] == "ASCII"
}

// allUsableForAccel reports whether every pattern in pats qualifies for the
// literal fast path (DOMAIN STACK, accel package).
func allUsableForAccel(pats []pattern.Pattern) bool {
	if len(pats) == 0 {
		return false
	}
	for _, p := range pats {
		if !usableForAccel(p) {
			return false
		}
	}
	return true
}

// buildStrategy picks the accel.LiteralAutomaton fast path when every
// pattern qualifies, falling back to the bytecode VM otherwise (spec §4.7,
// DOMAIN STACK).
func buildStrategy(pats []pattern.Pattern, prog *compile.Program) (search.Strategy, error) {
	if !allUsableForAccel(pats) {
		return nil, nil
	}
	lits := make([][]byte, len(pats))
	for i, p := range pats {
		lits[i] = []byte(p.Text)
	}
	return accel.NewLiteralAutomaton(lits)
}
