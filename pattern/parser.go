package pattern

import (
	"fmt"
	"unicode"

	"github.com/streamforge/lgrep/encoding"
	"github.com/streamforge/lgrep/graph"
)

// Parse compiles text as the minimal pattern-syntax front end of spec §4.5:
// literal runs, `.`, `*`, `+`, `?`, `|`, non-capturing `(...)` grouping, and
// `[...]` character classes (with `^` negation and `a-z` ranges), with no
// anchoring. It is grounded on the small recursive-descent Thompson
// constructions collected across the example pack rather than on any one
// of them, generalized to this engine's per-state (not per-edge) predicate
// model: alternation needs no new state (branches converge or diverge
// through ordinary multi-edges), while `*`/`+`/`?` each introduce one
// zero-width PredNone join state to represent skipping or looping without
// consuming a byte.
func Parse(fb *graph.FragmentBuilder, enc encoding.Encoding, text string, caseInsensitive bool) (*graph.Fragment, *graph.Graph, error) {
	if text == "" {
		return nil, nil, fmt.Errorf("pattern: empty pattern text")
	}
	p := &parser{fb: fb, enc: enc, ci: caseInsensitive, runes: []rune(text)}
	f, err := p.alternation()
	if err != nil {
		return nil, nil, err
	}
	if p.pos != len(p.runes) {
		return nil, nil, fmt.Errorf("pattern: unexpected %q at position %d", p.runes[p.pos], p.pos)
	}
	frag, g := wrapFragment(fb, f)
	return frag, g, nil
}

// parseLiteralRun compiles text as a plain byte/rune sequence with no
// regex metacharacter handling at all, for patterns marked fixed_string in
// the pattern file (spec §6).
func parseLiteralRun(fb *graph.FragmentBuilder, enc encoding.Encoding, text string, caseInsensitive bool) (*graph.Fragment, *graph.Graph, error) {
	if text == "" {
		return nil, nil, fmt.Errorf("pattern: empty pattern text")
	}
	var acc encoding.Frag
	have := false
	for _, r := range text {
		f, err := literalFold(fb, enc, r, caseInsensitive)
		if err != nil {
			return nil, nil, err
		}
		if !have {
			acc, have = f, true
			continue
		}
		acc = concatFrag(fb, acc, f)
	}
	frag, g := wrapFragment(fb, acc)
	return frag, g, nil
}

type parser struct {
	fb    *graph.FragmentBuilder
	enc   encoding.Encoding
	ci    bool
	runes []rune
	pos   int
}

func (p *parser) peek() rune {
	if p.pos >= len(p.runes) {
		return -1
	}
	return p.runes[p.pos]
}

func (p *parser) next() rune {
	r := p.peek()
	p.pos++
	return r
}

// alternation = concat ('|' concat)*
func (p *parser) alternation() (encoding.Frag, error) {
	left, err := p.concat()
	if err != nil {
		return encoding.Frag{}, err
	}
	for p.peek() == '|' {
		p.next()
		right, err := p.concat()
		if err != nil {
			return encoding.Frag{}, err
		}
		left = altFrag(left, right)
	}
	return left, nil
}

// concat = repeat*
func (p *parser) concat() (encoding.Frag, error) {
	var acc encoding.Frag
	have := false
	for {
		switch p.peek() {
		case -1, '|', ')':
			if !have {
				return encoding.Frag{}, fmt.Errorf("pattern: empty branch at position %d", p.pos)
			}
			return acc, nil
		}
		f, err := p.repeat()
		if err != nil {
			return encoding.Frag{}, err
		}
		if !have {
			acc, have = f, true
			continue
		}
		acc = concatFrag(p.fb, acc, f)
	}
}

// repeat = atom ('*' | '+' | '?')?
func (p *parser) repeat() (encoding.Frag, error) {
	f, err := p.atom()
	if err != nil {
		return encoding.Frag{}, err
	}
	switch p.peek() {
	case '*':
		p.next()
		return p.star(f), nil
	case '+':
		p.next()
		return p.plus(f), nil
	case '?':
		p.next()
		return p.optional(f), nil
	default:
		return f, nil
	}
}

func (p *parser) atom() (encoding.Frag, error) {
	switch r := p.peek(); r {
	case -1:
		return encoding.Frag{}, fmt.Errorf("pattern: unexpected end of pattern")
	case '.':
		p.next()
		return p.enc.Dot(p.fb)
	case '(':
		p.next()
		f, err := p.alternation()
		if err != nil {
			return encoding.Frag{}, err
		}
		if p.peek() != ')' {
			return encoding.Frag{}, fmt.Errorf("pattern: unclosed ( at position %d", p.pos)
		}
		p.next()
		return f, nil
	case '[':
		p.next()
		return p.class()
	case '\\':
		p.next()
		return literalFold(p.fb, p.enc, p.escape(), p.ci)
	case '*', '+', '?':
		return encoding.Frag{}, fmt.Errorf("pattern: unexpected quantifier %q at position %d", r, p.pos)
	default:
		p.next()
		return literalFold(p.fb, p.enc, r, p.ci)
	}
}

func (p *parser) escape() rune {
	switch r := p.next(); r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

// classItem is one character-class member: a single rune (lo == hi) or an
// inclusive 'lo-hi' range.
type classItem struct{ lo, hi rune }

// class = '[' ['^'] item+ ']', item = rune ['-' rune]
func (p *parser) class() (encoding.Frag, error) {
	negate := false
	if p.peek() == '^' {
		p.next()
		negate = true
	}

	var items []classItem
	for {
		switch p.peek() {
		case -1:
			return encoding.Frag{}, fmt.Errorf("pattern: unclosed [ at position %d", p.pos)
		case ']':
			p.next()
			if len(items) == 0 {
				return encoding.Frag{}, fmt.Errorf("pattern: empty character class")
			}
			return p.classFrag(items, negate)
		}
		lo := p.classRune()
		hi := lo
		if p.peek() == '-' {
			save := p.pos
			p.next()
			if p.peek() == ']' {
				// trailing '-' before the closing bracket is a literal.
				p.pos = save
			} else {
				hi = p.classRune()
				if hi < lo {
					return encoding.Frag{}, fmt.Errorf("pattern: invalid class range %c-%c", lo, hi)
				}
			}
		}
		items = append(items, classItem{lo, hi})
	}
}

func (p *parser) classRune() rune {
	if p.peek() == '\\' {
		p.next()
		return p.escape()
	}
	return p.next()
}

func (p *parser) classFrag(items []classItem, negate bool) (encoding.Frag, error) {
	ranges := make([][2]rune, len(items))
	for i, it := range items {
		ranges[i] = [2]rune{it.lo, it.hi}
	}
	if negate {
		var err error
		ranges, err = complementRanges(ranges)
		if err != nil {
			return encoding.Frag{}, err
		}
	}

	var acc encoding.Frag
	have := false
	for _, rg := range ranges {
		var f encoding.Frag
		var err error
		if rg[0] == rg[1] {
			f, err = literalFold(p.fb, p.enc, rg[0], p.ci)
		} else {
			f, err = p.enc.Range(p.fb, rg[0], rg[1])
			if err == nil && p.ci {
				f = altFrag(f, foldedRange(p.fb, p.enc, rg[0], rg[1]))
			}
		}
		if err != nil {
			return encoding.Frag{}, err
		}
		if !have {
			acc, have = f, true
			continue
		}
		acc = altFrag(acc, f)
	}
	return acc, nil
}

// complementRanges returns the complement of ranges within [0, 0xFF], the
// domain every pattern class item is expected to live in: character
// classes over multi-byte code points are supported for literal items and
// ranges, but negation is defined relative to the single-byte domain this
// engine's predicates actually test against.
func complementRanges(ranges [][2]rune) ([][2]rune, error) {
	for _, rg := range ranges {
		if rg[0] < 0 || rg[1] > 0xFF {
			return nil, fmt.Errorf("pattern: negated classes only support code points up to U+00FF")
		}
	}
	var covered [256]bool
	for _, rg := range ranges {
		for r := rg[0]; r <= rg[1]; r++ {
			covered[r] = true
		}
	}
	var out [][2]rune
	start := -1
	for b := 0; b < 256; b++ {
		if !covered[b] {
			if start == -1 {
				start = b
			}
			continue
		}
		if start != -1 {
			out = append(out, [2]rune{rune(start), rune(b - 1)})
			start = -1
		}
	}
	if start != -1 {
		out = append(out, [2]rune{rune(start), 255})
	}
	return out, nil
}

// foldedRange best-effort case-folds a range for case-insensitive classes
// by swapping any ASCII letter sub-range to its opposite case; ranges that
// mix letters with non-letters (e.g. "0-z") are folded per rune, which is
// correct but bypasses the more compact Range encoding for that sub-span.
func foldedRange(fb *graph.FragmentBuilder, enc encoding.Encoding, lo, hi rune) encoding.Frag {
	var acc encoding.Frag
	have := false
	for r := lo; r <= hi; r++ {
		folded := oppositeCase(r)
		if folded == r {
			continue
		}
		f, err := enc.Literal(fb, folded)
		if err != nil {
			continue
		}
		if !have {
			acc, have = f, true
			continue
		}
		acc = altFrag(acc, f)
	}
	return acc
}

func oppositeCase(r rune) rune {
	if unicode.IsUpper(r) {
		return unicode.ToLower(r)
	}
	if unicode.IsLower(r) {
		return unicode.ToUpper(r)
	}
	return r
}

// literalFold expands r as a literal, alternated with its opposite case
// when caseInsensitive requests it and one exists.
func literalFold(fb *graph.FragmentBuilder, enc encoding.Encoding, r rune, caseInsensitive bool) (encoding.Frag, error) {
	f, err := enc.Literal(fb, r)
	if err != nil {
		return encoding.Frag{}, err
	}
	if !caseInsensitive {
		return f, nil
	}
	folded := oppositeCase(r)
	if folded == r {
		return f, nil
	}
	g, err := enc.Literal(fb, folded)
	if err != nil {
		return f, nil
	}
	return altFrag(f, g), nil
}

func altFrag(a, b encoding.Frag) encoding.Frag {
	return encoding.Frag{
		Starts: append(append([]graph.StateID{}, a.Starts...), b.Starts...),
		Ends:   append(append([]graph.StateID{}, a.Ends...), b.Ends...),
	}
}

func concatFrag(fb *graph.FragmentBuilder, a, b encoding.Frag) encoding.Frag {
	for _, x := range a.Ends {
		for _, s := range b.Starts {
			fb.AddEdge(x, s)
		}
	}
	return encoding.Frag{Starts: a.Starts, Ends: b.Ends}
}

// optional wires a zero-width join state into both the start and end sets
// so a predecessor may reach whatever follows without ever entering f, and
// anything already inside f still flows through to the same continuation.
func (p *parser) optional(f encoding.Frag) encoding.Frag {
	e := p.fb.AddState()
	return encoding.Frag{
		Starts: append(append([]graph.StateID{}, f.Starts...), e),
		Ends:   append(append([]graph.StateID{}, f.Ends...), e),
	}
}

// star is optional's loop-carrying counterpart: the join state e is both
// the sole entry and sole exit, wired to re-enter f's starts after f's ends
// so repeats cost no extra states beyond the first.
func (p *parser) star(f encoding.Frag) encoding.Frag {
	e := p.fb.AddState()
	for _, s := range f.Starts {
		p.fb.AddEdge(e, s)
	}
	for _, x := range f.Ends {
		p.fb.AddEdge(x, e)
	}
	return encoding.Frag{Starts: []graph.StateID{e}, Ends: []graph.StateID{e}}
}

// plus requires at least one match of f before the loop join becomes
// reachable, unlike star.
func (p *parser) plus(f encoding.Frag) encoding.Frag {
	e := p.fb.AddState()
	for _, x := range f.Ends {
		p.fb.AddEdge(x, e)
	}
	for _, s := range f.Starts {
		p.fb.AddEdge(e, s)
	}
	return encoding.Frag{Starts: f.Starts, Ends: []graph.StateID{e}}
}

// wrapFragment finalizes an internal, possibly multi-start/multi-end frag
// into the single-entry graph.Fragment the merger expects, introducing one
// hub state only when more than one start survived to the top level.
func wrapFragment(fb *graph.FragmentBuilder, f encoding.Frag) (*graph.Fragment, *graph.Graph) {
	entry := f.Starts[0]
	if len(f.Starts) > 1 {
		hub := fb.AddState()
		for _, s := range f.Starts {
			fb.AddEdge(hub, s)
		}
		entry = hub
	}
	exit := f.Ends[0]
	return fb.Build(entry, exit, f.Ends)
}
