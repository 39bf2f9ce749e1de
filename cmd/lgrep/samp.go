package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/streamforge/lgrep/graph"
)

type sampFlags struct {
	Limit    int
	MaxDepth int
}

var smpflags = sampFlags{Limit: 20, MaxDepth: 64}

var sampCmd = &cobra.Command{
	Use:   "samp",
	Short: "Enumerate sample strings the pattern graph matches, for sanity-checking a pattern set.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pats, err := loadPatterns(fs, flags.PatternFile)
		if err != nil {
			return err
		}
		g, err := buildGraph(pats, flags.Determinize)
		if err != nil {
			return err
		}
		for _, s := range generateSamples(g, smpflags.Limit, smpflags.MaxDepth) {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	f := sampCmd.Flags()
	f.IntVar(&smpflags.Limit, "limit", smpflags.Limit, "maximum number of distinct sample strings to print")
	f.IntVar(&smpflags.MaxDepth, "max-depth", smpflags.MaxDepth, "maximum bytes consumed per sample walk")
}

// generateSamples walks the merged pattern graph from its start state,
// collecting concrete byte strings that reach an accepting state, mirroring
// the original tool's matchgen/writeSampleMatches debug helper. Epsilon
// (PredNone) edges are free, as in graph.MinMatchLength; a call budget
// bounds the walk regardless of how the graph's loops are shaped.
func generateSamples(g *graph.Graph, limit, maxDepth int) []string {
	results := make(map[string]struct{})
	budget := 100000

	var walk func(v graph.StateID, path []byte, depth int)
	walk = func(v graph.StateID, path []byte, depth int) {
		budget--
		if budget <= 0 || len(results) >= limit {
			return
		}
		if g.IsMatch(v) {
			results[string(path)] = struct{}{}
		}
		if depth >= maxDepth || len(results) >= limit {
			return
		}
		g.OutNeighbors(v, func(n graph.StateID) {
			if len(results) >= limit || budget <= 0 {
				return
			}
			p := g.Predicate(n)
			if p.Kind == graph.PredNone {
				walk(n, path, depth)
				return
			}
			walk(n, append(append([]byte{}, path...), representativeByte(p)), depth+1)
		})
	}
	walk(0, nil, 0)

	out := make([]string, 0, len(results))
	for s := range results {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func representativeByte(p graph.Predicate) byte {
	switch p.Kind {
	case graph.PredLiteral, graph.PredRange, graph.PredEither:
		return p.Lo
	default:
		return '?'
	}
}
