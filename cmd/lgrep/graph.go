package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/streamforge/lgrep/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Dump the merged pattern graph as Graphviz DOT text.",
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
		writeGraphviz(cmd.OutOrStdout(), g)
		return nil
	},
}

// writeGraphviz emits g as a DOT digraph. No DOT-writing library appeared
// anywhere in the example pack (see DESIGN.md), so this is a small
// hand-written formatting pass over data the graph package already owns —
// the same role boost::graph::write_graphviz played in the original tool.
func writeGraphviz(w io.Writer, g *graph.Graph) {
	fmt.Fprintln(w, "digraph lgrep {")
	fmt.Fprintln(w, "  rankdir=LR;")
	for v := 0; v < g.NumStates(); v++ {
		id := graph.StateID(v)
		shape := "ellipse"
		if g.IsMatch(id) {
			shape = "doublecircle"
		}
		fmt.Fprintf(w, "  %d [shape=%s, label=%q];\n", v, shape, nodeLabel(g, id))
	}
	for v := 0; v < g.NumStates(); v++ {
		src := graph.StateID(v)
		g.OutNeighbors(src, func(dst graph.StateID) {
			fmt.Fprintf(w, "  %d -> %d;\n", src, dst)
		})
	}
	fmt.Fprintln(w, "}")
}

func nodeLabel(g *graph.Graph, v graph.StateID) string {
	p := g.Predicate(v)
	base := predicateLabel(p)
	if label, ok := g.Label(v); ok {
		return fmt.Sprintf("%s / match %d", base, label)
	}
	return base
}

func predicateLabel(p graph.Predicate) string {
	switch p.Kind {
	case graph.PredNone:
		return "ε"
	case graph.PredLiteral:
		return fmt.Sprintf("%q", p.Lo)
	case graph.PredRange:
		return fmt.Sprintf("[%q-%q]", p.Lo, p.Hi)
	case graph.PredEither:
		return fmt.Sprintf("%q|%q", p.Lo, p.Hi)
	default:
		return "?"
	}
}
