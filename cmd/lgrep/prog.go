package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var progCmd = &cobra.Command{
	Use:   "prog",
	Short: "Print the compiled bytecode program for the pattern file.",
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
		prog, err := buildProgram(g)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), prog.String())
		return nil
	},
}
