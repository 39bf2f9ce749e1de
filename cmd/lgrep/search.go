package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/streamforge/lgrep/search"
	"github.com/streamforge/lgrep/vm"
)

type searchFlags struct {
	BlockSize      int
	TraceBegin     uint64
	TraceEnd       uint64
	NoOutput       bool
	PrintPathOnHit bool
}

var sflags searchFlags

var searchCmd = &cobra.Command{
	Use:   "search <input>",
	Short: "Search a file for every pattern in the pattern file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVar(&sflags.BlockSize, "block-size", search.DefaultBlockSize, "bytes read per block")
	f.Uint64Var(&sflags.TraceBegin, "trace-begin", 0, "debug-log hits at or after this offset")
	f.Uint64Var(&sflags.TraceEnd, "trace-end", 0, "debug-log hits before this offset")
	f.BoolVar(&sflags.NoOutput, "no-output", false, "count hits without printing them")
	f.BoolVar(&sflags.PrintPathOnHit, "print-path-on-hit", false, "print only the input path, once, on the first hit")
}

func runSearch(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

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
	slog.Info("compiled program", "patterns", len(pats), "states", g.NumStates(), "instructions", prog.Len())

	strat, err := buildStrategy(pats, prog)
	if err != nil {
		return err
	}
	var ctrl *search.Controller
	if strat != nil {
		slog.Info("using literal fast path", "engine", "ahocorasick")
		ctrl = search.NewController(strat, sflags.BlockSize)
	} else {
		ctrl = search.NewVMController(prog, sflags.BlockSize)
	}
	ctrl.TraceBegin = sflags.TraceBegin
	ctrl.TraceEnd = sflags.TraceEnd

	f, err := fs.Open(inputPath)
	if err != nil {
		return fmt.Errorf("lgrep: opening input: %w", err)
	}
	defer f.Close()

	printed := false
	emit := func(h vm.Hit) {
		if sflags.NoOutput {
			return
		}
		if sflags.PrintPathOnHit {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), inputPath)
				printed = true
			}
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%d\n", h.Offset, h.Length, h.Label)
	}

	stats, err := ctrl.Search(context.Background(), f, emit)
	if err != nil {
		return fmt.Errorf("lgrep: search: %w", err)
	}

	rate := float64(0)
	if stats.Elapsed > 0 {
		rate = float64(stats.BytesSearched) / stats.Elapsed.Seconds()
	}
	slog.Info("search complete",
		"bytes", humanize.Bytes(stats.BytesSearched),
		"hits", stats.Hits,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"rate", humanize.Bytes(uint64(rate))+"/s",
	)
	return nil
}
