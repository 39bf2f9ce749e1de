package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// rootFlags holds the flags every subcommand shares, following the pack's
// convention of one bound Flags struct per command (vitessio-vitess).
type rootFlags struct {
	PatternFile string
	Determinize bool
	LogLevel    string
}

var flags rootFlags

// fs is the filesystem every subcommand reads patterns and input through.
// Swappable in tests for afero.NewMemMapFs().
var fs afero.Fs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "lgrep",
	Short: "lgrep searches a stream for many literal and regex-lite patterns at once.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.PatternFile, "patterns", "p", "", "path to the pattern file (required)")
	pf.BoolVar(&flags.Determinize, "determinize", false, "collapse interchangeable states before compiling (spec.md §9)")
	pf.StringVar(&flags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(progCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(sampCmd)
	rootCmd.AddCommand(serverCmd)
}

func initLogger() {
	level := slog.LevelInfo
	switch flags.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h := tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	slog.SetDefault(slog.New(h))
}
