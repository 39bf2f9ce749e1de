package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// withTempCLI swaps the package-level fs/flags for the duration of fn and
// restores them afterward, so subcommand RunE functions (which read the
// shared fs/flags globals set up by root.go's cobra bindings) can be
// exercised directly against an in-memory filesystem.
func withTempCLI(t *testing.T, patternFile, patternBody string, fn func()) {
	t.Helper()
	oldFS, oldFlags := fs, flags
	defer func() { fs, flags = oldFS, oldFlags }()

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, patternFile, []byte(patternBody), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	fs = mem
	flags = rootFlags{PatternFile: patternFile}
	fn()
}

func TestRunSearchEndToEnd(t *testing.T) {
	withTempCLI(t, "/p.txt", "cat\ndog\n", func() {
		if err := afero.WriteFile(fs, "/input.txt", []byte("a cat and a dog"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)

		sflags = searchFlags{BlockSize: 4096}
		if err := runSearch(cmd, []string{"/input.txt"}); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}

		got := out.String()
		if !strings.Contains(got, "2\t3\t0\n") {
			t.Fatalf("expected a hit for \"cat\" at offset 2, got %q", got)
		}
		if !strings.Contains(got, "12\t3\t1\n") {
			t.Fatalf("expected a hit for \"dog\" at offset 12, got %q", got)
		}
	})
}

func TestRunSearchNoOutputStillCounts(t *testing.T) {
	withTempCLI(t, "/p.txt", "cat\n", func() {
		if err := afero.WriteFile(fs, "/input.txt", []byte("a cat"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)

		sflags = searchFlags{BlockSize: 4096, NoOutput: true}
		if err := runSearch(cmd, []string{"/input.txt"}); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}
		if out.Len() != 0 {
			t.Fatalf("expected no output with --no-output, got %q", out.String())
		}
	})
}

func TestRunSearchWithLiteralFastPath(t *testing.T) {
	// Every pattern is a plain literal, so this should route through the
	// accel.LiteralAutomaton path rather than the bytecode VM.
	withTempCLI(t, "/p.txt", "cat\t1\t0\t\ndog\t1\t0\t\n", func() {
		if err := afero.WriteFile(fs, "/input.txt", []byte("a cat and a dog"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)

		sflags = searchFlags{BlockSize: 4096}
		if err := runSearch(cmd, []string{"/input.txt"}); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}
		got := out.String()
		if !strings.Contains(got, "2\t3\t0\n") || !strings.Contains(got, "12\t3\t1\n") {
			t.Fatalf("expected hits for both literals, got %q", got)
		}
	})
}
