// Command lgrep is a streaming multi-pattern byte-level search tool: it
// compiles a set of literal and regex-lite patterns into a shared bytecode
// program and runs it over an input stream one block at a time.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
