package search

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the search controller (spec §7 propagation
// policy: collected and wrapped, never panicked past a package boundary).
var (
	ErrNoInput = errors.New("search: no input source configured")
)

// IOError wraps a failure reading the input stream, preserving the absolute
// offset at which it occurred for forensic logging.
type IOError struct {
	Offset uint64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("search: read error at offset %d: %v", e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
