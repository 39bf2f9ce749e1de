package compile

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation is the sentinel wrapped by InvariantError. It marks
// an internal miscount during code generation — a bug, never a user error
// (spec §7).
var ErrInvariantViolation = errors.New("code generator invariant violation")

// InvariantError reports a code-generation invariant failure, such as a
// snippet whose emitted instruction count does not match its precomputed
// size.
type InvariantError struct {
	State   int
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("compile: invariant violated at state %d: %s", e.State, e.Message)
}

// Unwrap allows errors.Is(err, ErrInvariantViolation).
func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
