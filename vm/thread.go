// Package vm interprets a compile.Program against an input byte stream,
// simulating the underlying NFA as a set of logical threads stepped in
// lockstep, one byte at a time (spec §4.6).
package vm

import "github.com/streamforge/lgrep/compile"

// noLabel marks a thread that has not yet matched anything.
const noLabel = ^uint32(0)

// Thread is one logical NFA simulation branch: a program counter plus the
// span it would report if it matches. Threads are value-copyable; forking
// copies the struct and reseats PC.
type Thread struct {
	PC    compile.Addr
	Label uint32 // noLabel until a MATCH instruction fires
	Start uint64 // input offset where this thread was seeded; fixed across forks
	End   uint64 // set by MATCH; meaningful only once Label != noLabel
}

func newThread(pc compile.Addr, start uint64) Thread {
	return Thread{PC: pc, Label: noLabel, Start: start}
}
