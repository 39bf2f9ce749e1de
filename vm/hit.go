package vm

// Hit is one committed match: pattern label, absolute start offset in the
// overall input stream, and byte length. Immutable once emitted (spec §3).
type Hit struct {
	Offset uint64
	Length uint64
	Label  uint32
}

// HitCallback receives committed hits synchronously from the VM's own
// goroutine. It must not block indefinitely; the VM makes forward progress
// only between calls.
type HitCallback func(Hit)

// matchCandidate is one cell of the leftmost-longest reconciliation buffer,
// keyed by pattern label (spec §4.6).
type matchCandidate struct {
	start, end uint64
	occupied   bool
}
