// Package search drives a Strategy (normally a compile.Program's bytecode
// VM) over a streaming input, overlapping the next block's read with the
// current block's search pass (spec §4.7, §5).
package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/streamforge/lgrep/compile"
	"github.com/streamforge/lgrep/vm"
)

// DefaultBlockSize is used when NewController is given a blockSize <= 0.
const DefaultBlockSize = 1 << 20 // 1 MiB

// Stats summarizes one Search call, mirroring the throughput counters the
// original tool printed to stderr after every run.
type Stats struct {
	BytesSearched uint64
	Hits          uint64
	Elapsed       time.Duration
}

// Strategy consumes a stream of input blocks and reports committed hits.
// *vm.VM already satisfies this shape directly; accel.LiteralAutomaton
// implements the same interface as an optional fast path for pattern sets
// that are all plain literals (spec §4.7, DOMAIN STACK), letting Controller
// stay agnostic to which one is doing the searching.
type Strategy interface {
	Feed(block []byte, emit vm.HitCallback)
	Flush(emit vm.HitCallback)
}

// Controller streams input through a Strategy, one block at a time. The
// zero value is not usable; construct with NewController or NewVMController.
type Controller struct {
	strategy  Strategy
	blockSize int

	// TraceBegin/TraceEnd bound an optional debug-log window over absolute
	// input offsets, restoring the original tool's ctxOpts.TraceBegin/
	// TraceEnd forensic option (§9, SUPPLEMENTED FEATURES). Both zero
	// disables tracing.
	TraceBegin uint64
	TraceEnd   uint64

	Logger *slog.Logger
}

// NewController creates a Controller driving strategy. blockSize <= 0
// selects DefaultBlockSize.
func NewController(strategy Strategy, blockSize int) *Controller {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Controller{strategy: strategy, blockSize: blockSize, Logger: slog.Default()}
}

// NewVMController is a convenience constructor wrapping prog's bytecode VM
// as the Controller's Strategy, the default (and only mandatory) search
// path.
func NewVMController(prog *compile.Program, blockSize int) *Controller {
	return NewController(vm.New(prog), blockSize)
}

type readResult struct {
	n   int
	err error
}

// fillBlock reads until buf is full or the reader is exhausted, collapsing
// io.ErrUnexpectedEOF (a short final read) into plain io.EOF so callers only
// ever need to check for one end-of-stream sentinel.
func fillBlock(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// Search reads r in Controller.blockSize chunks, feeding each into
// c.strategy, whose internal state persists across block boundaries, and
// invokes emit for every committed hit. The next block is read on its own
// goroutine while the current block is searched, a single-producer/
// single-consumer handoff replacing the original's boost::packaged_task
// double buffer. ctx is checked once per block boundary only (§5); an
// in-flight VM pass over a block always runs to completion.
func (c *Controller) Search(ctx context.Context, r io.Reader, emit vm.HitCallback) (Stats, error) {
	if r == nil {
		return Stats{}, ErrNoInput
	}

	m := c.strategy
	cur := make([]byte, c.blockSize)
	next := make([]byte, c.blockSize)

	var stats Stats
	wrap := func(h vm.Hit) {
		stats.Hits++
		if c.tracing() && h.Offset >= c.TraceBegin && h.Offset < c.TraceEnd {
			c.Logger.Debug("hit", "offset", h.Offset, "length", h.Length, "label", h.Label)
		}
		emit(h)
	}

	start := time.Now()
	n, rerr := fillBlock(r, cur)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		atEOF := errors.Is(rerr, io.EOF)
		if rerr != nil && !atEOF {
			return stats, &IOError{Offset: stats.BytesSearched, Err: rerr}
		}

		var resultCh chan readResult
		if !atEOF {
			resultCh = make(chan readResult, 1)
			go func(buf []byte) {
				nn, nerr := fillBlock(r, buf)
				resultCh <- readResult{nn, nerr}
			}(next)
		}

		m.Feed(cur[:n], wrap)
		stats.BytesSearched += uint64(n)

		if atEOF {
			break
		}

		res := <-resultCh
		cur, next = next, cur
		n, rerr = res.n, res.err
	}

	m.Flush(wrap)
	stats.Elapsed = time.Since(start)
	return stats, nil
}

func (c *Controller) tracing() bool { return c.TraceBegin != 0 || c.TraceEnd != 0 }
