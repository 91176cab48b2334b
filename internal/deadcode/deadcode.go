package deadcode

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
)

// Options configures Check.
type Options struct {
	// Logger receives progress at Debug and Info. Nil discards.
	Logger *slog.Logger

	// Lints decides exemptions and lint levels. Nil means lint.New(crate).
	Lints Lints

	// TypeInfo overrides the crate's own type checker results.
	TypeInfo TypeInfo
}

// Result is the outcome of one analysis run.
type Result struct {
	Live        *LiveSet
	Roots       int
	Diagnostics []Diagnostic
	// Cycles groups findings that only reference each other.
	Cycles []Cycle
}

// HasErrors reports whether any finding is at level deny or forbid.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Check seeds, marks and reports dead code in c. Each call owns its state;
// concurrent calls on distinct crates are safe.
func Check(c *ir.Crate, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	logger = logger.With("crate", c.Name)

	lints := opts.Lints
	if lints == nil {
		lints = lint.New(c)
	}
	var info TypeInfo
	switch {
	case opts.TypeInfo != nil:
		info = opts.TypeInfo
	case c.Typeck != nil:
		info = c.Typeck
	default:
		return nil, fmt.Errorf("check %s: crate has no type information", c.Name)
	}

	worklist, aliases := Seed(c, lints)
	logger.Debug("seeded worklist", "roots", len(worklist), "ctor_aliases", len(aliases))

	live, err := newMarker(c, info, worklist, aliases, logger).run()
	if err != nil {
		logger.Error("marking aborted", "error", err)
		return nil, fmt.Errorf("check %s: %w", c.Name, err)
	}

	var sink Collector
	n := Report(c, NewOracle(c, live), lints, &sink)
	dead := make([]ir.ID, len(sink.Diagnostics))
	for i, d := range sink.Diagnostics {
		dead[i] = d.Decl
	}
	cycles, err := DeadCycles(c, info, aliases, dead)
	if err != nil {
		return nil, fmt.Errorf("check %s: group dead cycles: %w", c.Name, err)
	}
	logger.Info("dead code check finished", "live", live.Len(), "findings", n, "cycles", len(cycles))

	return &Result{
		Live:        live,
		Roots:       len(worklist),
		Diagnostics: sink.Diagnostics,
		Cycles:      cycles,
	}, nil
}
