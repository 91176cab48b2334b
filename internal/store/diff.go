package store

import (
	"context"
	"fmt"

	"github.com/roach88/deadlint/internal/ir"
)

// RunDiff compares the findings of two runs by finding ID. Findings are
// keyed on crate, path, descr and participle, so moving code does not make
// a finding new.
type RunDiff struct {
	From      ir.Run
	To        ir.Run
	Added     []ir.Finding // in To, not in From
	Removed   []ir.Finding // in From, not in To
	Unchanged int
}

// Clean reports whether the later run introduced no new findings.
func (d RunDiff) Clean() bool { return len(d.Added) == 0 }

// DiffRuns compares two stored runs. Added findings keep the report order
// of the later run and removed findings that of the earlier one.
func (s *Store) DiffRuns(ctx context.Context, fromID, toID string) (RunDiff, error) {
	var diff RunDiff
	var err error
	if diff.From, err = s.ReadRun(ctx, fromID); err != nil {
		return diff, fmt.Errorf("diff runs: read %s: %w", fromID, err)
	}
	if diff.To, err = s.ReadRun(ctx, toID); err != nil {
		return diff, fmt.Errorf("diff runs: read %s: %w", toID, err)
	}

	from, err := s.ReadFindings(ctx, fromID)
	if err != nil {
		return diff, fmt.Errorf("diff runs: %w", err)
	}
	to, err := s.ReadFindings(ctx, toID)
	if err != nil {
		return diff, fmt.Errorf("diff runs: %w", err)
	}

	inFrom := make(map[string]bool, len(from))
	for _, f := range from {
		inFrom[f.ID] = true
	}
	inTo := make(map[string]bool, len(to))
	for _, f := range to {
		inTo[f.ID] = true
		if inFrom[f.ID] {
			diff.Unchanged++
		} else {
			diff.Added = append(diff.Added, f)
		}
	}
	for _, f := range from {
		if !inTo[f.ID] {
			diff.Removed = append(diff.Removed, f)
		}
	}
	return diff, nil
}
