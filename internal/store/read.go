package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/query"
)

const runColumns = `id, seq, crate, crate_hash, settings, roots, live, cycles, tool_version, ir_version`

// ReadRuns returns the runs of a crate, oldest first. An empty crate name
// returns the runs of every crate.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ReadRuns(ctx context.Context, crate string) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR crate = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, crate, crate)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRun returns the most recent run of a crate, or of any crate when
// the name is empty. Returns sql.ErrNoRows if there is none.
func (s *Store) LatestRun(ctx context.Context, crate string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR crate = ?
		ORDER BY seq DESC
		LIMIT 1
	`, crate, crate)
	return scanRun(row)
}

// ReadFindings returns the findings of a run in report order.
//
// Returns an empty slice (not nil) if the run has no findings.
func (s *Store) ReadFindings(ctx context.Context, runID string) ([]ir.Finding, error) {
	return s.QueryFindings(ctx, runID, nil)
}

// QueryFindings returns the findings of a run that match filter, in report
// order. A nil filter matches every finding.
func (s *Store) QueryFindings(ctx context.Context, runID string, filter query.Predicate) ([]ir.Finding, error) {
	cond, params, err := query.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, path, descr, name, participle, severity, file, line, col
		FROM findings
		WHERE run_id = ? AND (`+cond+`)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, append([]any{runID}, params...)...)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := []ir.Finding{}
	for rows.Next() {
		var f ir.Finding
		if err := rows.Scan(&f.ID, &f.RunID, &f.Seq, &f.Path, &f.Descr, &f.Name,
			&f.Participle, &f.Severity, &f.File, &f.Line, &f.Col); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ir.Run, error) {
	var (
		run      ir.Run
		settings string
	)
	err := row.Scan(&run.ID, &run.Seq, &run.Crate, &run.CrateHash, &settings,
		&run.Roots, &run.Live, &run.Cycles, &run.ToolVersion, &run.IRVersion)
	if err == sql.ErrNoRows {
		return ir.Run{}, err
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Settings, err = unmarshalSettings(settings)
	if err != nil {
		return ir.Run{}, err
	}
	return run, nil
}
