package store

import (
	"context"
	"fmt"

	"github.com/roach88/deadlint/internal/ir"
)

// WriteRun inserts a run and its findings in one transaction and returns
// the seq assigned to the run.
//
// Writing a run ID that already exists is a no-op that returns the stored
// seq, so retrying a failed upload never duplicates history.
func (s *Store) WriteRun(ctx context.Context, run ir.Run, findings []ir.Finding) (int64, error) {
	settingsJSON, err := marshalSettings(run.Settings)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, crate, crate_hash, settings, roots, live, cycles, tool_version, ir_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Crate,
		run.CrateHash,
		settingsJSON,
		run.Roots,
		run.Live,
		run.Cycles,
		run.ToolVersion,
		run.IRVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write run: rows affected: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: read seq: %w", err)
	}
	if inserted == 0 {
		return seq, nil
	}

	for _, f := range findings {
		if f.RunID != run.ID {
			return 0, fmt.Errorf("write run: finding %s belongs to run %q", f.Path, f.RunID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO findings
			(id, run_id, seq, path, descr, name, participle, severity, file, line, col)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, id) DO NOTHING
		`,
			f.ID,
			f.RunID,
			f.Seq,
			f.Path,
			f.Descr,
			f.Name,
			f.Participle,
			f.Severity,
			f.File,
			f.Line,
			f.Col,
		)
		if err != nil {
			return 0, fmt.Errorf("write finding %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
