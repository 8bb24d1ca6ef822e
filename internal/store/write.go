package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/hirssa/internal/pipeline"
)

// WriteRun inserts a run and its function results in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same run
// twice is silently ignored and keeps the original seq.
//
// The run's seq is assigned here, one past the highest stored seq.
func (s *Store) WriteRun(ctx context.Context, run *pipeline.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, filename, source_hash, source, compiler_version)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?
		FROM runs
		WHERE true
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Filename,
		run.SourceHash,
		run.Source,
		run.CompilerVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for i := range run.Functions {
		if err := writeFunction(ctx, tx, run.ID, i, &run.Functions[i]); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeFunction(ctx context.Context, tx *sql.Tx, runID string, position int, fn *pipeline.FunctionResult) error {
	diags, err := marshalDiagnostics(fn.Diagnostics)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO functions
		(run_id, position, name, fingerprint, blocks, phis, hir, ssa, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		position,
		fn.Name,
		fn.Fingerprint,
		fn.Blocks,
		fn.Phis,
		fn.HIR,
		fn.SSA,
		diags,
	)
	if err != nil {
		return fmt.Errorf("function %s: %w", fn.Name, err)
	}
	return nil
}
