package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hirssa/internal/pipeline"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	Filename        string `json:"filename"`
	SourceHash      string `json:"source_hash"`
	CompilerVersion string `json:"compiler_version"`
	Functions       int    `json:"functions"`
	Failed          int    `json:"failed"`
}

// ListRuns returns every stored run, oldest first.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.filename, r.source_hash, r.compiler_version,
		       COUNT(f.position),
		       COALESCE(SUM(CASE WHEN f.diagnostics != '[]' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN functions f ON f.run_id = r.id
		GROUP BY r.id
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Seq, &r.Filename, &r.SourceHash, &r.CompilerVersion, &r.Functions, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the id of the most recently written run.
// Returns ErrRunNotFound if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// ReadRun retrieves a run with its source and function results, functions
// in declaration order. The in-memory graphs (FunctionResult.Function) are
// not stored and are nil.
//
// Returns an error wrapping ErrRunNotFound if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (*pipeline.Run, error) {
	run := &pipeline.Run{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, source_hash, source, compiler_version
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Filename, &run.SourceHash, &run.Source, &run.CompilerVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	fns, err := s.readFunctions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	run.Functions = fns
	return run, nil
}

func (s *Store) readFunctions(ctx context.Context, runID string) ([]pipeline.FunctionResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, fingerprint, blocks, phis, hir, ssa, diagnostics
		FROM functions
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	var fns []pipeline.FunctionResult
	for rows.Next() {
		var fn pipeline.FunctionResult
		var diags string
		if err := rows.Scan(&fn.Name, &fn.Fingerprint, &fn.Blocks, &fn.Phis, &fn.HIR, &fn.SSA, &diags); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		if fn.Diagnostics, err = unmarshalDiagnostics(diags); err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return fns, nil
}

// FunctionRef locates one stored function.
type FunctionRef struct {
	RunID    string `json:"run_id"`
	Seq      int64  `json:"seq"`
	Filename string `json:"filename"`
	Name     string `json:"name"`
}

// FindFingerprint returns every stored function whose SSA graph has the
// given fingerprint, oldest run first. Failed functions have no fingerprint
// and never match; an empty fingerprint returns nothing.
func (s *Store) FindFingerprint(ctx context.Context, fingerprint string) ([]FunctionRef, error) {
	refs := []FunctionRef{}
	if fingerprint == "" {
		return refs, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.filename, f.name
		FROM functions f
		JOIN runs r ON r.id = f.run_id
		WHERE f.fingerprint = ?
		ORDER BY r.seq ASC, f.position ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("find fingerprint: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref FunctionRef
		if err := rows.Scan(&ref.RunID, &ref.Seq, &ref.Filename, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan function ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate function refs: %w", err)
	}
	return refs, nil
}
