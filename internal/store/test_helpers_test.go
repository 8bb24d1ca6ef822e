package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
	"github.com/roach88/hirssa/internal/pipeline"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with one compiled and one failed function,
// without going through the pipeline.
func createTestRun(id string) *pipeline.Run {
	src := []byte(`function: f: {body: []}`)
	return &pipeline.Run{
		ID:              id,
		Filename:        "test.cue",
		SourceHash:      hir.SourceHash(src),
		CompilerVersion: pipeline.Version,
		Source:          src,
		Functions: []pipeline.FunctionResult{
			{
				Name:        "f",
				HIR:         "function f()\nbb0 (block):\n",
				SSA:         "function f()\nbb0 (block):\n",
				Fingerprint: "abc123",
				Blocks:      1,
			},
			{
				Name: "g",
				Diagnostics: []*diagnostics.Diagnostic{
					diagnostics.Syntax(diagnostics.ErrCodeDuplicateDefault, hir.Location{Line: 3, Column: 5},
						"expected at most one default case in a switch statement"),
				},
			},
		},
	}
}

// compileTestRun runs src through a real pipeline.
func compileTestRun(t *testing.T, p *pipeline.Pipeline, src string) *pipeline.Run {
	t.Helper()
	run, err := p.CompileSource(context.Background(), "test.cue", []byte(src))
	if err != nil {
		t.Fatalf("CompileSource() failed: %v", err)
	}
	return run
}

func newTestPipeline(ids ...string) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		pipeline.WithRunIDGenerator(pipeline.NewFixedGenerator(ids...)),
	)
}
