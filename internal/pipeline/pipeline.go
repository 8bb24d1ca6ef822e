package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/hirssa/internal/ast"
	"github.com/roach88/hirssa/internal/compiler"
	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
	"github.com/roach88/hirssa/internal/lower"
	"github.com/roach88/hirssa/internal/ssa"
)

// Version identifies the lowering and SSA rules. Stored with every run so a
// replay mismatch can be told apart from a compiler upgrade.
const Version = "0.1.0"

// FunctionResult is the outcome of compiling one top-level function.
//
// A function that failed carries its diagnostics and whatever text was
// produced before the failing step: HIR is set once lowering succeeded, SSA
// and Fingerprint only when conversion and verification both passed.
type FunctionResult struct {
	Name        string                    `json:"name"`
	HIR         string                    `json:"hir,omitempty"`
	SSA         string                    `json:"ssa,omitempty"`
	Fingerprint string                    `json:"fingerprint,omitempty"`
	Blocks      int                       `json:"blocks"`
	Phis        int                       `json:"phis"`
	Diagnostics []*diagnostics.Diagnostic `json:"diagnostics,omitempty"`

	// Function is the converted graph, for in-process inspection.
	Function *hir.Function `json:"-"`
}

// OK reports whether the function compiled without diagnostics.
func (r *FunctionResult) OK() bool {
	return len(r.Diagnostics) == 0
}

// Run is one compilation of a source file.
type Run struct {
	ID              string           `json:"id"`
	Filename        string           `json:"filename"`
	SourceHash      string           `json:"source_hash"`
	CompilerVersion string           `json:"compiler_version"`
	Functions       []FunctionResult `json:"functions"`

	// Source is kept so a stored run can be replayed.
	Source []byte `json:"-"`
}

// Failed returns the number of functions that did not compile.
func (r *Run) Failed() int {
	n := 0
	for i := range r.Functions {
		if !r.Functions[i].OK() {
			n++
		}
	}
	return n
}

// Function looks up a result by function name.
func (r *Run) Function(name string) (*FunctionResult, bool) {
	for i := range r.Functions {
		if r.Functions[i].Name == name {
			return &r.Functions[i], true
		}
	}
	return nil, false
}

// Pipeline compiles sources. It is safe to reuse across runs but not for
// concurrent use: functions are processed one at a time.
type Pipeline struct {
	logger  *slog.Logger
	metrics *Metrics
	ids     RunIDGenerator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMetrics shares a metrics set between pipelines.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ids, for deterministic tests.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = g
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:  slog.Default(),
		metrics: NewMetrics(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Metrics returns the pipeline's metrics.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// CompileSource decodes src and compiles every function in it.
//
// A source that does not decode returns an error and no run. Otherwise the
// run is returned even when some functions failed; check Run.Failed.
func (p *Pipeline) CompileSource(ctx context.Context, filename string, src []byte) (*Run, error) {
	fns, err := compiler.CompileSource(filename, src)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return p.CompileFunctions(ctx, filename, src, fns)
}

// CompileFunctions compiles already decoded functions. src is recorded on
// the run for replay.
//
// Cancellation is checked between functions; a cancelled run returns the
// results gathered so far together with the context's error.
func (p *Pipeline) CompileFunctions(ctx context.Context, filename string, src []byte, fns []*ast.Function) (*Run, error) {
	run := &Run{
		ID:              p.ids.Generate(),
		Filename:        filename,
		SourceHash:      hir.SourceHash(src),
		CompilerVersion: Version,
		Source:          src,
	}
	p.logger.Info("run starting", "run", run.ID, "file", filename, "functions", len(fns))

	for _, fn := range fns {
		if err := ctx.Err(); err != nil {
			p.logger.Info("run stopping: context cancelled", "run", run.ID, "completed", len(run.Functions))
			return run, err
		}
		run.Functions = append(run.Functions, p.compileFunction(ctx, run.ID, fn))
	}

	p.logger.Info("run finished", "run", run.ID, "functions", len(run.Functions), "failed", run.Failed())
	return run, nil
}

func (p *Pipeline) compileFunction(ctx context.Context, runID string, fn *ast.Function) FunctionResult {
	p.metrics.functions.Inc()
	res := FunctionResult{Name: fn.Name}
	log := p.logger.With("run", runID, "function", fn.Name)

	if verrs := compiler.Validate(fn); len(verrs) > 0 {
		for _, ve := range verrs {
			res.Diagnostics = append(res.Diagnostics, validationDiagnostic(fn, ve))
		}
		return p.fail(ctx, log, res, "validation failed")
	}

	out, err := lower.Lower(hir.NewEnv(), fn)
	if err != nil {
		res.Diagnostics = diagnostics.Flatten(err)
		return p.fail(ctx, log, res, "lowering failed")
	}
	// Convert rewrites the graph in place, so print the pre-SSA form first.
	res.HIR = hir.PrintFunction(out)

	start := time.Now()
	err = ssa.Convert(out)
	if err == nil {
		err = ssa.Verify(out)
	}
	p.metrics.ssaDuration.UpdateDuration(start)
	if err != nil {
		res.Diagnostics = diagnostics.Flatten(err)
		return p.fail(ctx, log, res, "ssa conversion failed")
	}

	res.SSA = hir.PrintFunction(out)
	res.Fingerprint = hir.Fingerprint(out)
	res.Blocks = out.BlockCount()
	res.Phis = out.PhiCount()
	res.Function = out

	p.metrics.blocks.Add(res.Blocks)
	p.metrics.phis.Add(res.Phis)
	log.Info("function compiled",
		"blocks", res.Blocks,
		"phis", res.Phis,
		"duration", time.Since(start),
	)
	return res
}

// fail counts and logs a failed function. Invariant violations are logged
// at error level since they point at a compiler defect, not at the input.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, res FunctionResult, msg string) FunctionResult {
	p.metrics.errors.Inc()

	level := slog.LevelWarn
	for _, d := range res.Diagnostics {
		if d.Category == diagnostics.CategoryInvariant {
			level = slog.LevelError
		}
	}
	attrs := []any{"diagnostics", len(res.Diagnostics)}
	if len(res.Diagnostics) > 0 {
		attrs = append(attrs, "first", res.Diagnostics[0].Error())
	}
	log.Log(ctx, level, msg, attrs...)
	return res
}

// validationDiagnostic reports a validation error as a syntax diagnostic so
// callers see one diagnostic type for every failure.
func validationDiagnostic(fn *ast.Function, ve compiler.ValidationError) *diagnostics.Diagnostic {
	return &diagnostics.Diagnostic{
		Category: diagnostics.CategorySyntax,
		Code:     diagnostics.Code(ve.Code),
		Message:  fmt.Sprintf("%s: %s", ve.Field, ve.Message),
		Loc:      hir.Location{File: fn.Pos.File, Line: ve.Line},
	}
}
