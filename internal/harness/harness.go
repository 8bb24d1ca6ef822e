package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/hirssa/internal/pipeline"
	"github.com/roach88/hirssa/internal/store"
	"github.com/roach88/hirssa/internal/testutil"
)

// inlineFilename names inline programs in diagnostics and stored runs.
const inlineFilename = "<inline>.cue"

// Harness executes scenarios against the full pipeline.
type Harness struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with run
// ids derived from the scenario name. Execution flow:
//  1. compile the program through the pipeline
//  2. store the run and replay it, failing if any fingerprint changes
//  3. check the expected diagnostics, or evaluate the graph assertions
//
// An error is returned only when the scenario could not be executed at all
// (unreadable source, undecodable CUE); assertion failures are reported in
// the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := testutil.NewSequentialRunIDs("scenario-" + scenario.Name)
	h := &Harness{
		store: st,
		pipeline: pipeline.New(
			pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			pipeline.WithRunIDGenerator(ids),
		),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	filename, src, err := readProgram(scenario)
	if err != nil {
		return nil, err
	}

	run, err := h.pipeline.CompileSource(ctx, filename, src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}

	result := NewResult()
	result.RunID = run.ID

	if err := h.checkReplay(ctx, run, result); err != nil {
		return nil, err
	}

	fr, err := selectFunction(run, scenario.Function)
	if err != nil {
		result.AddError(err.Error())
		return result, nil
	}
	result.Function = fr

	if len(scenario.ExpectDiagnostics) > 0 {
		checkDiagnostics(fr, scenario.ExpectDiagnostics, result)
		return result, nil
	}

	if !fr.OK() {
		for _, d := range fr.Diagnostics {
			result.AddError(fmt.Sprintf("function %s failed: %s", fr.Name, d.Error()))
		}
		return result, nil
	}

	for _, msg := range EvaluateAssertions(fr.Function, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkReplay records run and recompiles it from the store. Every scenario
// thereby also checks that compilation is deterministic.
func (h *Harness) checkReplay(ctx context.Context, run *pipeline.Run, result *Result) error {
	if err := h.store.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	replay, err := h.store.Replay(ctx, h.pipeline, run.ID)
	if err != nil {
		return fmt.Errorf("failed to replay run: %w", err)
	}

	result.Replayed = replay.Matched()
	if result.Replayed {
		return nil
	}
	for _, fr := range replay.Functions {
		if !fr.Match {
			result.AddError(fmt.Sprintf("replay of %s is not deterministic:\n%s", fr.Name, fr.Diff))
		}
	}
	for _, name := range replay.Missing {
		result.AddError(fmt.Sprintf("replay of %s: function missing from one of the runs", name))
	}
	return nil
}

func readProgram(scenario *Scenario) (string, []byte, error) {
	if scenario.Program != "" {
		return inlineFilename, []byte(scenario.Program), nil
	}
	src, err := os.ReadFile(scenario.Source)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read source: %w", err)
	}
	return scenario.Source, src, nil
}

// selectFunction picks the named function, or the only one when name is
// empty.
func selectFunction(run *pipeline.Run, name string) (*pipeline.FunctionResult, error) {
	if name == "" {
		if len(run.Functions) != 1 {
			return nil, fmt.Errorf("program defines %d functions; scenario must name one", len(run.Functions))
		}
		return &run.Functions[0], nil
	}
	fr, ok := run.Function(name)
	if !ok {
		names := make([]string, len(run.Functions))
		for i := range run.Functions {
			names[i] = run.Functions[i].Name
		}
		return nil, fmt.Errorf("function %q not found (have: %s)", name, strings.Join(names, ", "))
	}
	return fr, nil
}

func checkDiagnostics(fr *pipeline.FunctionResult, want []string, result *Result) {
	got := make([]string, len(fr.Diagnostics))
	for i, d := range fr.Diagnostics {
		got[i] = string(d.Code)
	}
	if strings.Join(got, ",") == strings.Join(want, ",") {
		return
	}
	result.AddError((&AssertionError{
		Type:     "expect_diagnostics",
		Expected: fmt.Sprintf("diagnostics [%s]", strings.Join(want, ", ")),
		Actual:   fmt.Sprintf("diagnostics [%s]", strings.Join(got, ", ")),
		Graph:    fr.SSA,
	}).Error())
}
