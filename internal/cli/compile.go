package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hirssa/internal/pipeline"
	"github.com/roach88/hirssa/internal/store"
)

// Stages selectable with --stage.
const (
	StageHIR = "hir"
	StageSSA = "ssa"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Stage   string // "hir" | "ssa"
	DBPath  string // record runs here when set
	Output  string // output file path
	Metrics bool   // dump Prometheus metrics to stderr
}

// CompilationResult holds one run per compiled file.
type CompilationResult struct {
	Runs []*pipeline.Run `json:"runs"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	FileCount     int
	FunctionCount int
	FailedCount   int
	BlockCount    int
	PhiCount      int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file.cue|dir>",
		Short: "Lower functions to a control-flow graph and convert it to SSA form",
		Long: `Compile the functions defined in a CUE file (or every CUE file in a
directory) and print each function's graph.

--stage hir prints the graph before SSA conversion; --stage ssa (default)
prints the converted graph. A function that fails to compile is reported
with its diagnostics and does not stop the others.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Stage, "stage", StageSSA, "graph to print (hir|ssa)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record runs in this SQLite database")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write runs as JSON to this file")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print pipeline metrics in Prometheus text format to stderr")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Stage != StageHIR && opts.Stage != StageSSA {
		return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("invalid stage %q: must be %s or %s", opts.Stage, StageHIR, StageSSA), nil)
	}

	// Decode everything up front so a broken file is reported before any
	// run is recorded.
	loadResult, loadErrors := LoadSources(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	var st *store.Store
	if opts.DBPath != "" {
		var err error
		st, err = store.Open(opts.DBPath)
		if err != nil {
			return outputCompileError(formatter, ErrCodeStoreFailed, err.Error(), nil)
		}
		defer st.Close()
	}

	p := pipeline.New(pipeline.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())))
	ctx := cmd.Context()

	result := &CompilationResult{}
	for _, file := range loadResult.Files {
		formatter.VerboseLog("Compiling %s (%d function(s))", file.Path, len(file.Functions))
		run, err := p.CompileFunctions(ctx, file.Path, file.Source, file.Functions)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("compiling %s: %v", file.Path, err), nil)
		}
		if st != nil {
			if err := st.WriteRun(ctx, run); err != nil {
				return outputCompileError(formatter, ErrCodeStoreFailed, err.Error(), nil)
			}
			formatter.VerboseLog("Recorded run %s in %s", run.ID, opts.DBPath)
		}
		result.Runs = append(result.Runs, run)
	}

	if opts.Output != "" {
		if err := writeRunsToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if opts.Metrics {
		p.Metrics().WritePrometheus(formatter.GetErrWriter())
	}

	stats := calculateStats(result)
	if err := outputCompileResult(formatter, opts, result, stats); err != nil {
		return err
	}
	if stats.FailedCount > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d function(s) failed to compile", stats.FailedCount, stats.FunctionCount))
	}
	return nil
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{FileCount: len(result.Runs)}
	for _, run := range result.Runs {
		stats.FunctionCount += len(run.Functions)
		stats.FailedCount += run.Failed()
		for _, fn := range run.Functions {
			stats.BlockCount += fn.Blocks
			stats.PhiCount += fn.Phis
		}
	}
	return stats
}

// outputCompileResult prints every function's graph, or its diagnostics
// when it failed.
func outputCompileResult(formatter *OutputFormatter, opts *CompileOptions, result *CompilationResult, stats CompilationStats) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if stats.FailedCount > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeGeneric,
				Message: fmt.Sprintf("%d of %d function(s) failed to compile", stats.FailedCount, stats.FunctionCount),
			}
		}
		if len(result.Runs) == 1 {
			resp.RunID = result.Runs[0].ID
		}
		return formatter.Respond(resp)
	}

	w := formatter.Writer
	for _, run := range result.Runs {
		for _, fn := range run.Functions {
			if !fn.OK() {
				fmt.Fprintf(w, "✗ %s\n", fn.Name)
				for _, d := range fn.Diagnostics {
					fmt.Fprintf(w, "  %s\n", d.Error())
				}
				fmt.Fprintln(w)
				continue
			}
			text := fn.SSA
			if opts.Stage == StageHIR {
				text = fn.HIR
			}
			fmt.Fprintln(w, strings.TrimRight(text, "\n"))
			fmt.Fprintln(w)
		}
	}

	if stats.FailedCount > 0 {
		fmt.Fprintf(w, "✗ %d of %d function(s) failed to compile\n", stats.FailedCount, stats.FunctionCount)
	} else {
		fmt.Fprintf(w, "✓ Compiled %d function(s): %d block(s), %d phi(s)\n",
			stats.FunctionCount, stats.BlockCount, stats.PhiCount)
	}
	if len(result.Runs) == 1 {
		fmt.Fprintf(w, "Run: %s\n", result.Runs[0].ID)
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote runs to %s\n", opts.Output)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load and decode errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs every decoding error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := formatter.Respond(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("decoding failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Decoding failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("decoding failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeRunsToFile writes the compiled runs to a file as indented JSON.
func writeRunsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling runs: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
