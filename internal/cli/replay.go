package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hirssa/internal/pipeline"
	"github.com/roach88/hirssa/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	All      bool // replay every stored run
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Runs             []*store.ReplayResult `json:"runs"`
	TotalRuns        int                   `json:"total_runs"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Recompile a stored run and verify determinism",
		Long: `Recompile the source recorded with a run and compare every function's
fingerprint with the stored one.

Without a run id the most recent run is replayed; --all replays every run.
Replays are not written back to the database.

Exit codes:
  0 - Every function reproduced its stored fingerprint
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  hirssa replay --db ./hirssa.db
  hirssa replay --db ./hirssa.db 0192f7a0-...
  hirssa replay --db ./hirssa.db --all --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReplay(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.All, "all", false, "replay every stored run")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.All && runID != "" {
		return NewExitError(ExitCommandError, "--all and a run id are mutually exclusive")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runIDs, err := replayTargets(ctx, st, opts, runID)
	if errors.Is(err, store.ErrRunNotFound) && runID == "" {
		// An empty database has nothing to verify.
		runIDs, err = nil, nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to select runs", err)
	}

	summary := ReplaySummary{
		Runs:             make([]*store.ReplayResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}
	if len(runIDs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(formatter, summary)
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	p := pipeline.New(pipeline.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())))
	for _, id := range runIDs {
		formatter.VerboseLog("Replaying run %s", id)
		result, err := st.Replay(ctx, p, id)
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: run %s not found", ErrCodeRunNotFound, id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		summary.Runs = append(summary.Runs, result)
		if !result.Matched() {
			summary.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, summary)
	}
	return outputReplayText(formatter, summary)
}

// replayTargets picks the runs to replay: the named one, every run with
// --all, or the latest.
func replayTargets(ctx context.Context, st *store.Store, opts *ReplayOptions, runID string) ([]string, error) {
	if runID != "" {
		return []string{runID}, nil
	}
	if opts.All {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(runs))
		for i, r := range runs {
			ids[i] = r.ID
		}
		return ids, nil
	}
	latest, err := st.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	return []string{latest}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, summary ReplaySummary) error {
	response := CLIResponse{
		Status: "ok",
		Data:   summary,
	}
	if len(summary.Runs) == 1 {
		response.RunID = summary.Runs[0].RunID
	}

	if !summary.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}

	if !summary.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, summary ReplaySummary) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", summary.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range summary.Runs {
		fmt.Fprintf(w, "%s Run: %s\n", mark(run.Matched()), run.RunID)
		if run.StoredVersion != run.CompilerVersion {
			fmt.Fprintf(w, "  Compiler version changed: %s -> %s\n", run.StoredVersion, run.CompilerVersion)
		}

		for _, fn := range run.Functions {
			if formatter.Verbose || !fn.Match {
				fmt.Fprintf(w, "  %s %s\n", mark(fn.Match), fn.Name)
			}
			if fn.Diff != "" {
				fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(strings.TrimRight(fn.Diff, "\n"), "\n", "\n    "))
			}
		}
		for _, name := range run.Missing {
			fmt.Fprintf(w, "  ✗ %s (present on one side only)\n", name)
		}
		if run.Matched() {
			fmt.Fprintf(w, "  %d function(s) reproduced\n", len(run.Functions))
		} else {
			fmt.Fprintf(w, "  Warning: %d function(s) differ\n", run.Mismatches())
		}
		fmt.Fprintln(w)
	}

	if summary.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
