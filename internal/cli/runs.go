package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/hirssa/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database    string
	Fingerprint string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded compilation runs",
		Long: `List the runs recorded with compile --db, oldest first.

With --fingerprint, list instead every recorded function whose SSA graph
has that fingerprint (see compile --format json).

Examples:
  hirssa runs --db ./hirssa.db
  hirssa runs --db ./hirssa.db --format json
  hirssa runs --db ./hirssa.db --fingerprint 3f9a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "list functions with this SSA fingerprint")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Fingerprint != "" {
		return runFingerprint(opts, cmd, formatter, st)
	}

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return formatter.Respond(CLIResponse{Status: "ok", Data: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tFILE\tFUNCTIONS\tFAILED\tVERSION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", r.Seq, r.ID, r.Filename, r.Functions, r.Failed, r.CompilerVersion)
	}
	return tw.Flush()
}

func runFingerprint(opts *RunsOptions, cmd *cobra.Command, formatter *OutputFormatter, st *store.Store) error {
	refs, err := st.FindFingerprint(cmd.Context(), opts.Fingerprint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to search functions", err)
	}

	if opts.Format == "json" {
		return formatter.Respond(CLIResponse{Status: "ok", Data: refs})
	}

	if len(refs) == 0 {
		fmt.Fprintf(formatter.Writer, "No functions with fingerprint %s.\n", opts.Fingerprint)
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tFILE\tFUNCTION")
	for _, r := range refs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Seq, r.RunID, r.Filename, r.Name)
	}
	return tw.Flush()
}
