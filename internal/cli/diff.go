package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/store"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Database string
	Crate    string // compare the two latest runs of this crate
}

// DiffResult is the JSON form of a run comparison.
type DiffResult struct {
	From      string       `json:"from"`
	To        string       `json:"to"`
	Added     []ir.Finding `json:"added"`
	Removed   []ir.Finding `json:"removed"`
	Unchanged int          `json:"unchanged"`
	Clean     bool         `json:"clean"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <from-run> <to-run>",
		Short: "Compare the findings of two runs",
		Long: `Compare two runs recorded by 'deadlint check --db'.

Findings are matched by crate, path and kind, so moving a declaration does
not count as a new finding. Without run IDs, --crate compares the two most
recent runs of that crate.

Exit status is 1 when the later run has findings the earlier one did not.

Examples:
  deadlint diff --db ./deadlint.db 0190a5c4-... 0190a5d1-...
  deadlint diff --db ./deadlint.db --crate shapes`,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Crate, "crate", "", "compare the two latest runs of this crate")

	return cmd
}

func runDiff(opts *DiffOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	from, to, err := diffTargets(ctx, st, opts.Crate, args)
	if err != nil {
		return err
	}

	diff, err := st.DiffRuns(ctx, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: no such run (%s, %s)", ErrCodeDatabase, from, to))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to diff runs", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return outputDiff(formatter, diff)
}

// diffTargets picks the runs to compare from the arguments or --crate.
func diffTargets(ctx context.Context, st *store.Store, crate string, args []string) (string, string, error) {
	switch len(args) {
	case 2:
		return args[0], args[1], nil
	case 1:
		return "", "", NewExitError(ExitCommandError, "diff needs two run IDs, or none with --crate")
	}
	if crate == "" {
		return "", "", NewExitError(ExitCommandError, "diff needs two run IDs or --crate")
	}
	runs, err := st.ReadRuns(ctx, crate)
	if err != nil {
		return "", "", WrapExitError(ExitCommandError, "failed to read runs", err)
	}
	if len(runs) < 2 {
		return "", "", NewExitError(ExitCommandError, fmt.Sprintf("crate %s has %d run(s); need two to compare", crate, len(runs)))
	}
	return runs[len(runs)-2].ID, runs[len(runs)-1].ID, nil
}

func outputDiff(formatter *OutputFormatter, diff store.RunDiff) error {
	if formatter.Format == "json" {
		resp := CLIResponse{
			Status: "ok",
			RunID:  diff.To.ID,
			Data: DiffResult{
				From:      diff.From.ID,
				To:        diff.To.ID,
				Added:     nonNil(diff.Added),
				Removed:   nonNil(diff.Removed),
				Unchanged: diff.Unchanged,
				Clean:     diff.Clean(),
			},
		}
		if !diff.Clean() {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeNewFindings,
				Message: fmt.Sprintf("%d new finding(s)", len(diff.Added)),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "%s (%s) -> %s (%s)\n", diff.From.ID, diff.From.Crate, diff.To.ID, diff.To.Crate)
		for _, f := range diff.Added {
			fmt.Fprintf(w, "+ %s: %s\n", f.Path, f.Message())
		}
		for _, f := range diff.Removed {
			fmt.Fprintf(w, "- %s: %s\n", f.Path, f.Message())
		}
		fmt.Fprintf(w, "%d added, %d removed, %d unchanged\n", len(diff.Added), len(diff.Removed), diff.Unchanged)
	}

	if !diff.Clean() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d new finding(s)", len(diff.Added)))
	}
	return nil
}

func nonNil(fs []ir.Finding) []ir.Finding {
	if fs == nil {
		return []ir.Finding{}
	}
	return fs
}
