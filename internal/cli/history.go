package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/query"
	"github.com/roach88/deadlint/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Run      string // optional - show the findings of one run

	// Finding filters
	Descr    []string
	Severity string
	Path     string // path prefix
}

// filter builds the finding predicate from the filter flags.
func (o *HistoryOptions) filter() query.Predicate {
	var descr query.Predicate
	switch len(o.Descr) {
	case 0:
	case 1:
		descr = query.Equals{Field: "descr", Value: o.Descr[0]}
	default:
		descr = query.In{Field: "descr", Values: o.Descr}
	}
	var severity, path query.Predicate
	if o.Severity != "" {
		severity = query.Equals{Field: "severity", Value: o.Severity}
	}
	if o.Path != "" {
		path = query.Prefix{Field: "path", Value: o.Path}
	}
	return query.All(descr, severity, path)
}

// RunSummary is one recorded run in history output.
type RunSummary struct {
	ir.Run
	Findings int `json:"findings"`
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Runs     []RunSummary `json:"runs"`
	Findings []ir.Finding `json:"findings,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [crate]",
		Short: "List recorded runs",
		Long: `List the runs recorded by 'deadlint check --db', oldest first.

With a crate name only that crate's runs are listed. With --run the findings
of one run are shown in report order. --descr, --severity and --path narrow
the findings that are counted and shown.

Examples:
  deadlint history --db ./deadlint.db
  deadlint history --db ./deadlint.db shapes
  deadlint history --db ./deadlint.db --run 0190a5c4-...
  deadlint history --db ./deadlint.db --run 0190a5c4-... --descr field --path Point::`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			crate := ""
			if len(args) == 1 {
				crate = args[0]
			}
			return runHistory(opts, crate, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the findings of this run")
	cmd.Flags().StringSliceVar(&opts.Descr, "descr", nil, "only findings of these kinds (function, field, ...)")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "only findings of this severity (warning|error)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "only findings whose path starts with this prefix")

	return cmd
}

// openExistingStore opens a database that check must already have created.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeDatabase, path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: failed to open database", ErrCodeDatabase), err)
	}
	return st, nil
}

func runHistory(opts *HistoryOptions, crate string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	filter := opts.filter()
	if problems := query.Validate(filter); len(problems) > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: invalid filter: %s", ErrCodeConfig, strings.Join(problems, "; ")))
	}

	result, err := readHistory(ctx, st, crate, opts.Run, filter)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, RunID: opts.Run})
	}
	outputHistoryText(formatter, result, opts.Run != "")
	return nil
}

func readHistory(ctx context.Context, st *store.Store, crate, runID string, filter query.Predicate) (HistoryResult, error) {
	result := HistoryResult{Runs: []RunSummary{}}

	var runs []ir.Run
	if runID != "" {
		run, err := st.ReadRun(ctx, runID)
		if errors.Is(err, sql.ErrNoRows) {
			return result, NewExitError(ExitCommandError, fmt.Sprintf("%s: no run with ID %s", ErrCodeDatabase, runID))
		}
		if err != nil {
			return result, WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []ir.Run{run}
	} else {
		var err error
		if runs, err = st.ReadRuns(ctx, crate); err != nil {
			return result, WrapExitError(ExitCommandError, "failed to read runs", err)
		}
	}

	for _, run := range runs {
		findings, err := st.QueryFindings(ctx, run.ID, filter)
		if err != nil {
			return result, WrapExitError(ExitCommandError, "failed to read findings", err)
		}
		result.Runs = append(result.Runs, RunSummary{Run: run, Findings: len(findings)})
		if runID != "" {
			result.Findings = findings
		}
	}
	return result, nil
}

func outputHistoryText(formatter *OutputFormatter, result HistoryResult, showFindings bool) {
	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	for _, r := range result.Runs {
		fmt.Fprintf(w, "%4d  %s  %-12s %3d finding(s)  level=%s", r.Seq, r.ID, r.Crate, r.Findings, r.Settings.Level)
		if r.Settings.Entry != "" {
			fmt.Fprintf(w, " entry=%s", r.Settings.Entry)
		}
		if len(r.Settings.ExemptAttrs) > 0 {
			fmt.Fprintf(w, " exempt=%s", strings.Join(r.Settings.ExemptAttrs, ","))
		}
		fmt.Fprintln(w)
	}

	if !showFindings {
		return
	}
	fmt.Fprintln(w)
	for _, f := range result.Findings {
		fmt.Fprintf(w, "[%d] %s: %s: %s\n", f.Seq, f.Path, f.Severity, f.Message())
	}
}
