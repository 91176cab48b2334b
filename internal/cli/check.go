package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/deadlint/internal/config"
	"github.com/roach88/deadlint/internal/deadcode"
	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
	"github.com/roach88/deadlint/internal/runid"
	"github.com/roach88/deadlint/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Database string
	Config   string
	Level    string
	Entry    string
	Exempt   []string
	Crate    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs runid.Generator
}

// FindingReport is one finding in check output.
type FindingReport struct {
	Path     string `json:"path"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Span     string `json:"span"`
}

// CrateReport is the check outcome for one crate.
type CrateReport struct {
	Crate    string           `json:"crate"`
	RunID    string           `json:"run_id,omitempty"`
	Roots    int              `json:"roots"`
	Live     int              `json:"live"`
	Findings []FindingReport  `json:"findings"`
	Cycles   []deadcode.Cycle `json:"cycles,omitempty"`

	hasErrors bool
}

// CheckResult holds the reports of every checked crate.
type CheckResult struct {
	Crates []CrateReport `json:"crates"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return newCheckCommand(&CheckOptions{RootOptions: rootOpts})
}

func newCheckCommand(opts *CheckOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Report dead code in CUE-described crates",
		Long: `Compile the crates under path and report every declaration that is
never used, constructed or read.

Settings come from .deadlint.yaml found next to the crates or in a parent
directory; flags override the file. With --db every crate's run is recorded
so later runs can be compared with 'deadlint diff'.

Exit status is 1 when a finding is at level deny or forbid.

Example:
  deadlint check ./crates
  deadlint check --level deny --exempt test ./crates/shapes.cue
  deadlint check --db ./deadlint.db --crate shapes ./crates`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default: search from the crate directory up)")
	cmd.Flags().StringVar(&opts.Level, "level", "", "crate-wide dead_code level (allow|warn|deny|forbid)")
	cmd.Flags().StringVar(&opts.Entry, "entry", "", "path of the entry function, overriding the crate's")
	cmd.Flags().StringSliceVar(&opts.Exempt, "exempt", nil, "extra attribute names that keep a declaration alive")
	cmd.Flags().StringVar(&opts.Crate, "crate", "", "only check the crate with this name")

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	loadResult, loadErrors := LoadCrates(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return outputCompileError(formatter, code, message, nil)
	}
	crates, err := SelectCrate(loadResult.Crates, opts.Crate)
	if err != nil {
		code, message := parseCompileError(err)
		return outputCompileError(formatter, code, message, nil)
	}

	settings, err := resolveSettings(opts, loadResult.Dir, formatter)
	if err != nil {
		return outputCompileError(formatter, ErrCodeConfig, err.Error(), nil)
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return outputCompileError(formatter, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err), nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = runid.UUIDv7Generator{}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := &CheckResult{}
	for _, c := range crates {
		if err := settings.Apply(c); err != nil {
			return outputCompileError(formatter, ErrCodeConfig, err.Error(), nil)
		}
		report, err := checkCrate(ctx, c, settings, st, runIDs, logger)
		if err != nil {
			code := ErrCodeGeneric
			if st != nil {
				code = ErrCodeDatabase
			}
			return outputCompileError(formatter, code, err.Error(), nil)
		}
		result.Crates = append(result.Crates, report)
	}

	return outputCheckResult(formatter, result)
}

// resolveSettings reads the config file and merges the command line over it.
func resolveSettings(opts *CheckOptions, dir string, formatter *OutputFormatter) (config.Settings, error) {
	var cfg *config.Config
	var err error
	if opts.Config != "" {
		cfg, err = config.LoadFile(opts.Config)
		if err != nil {
			return config.Settings{}, fmt.Errorf("loading config: %w", err)
		}
		formatter.VerboseLog("Using config %s", opts.Config)
	} else {
		var found string
		cfg, found, err = config.Load(dir)
		if err != nil {
			return config.Settings{}, fmt.Errorf("loading config: %w", err)
		}
		if found != "" {
			formatter.VerboseLog("Using config %s", found)
		}
	}
	return cfg.Merge(config.MergeOptions{
		Level:       opts.Level,
		Entry:       opts.Entry,
		ExemptAttrs: opts.Exempt,
	})
}

// checkCrate analyzes one crate and records the run when st is set.
func checkCrate(ctx context.Context, c *ir.Crate, settings config.Settings, st *store.Store, runIDs runid.Generator, logger *slog.Logger) (CrateReport, error) {
	res, err := deadcode.Check(c, deadcode.Options{
		Logger: logger,
		Lints:  lint.New(c, settings.LintOptions()...),
	})
	if err != nil {
		return CrateReport{}, err
	}

	report := CrateReport{
		Crate:     c.Name,
		Roots:     res.Roots,
		Live:      res.Live.Len(),
		Findings:  make([]FindingReport, 0, len(res.Diagnostics)),
		Cycles:    res.Cycles,
		hasErrors: res.HasErrors(),
	}
	for _, d := range res.Diagnostics {
		report.Findings = append(report.Findings, FindingReport{
			Path:     c.DefPath(d.Decl),
			Message:  d.Message(),
			Severity: d.Severity.String(),
			Span:     d.Span.String(),
		})
	}

	if st == nil {
		return report, nil
	}
	run, err := store.NewRun(runIDs.Generate(), c, res, settings.Record())
	if err != nil {
		return CrateReport{}, err
	}
	findings, err := store.NewFindings(run, c, res.Diagnostics)
	if err != nil {
		return CrateReport{}, err
	}
	if _, err := st.WriteRun(ctx, run, findings); err != nil {
		return CrateReport{}, err
	}
	logger.Debug("run recorded", "crate", c.Name, "run_id", run.ID, "findings", len(findings))
	report.RunID = run.ID
	return report, nil
}

// outputCheckResult prints the findings and sets the exit status.
func outputCheckResult(formatter *OutputFormatter, result *CheckResult) error {
	failed := 0
	total := 0
	for _, r := range result.Crates {
		total += len(r.Findings)
		if r.hasErrors {
			failed++
		}
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if len(result.Crates) == 1 {
			resp.RunID = result.Crates[0].RunID
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		for _, r := range result.Crates {
			for _, f := range r.Findings {
				fmt.Fprintf(formatter.Writer, "%s: %s: %s\n", f.Span, f.Severity, f.Message)
			}
			for _, cy := range r.Cycles {
				fmt.Fprintf(formatter.Writer, "note: %s\n", cy.Message)
			}
			summary := fmt.Sprintf("%s: %d finding(s), %d live declaration(s)", r.Crate, len(r.Findings), r.Live)
			if r.RunID != "" {
				summary += fmt.Sprintf(", run %s", r.RunID)
			}
			fmt.Fprintln(formatter.Writer, summary)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("dead code denied in %d crate(s), %d finding(s) total", failed, total))
	}
	return nil
}
