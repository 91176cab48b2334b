package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/deadlint/internal/compiler"
	"github.com/roach88/deadlint/internal/config"
	"github.com/roach88/deadlint/internal/deadcode"
	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
	"github.com/roach88/deadlint/internal/runid"
	"github.com/roach88/deadlint/internal/store"
)

// DefaultRunID is recorded for scenarios that do not set run_id.
const DefaultRunID = "scenario-run"

// Harness is the test execution engine.
// It analyzes one crate per scenario and records the run in its store.
type Harness struct {
	store  *store.Store
	runIDs runid.Generator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the crate and apply the scenario settings
// 2. Run the dead-code analysis
// 3. Store the run and read the findings back in report order
// 4. Evaluate expectations and assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with analysis progress sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	id := scenario.RunID
	if id == "" {
		id = DefaultRunID
	}
	h := &Harness{
		store:  st,
		runIDs: runid.NewFixedGenerator(id),
		logger: logger,
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	c, err := loadCrate(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load crate: %w", err)
	}

	settings, err := scenario.Settings.Merge(config.MergeOptions{})
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if err := settings.Apply(c); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	res, err := deadcode.Check(c, deadcode.Options{
		Logger: h.logger,
		Lints:  lint.New(c, settings.LintOptions()...),
	})
	if err != nil {
		return nil, err
	}

	run, err := store.NewRun(h.runIDs.Generate(), c, res, settings.Record())
	if err != nil {
		return nil, err
	}
	findings, err := store.NewFindings(run, c, res.Diagnostics)
	if err != nil {
		return nil, err
	}
	if _, err := h.store.WriteRun(ctx, run, findings); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	stored, err := h.store.ReadFindings(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read findings: %w", err)
	}

	result := NewResult()
	result.Crate = c.Name
	result.RunID = run.ID
	reported := make(map[string]bool, len(stored))
	for _, f := range stored {
		reported[f.Path] = true
		result.Findings = append(result.Findings, FindingEvent{
			Seq:        f.Seq,
			Path:       f.Path,
			Descr:      f.Descr,
			Name:       f.Name,
			Participle: f.Participle,
			Severity:   f.Severity,
			Line:       f.Line,
		})
	}
	for _, cy := range res.Cycles {
		result.Cycles = append(result.Cycles, CycleEvent{Path: cy.Path, Message: cy.Message})
	}
	for _, id := range c.IDs() {
		n, _ := c.Node(id)
		if _, ok := n.(ir.Decl); !ok || id == c.Root {
			continue
		}
		if path := c.DefPath(id); !reported[path] {
			result.Live[path] = true
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"crate", c.Name,
		"findings", len(result.Findings),
		"cycles", len(result.Cycles),
		"pass", result.Pass,
	)
	return result, nil
}

// loadCrate compiles the scenario's CUE file. Spans carry the file's base
// name so results do not depend on where the repository is checked out.
func loadCrate(s *Scenario) (*ir.Crate, error) {
	data, err := os.ReadFile(s.Crate)
	if err != nil {
		return nil, err
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(filepath.Base(s.Crate)))
	crates, err := compiler.CompileCrates(v)
	if err != nil {
		return nil, err
	}
	if s.CrateName == "" {
		if len(crates) != 1 {
			return nil, fmt.Errorf("%s defines %d crates; set crate_name", s.Crate, len(crates))
		}
		return crates[0], nil
	}
	for _, c := range crates {
		if c.Name == s.CrateName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s has no crate %q", s.Crate, s.CrateName)
}
