package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/deadlint/internal/ir"
)

// FindingSnapshot captures the findings of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
// Source lines are left out so reformatting a crate does not churn goldens.
type FindingSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Crate        string         `json:"crate"`
	Findings     []FindingEvent `json:"findings"`
	Cycles       []CycleEvent   `json:"cycles,omitempty"`
}

// toCanonicalMap converts a FindingSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *FindingSnapshot) toCanonicalMap() map[string]any {
	findings := make([]any, len(s.Findings))
	for i, f := range s.Findings {
		findings[i] = map[string]any{
			"seq":        f.Seq,
			"path":       f.Path,
			"descr":      f.Descr,
			"name":       f.Name,
			"participle": f.Participle,
			"severity":   f.Severity,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"crate":         s.Crate,
		"findings":      findings,
	}
	if len(s.Cycles) > 0 {
		cycles := make([]any, len(s.Cycles))
		for i, cy := range s.Cycles {
			cycles[i] = map[string]any{
				"path":    cy.Path,
				"message": cy.Message,
			}
		}
		result["cycles"] = cycles
	}
	return result
}

// Snapshot renders the result as canonical JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := FindingSnapshot{
		ScenarioName: scenarioName,
		Crate:        result.Crate,
		Findings:     result.Findings,
		Cycles:       result.Cycles,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its findings against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the findings don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's findings against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
