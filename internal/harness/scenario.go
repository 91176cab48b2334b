package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/deadlint/internal/config"
)

// Scenario defines a conformance test scenario.
// A scenario names a CUE crate, the settings to analyze it with and the
// declarations the analysis must and must not report.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Crate is the path of the CUE file holding the crate.
	// Relative paths are resolved against the scenario file's directory.
	Crate string `yaml:"crate"`

	// CrateName picks one crate when the file defines several.
	CrateName string `yaml:"crate_name,omitempty"`

	// Settings takes the same keys as .deadlint.yaml.
	Settings *config.Config `yaml:"settings,omitempty"`

	// Dead lists every declaration the analysis must report. A finding
	// that is not listed fails the scenario.
	Dead []Expectation `yaml:"dead"`

	// Live lists declaration paths that must exist and must not be reported.
	Live []string `yaml:"live,omitempty"`

	// Assertions validate ordering and cycle grouping.
	// Supported types: finding_count, finding_order, cycle, no_cycles
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is the fixed run identifier recorded in the store.
	// Defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// Expectation is one expected finding. Only Path is required; the other
// fields are checked when set.
type Expectation struct {
	// Path is the declaration's path from the crate root, e.g. "Point::z".
	Path string `yaml:"path"`

	// Descr is the description, e.g. "field" or "associated function".
	Descr string `yaml:"descr,omitempty"`

	// Participle is "used", "constructed" or "read".
	Participle string `yaml:"participle,omitempty"`

	// Severity is "warning" or "error".
	Severity string `yaml:"severity,omitempty"`
}

// Assertion validates the findings as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "finding_count": exactly Count findings
	// - "finding_order": Paths are reported in this order
	// - "cycle": some dead cycle has exactly the members in Paths
	// - "no_cycles": no dead cycle is reported
	Type string `yaml:"type"`

	// Count is the expected number of findings (used by finding_count).
	Count int `yaml:"count,omitempty"`

	// Paths are declaration paths (used by finding_order and cycle).
	Paths []string `yaml:"paths,omitempty"`
}

// Assertion type constants.
const (
	AssertFindingCount = "finding_count"
	AssertFindingOrder = "finding_order"
	AssertCycle        = "cycle"
	AssertNoCycles     = "no_cycles"
)

var participles = map[string]bool{"used": true, "constructed": true, "read": true}

var severities = map[string]bool{"warning": true, "error": true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the crate path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the crate path BEFORE validation
	if scenario.Crate != "" && !filepath.IsAbs(scenario.Crate) && basePath != "" {
		scenario.Crate = filepath.Join(basePath, scenario.Crate)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Crate == "" {
		return fmt.Errorf("crate is required")
	}

	if _, err := os.Stat(s.Crate); os.IsNotExist(err) {
		return fmt.Errorf("crate file not found: %s", s.Crate)
	}

	seen := make(map[string]bool, len(s.Dead))
	for i, e := range s.Dead {
		if e.Path == "" {
			return fmt.Errorf("dead[%d]: path is required", i)
		}
		if seen[e.Path] {
			return fmt.Errorf("dead[%d]: %s listed twice", i, e.Path)
		}
		seen[e.Path] = true
		if e.Participle != "" && !participles[e.Participle] {
			return fmt.Errorf("dead[%d]: unknown participle %q", i, e.Participle)
		}
		if e.Severity != "" && !severities[e.Severity] {
			return fmt.Errorf("dead[%d]: unknown severity %q", i, e.Severity)
		}
	}

	for i, path := range s.Live {
		if path == "" {
			return fmt.Errorf("live[%d]: path is required", i)
		}
		if seen[path] {
			return fmt.Errorf("live[%d]: %s is also listed as dead", i, path)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFindingCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for finding_count", index)
		}
	case AssertFindingOrder:
		if len(a.Paths) < 2 {
			return fmt.Errorf("assertions[%d]: at least two paths are required for finding_order", index)
		}
	case AssertCycle:
		if len(a.Paths) == 0 {
			return fmt.Errorf("assertions[%d]: paths list is required for cycle", index)
		}
	case AssertNoCycles:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
