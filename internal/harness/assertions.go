package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Findings []FindingEvent // All findings for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Findings) > 0 {
		fmt.Fprintf(&buf, "\nAll findings:\n")
		for _, f := range e.Findings {
			fmt.Fprintf(&buf, "  [%d] %s (%s)\n", f.Seq, f.Message(), f.Path)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks the result against the scenario's dead and live
// lists and its assertions. It returns one message per failure.
func EvaluateAssertions(result *Result, scenario *Scenario) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	for _, e := range scenario.Dead {
		add(assertDead(result, e))
	}
	add(assertNoUnexpected(result, scenario.Dead))
	for _, path := range scenario.Live {
		add(assertLive(result, path))
	}

	for _, a := range scenario.Assertions {
		switch a.Type {
		case AssertFindingCount:
			add(assertFindingCount(result, a))
		case AssertFindingOrder:
			add(assertFindingOrder(result, a))
		case AssertCycle:
			add(assertCycle(result, a))
		case AssertNoCycles:
			add(assertNoCycles(result))
		default:
			errs = append(errs, fmt.Sprintf("unknown assertion type: %s", a.Type))
		}
	}
	return errs
}

// assertDead checks that the expected declaration was reported with the
// given description, participle and severity.
func assertDead(result *Result, e Expectation) error {
	f, ok := result.Finding(e.Path)
	if !ok {
		return &AssertionError{
			Type:     "dead",
			Expected: fmt.Sprintf("finding for %s", e.Path),
			Actual:   "not reported",
			Findings: result.Findings,
		}
	}

	check := func(what, want, got string) error {
		if want == "" || want == got {
			return nil
		}
		return &AssertionError{
			Type:     "dead",
			Expected: fmt.Sprintf("%s of %s = %q", what, e.Path, want),
			Actual:   fmt.Sprintf("%q (%s)", got, f.Message()),
			Findings: result.Findings,
		}
	}
	if err := check("descr", e.Descr, f.Descr); err != nil {
		return err
	}
	if err := check("participle", e.Participle, f.Participle); err != nil {
		return err
	}
	return check("severity", e.Severity, f.Severity)
}

// assertNoUnexpected checks that every finding is listed in dead.
func assertNoUnexpected(result *Result, dead []Expectation) error {
	var extra []string
	for _, f := range result.Findings {
		listed := slices.ContainsFunc(dead, func(e Expectation) bool { return e.Path == f.Path })
		if !listed {
			extra = append(extra, fmt.Sprintf("%s (%s)", f.Path, f.Message()))
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     "dead",
		Expected: "only the listed findings",
		Actual:   fmt.Sprintf("unexpected: %s", strings.Join(extra, ", ")),
		Findings: result.Findings,
	}
}

// assertLive checks that path names a declaration that was not reported.
func assertLive(result *Result, path string) error {
	if f, ok := result.Finding(path); ok {
		return &AssertionError{
			Type:     "live",
			Expected: fmt.Sprintf("%s not reported", path),
			Actual:   f.Message(),
			Findings: result.Findings,
		}
	}
	if !result.Live[path] {
		return &AssertionError{
			Type:     "live",
			Expected: fmt.Sprintf("declaration %s", path),
			Actual:   "no such declaration in crate " + result.Crate,
		}
	}
	return nil
}

// assertFindingCount checks the total number of findings.
func assertFindingCount(result *Result, a Assertion) error {
	if len(result.Findings) != a.Count {
		return &AssertionError{
			Type:     AssertFindingCount,
			Expected: fmt.Sprintf("%d findings", a.Count),
			Actual:   fmt.Sprintf("%d findings", len(result.Findings)),
			Findings: result.Findings,
		}
	}
	return nil
}

// assertFindingOrder checks that the paths are reported in order.
// Other findings may appear in between.
func assertFindingOrder(result *Result, a Assertion) error {
	positions := make(map[string]int)
	for _, f := range result.Findings {
		if _, ok := positions[f.Path]; !ok {
			positions[f.Path] = int(f.Seq)
		}
	}

	for _, path := range a.Paths {
		if _, ok := positions[path]; !ok {
			return &AssertionError{
				Type:     AssertFindingOrder,
				Expected: fmt.Sprintf("all paths reported: %v", a.Paths),
				Actual:   fmt.Sprintf("missing finding: %s", path),
				Findings: result.Findings,
			}
		}
	}

	for i := 1; i < len(a.Paths); i++ {
		prev, curr := a.Paths[i-1], a.Paths[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertFindingOrder,
				Expected: fmt.Sprintf("findings in order: %v", a.Paths),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Findings: result.Findings,
			}
		}
	}
	return nil
}

// assertCycle checks that some cycle has exactly the given members.
func assertCycle(result *Result, a Assertion) error {
	want := slices.Clone(a.Paths)
	slices.Sort(want)
	var got []string
	for _, cy := range result.Cycles {
		members := cycleMembers(cy)
		if slices.Equal(members, want) {
			return nil
		}
		got = append(got, "["+strings.Join(members, ", ")+"]")
	}
	actual := "no cycles"
	if len(got) > 0 {
		actual = "cycles " + strings.Join(got, " ")
	}
	return &AssertionError{
		Type:     AssertCycle,
		Expected: fmt.Sprintf("cycle of %v", want),
		Actual:   actual,
	}
}

// assertNoCycles checks that no dead cycle was reported.
func assertNoCycles(result *Result) error {
	if len(result.Cycles) == 0 {
		return nil
	}
	msgs := make([]string, len(result.Cycles))
	for i, cy := range result.Cycles {
		msgs[i] = cy.Message
	}
	return &AssertionError{
		Type:     AssertNoCycles,
		Expected: "no cycles",
		Actual:   strings.Join(msgs, "; "),
	}
}

// cycleMembers returns the sorted distinct paths of a cycle. The path
// repeats its first member at the end.
func cycleMembers(cy CycleEvent) []string {
	members := slices.Clone(cy.Path)
	slices.Sort(members)
	return slices.Compact(members)
}
