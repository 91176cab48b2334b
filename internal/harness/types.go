package harness

// FindingEvent is one reported declaration as stored for the run.
type FindingEvent struct {
	Seq        int64  `json:"seq"`
	Path       string `json:"path"`
	Descr      string `json:"descr"`
	Name       string `json:"name"`
	Participle string `json:"participle"`
	Severity   string `json:"severity"`
	Line       int    `json:"line,omitempty"`
}

// Message renders the event like the diagnostic it came from.
func (e FindingEvent) Message() string {
	return e.Descr + " is never " + e.Participle + ": `" + e.Name + "`"
}

// CycleEvent is one group of dead declarations that only use each other.
type CycleEvent struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Crate is the name of the analyzed crate.
	Crate string `json:"crate"`

	// RunID identifies the stored run the findings were read back from.
	RunID string `json:"run_id"`

	// Findings are in report order.
	Findings []FindingEvent `json:"findings"`

	// Cycles are in order of their smallest member.
	Cycles []CycleEvent `json:"cycles,omitempty"`

	// Live holds the paths of every declaration that was not reported.
	Live map[string]bool `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Findings: []FindingEvent{},
		Live:     make(map[string]bool),
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Finding returns the first finding at path.
func (r *Result) Finding(path string) (FindingEvent, bool) {
	for _, f := range r.Findings {
		if f.Path == path {
			return f, true
		}
	}
	return FindingEvent{}, false
}
