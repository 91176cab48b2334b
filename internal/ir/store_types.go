package ir

// NOTE: These are store-internal types, not part of the crate IR. Runs are
// ordered by an auto-increment seq assigned on insert.

// Run is one analysis of one crate (store-layer).
type Run struct {
	ID          string      `json:"id"`  // UUIDv7
	Seq         int64       `json:"seq"` // Insertion order
	Crate       string      `json:"crate"`
	CrateHash   string      `json:"crate_hash"` // CrateHash of the analyzed crate
	Settings    RunSettings `json:"settings"`
	Roots       int         `json:"roots"`
	Live        int         `json:"live"`
	Cycles      int         `json:"cycles"`
	ToolVersion string      `json:"tool_version"`
	IRVersion   string      `json:"ir_version"`
}

// RunSettings records the configuration a run was made with.
type RunSettings struct {
	Level       string   `json:"level"`
	Entry       string   `json:"entry,omitempty"`
	ExemptAttrs []string `json:"exempt_attrs,omitempty"`
}

// Finding is one stored dead-code diagnostic (store-layer).
type Finding struct {
	ID         string `json:"id"`     // Content-addressed (FindingID)
	RunID      string `json:"run_id"` // FK to runs
	Seq        int64  `json:"seq"`    // Report order within the run
	Path       string `json:"path"`   // DefPath of the declaration
	Descr      string `json:"descr"`
	Name       string `json:"name"`
	Participle string `json:"participle"`
	Severity   string `json:"severity"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Col        int    `json:"col,omitempty"`
}

// Message renders the finding like the diagnostic it was stored from.
func (f Finding) Message() string {
	return f.Descr + " is never " + f.Participle + ": `" + f.Name + "`"
}
