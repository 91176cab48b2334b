package ir

// Version constants for the IR schema and the tool.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// ToolVersion is the deadlint version recorded with each run.
	ToolVersion = "0.1.0"
)
