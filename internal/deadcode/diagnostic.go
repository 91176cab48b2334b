package deadcode

import (
	"fmt"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
)

// Severity is how a finding is surfaced.
type Severity uint8

const (
	// Warning is a finding at level warn.
	Warning Severity = iota
	// Error is a finding at level deny or forbid.
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// severityOf maps a lint level to a severity; Allow reports false.
func severityOf(l lint.Level) (Severity, bool) {
	switch l {
	case lint.Allow:
		return 0, false
	case lint.Warn:
		return Warning, true
	default:
		return Error, true
	}
}

// Diagnostic is one dead declaration.
type Diagnostic struct {
	Decl       ir.ID
	Descr      string // "function", "struct", "field", ...
	Name       string
	Participle string // "used", "constructed" or "read"
	Span       ir.Span
	Severity   Severity
}

// Message renders the finding, e.g. "function is never used: `helper`".
func (d Diagnostic) Message() string {
	return fmt.Sprintf("%s is never %s: `%s`", d.Descr, d.Participle, d.Name)
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message())
}

// Sink receives findings in report order.
type Sink interface {
	Emit(Diagnostic)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Diagnostic)

// Emit calls f(d).
func (f SinkFunc) Emit(d Diagnostic) { f(d) }

// Collector is a Sink that keeps every finding.
type Collector struct {
	Diagnostics []Diagnostic
}

// Emit appends d.
func (c *Collector) Emit(d Diagnostic) { c.Diagnostics = append(c.Diagnostics, d) }

// HasErrors reports whether any collected finding is an error.
func (c *Collector) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
