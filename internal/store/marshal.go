package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/deadlint/internal/deadcode"
	"github.com/roach88/deadlint/internal/ir"
)

// marshalSettings converts run settings to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal settings store equal text.
func marshalSettings(s ir.RunSettings) (string, error) {
	m := map[string]any{"level": s.Level}
	if s.Entry != "" {
		m["entry"] = s.Entry
	}
	if len(s.ExemptAttrs) > 0 {
		m["exempt_attrs"] = s.ExemptAttrs
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(data), nil
}

// unmarshalSettings parses the settings column.
func unmarshalSettings(data string) (ir.RunSettings, error) {
	var s ir.RunSettings
	if data == "" || data == "{}" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return s, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

// NewRun describes the analysis of c as a run record. The ID comes from
// the caller's generator; Seq is assigned by WriteRun.
func NewRun(id string, c *ir.Crate, res *deadcode.Result, settings ir.RunSettings) (ir.Run, error) {
	hash, err := ir.CrateHash(c)
	if err != nil {
		return ir.Run{}, fmt.Errorf("new run: %w", err)
	}
	run := ir.Run{
		ID:          id,
		Crate:       c.Name,
		CrateHash:   hash,
		Settings:    settings,
		Roots:       res.Roots,
		Cycles:      len(res.Cycles),
		ToolVersion: ir.ToolVersion,
		IRVersion:   ir.IRVersion,
	}
	if res.Live != nil {
		run.Live = res.Live.Len()
	}
	return run, nil
}

// NewFindings converts diagnostics into finding records of run, keeping
// report order in Seq.
func NewFindings(run ir.Run, c *ir.Crate, diags []deadcode.Diagnostic) ([]ir.Finding, error) {
	findings := make([]ir.Finding, 0, len(diags))
	for i, d := range diags {
		path := c.DefPath(d.Decl)
		id, err := ir.FindingID(run.Crate, path, d.Descr, d.Participle)
		if err != nil {
			return nil, fmt.Errorf("new findings: %w", err)
		}
		findings = append(findings, ir.Finding{
			ID:         id,
			RunID:      run.ID,
			Seq:        int64(i + 1),
			Path:       path,
			Descr:      d.Descr,
			Name:       d.Name,
			Participle: d.Participle,
			Severity:   d.Severity.String(),
			File:       d.Span.File,
			Line:       d.Span.Line,
			Col:        d.Span.Col,
		})
	}
	return findings, nil
}
