// Package harness runs dead-code scenarios against CUE crates.
//
// A scenario is a YAML file naming a crate and what the analysis must find:
//
//	name: shapes
//	description: unused methods, fields and variants are reported
//	crate: ../crates/shapes.cue
//	settings:
//	  default_level: warn
//	dead:
//	  - path: Point::z
//	    descr: field
//	    participle: read
//	live:
//	  - Point::norm
//	assertions:
//	  - type: finding_order
//	    paths: [Point::z, Shape::Square]
//
// The dead list is exhaustive: a finding that is not listed fails the
// scenario. Settings take the same keys as .deadlint.yaml.
//
// Run compiles the crate, analyzes it and records the run in a fresh
// in-memory store under a fixed run ID. Findings are read back from the
// store, so the result shows the same order `deadlint history` would.
//
// RunWithGolden additionally compares the findings, as canonical JSON,
// against testdata/golden/<name>.golden.
package harness
