// Package store provides SQLite-backed history of deadlint runs.
//
// The store keeps two append-only tables:
//   - Runs: one analysis of one crate, with its settings and crate hash
//   - Findings: the dead declarations a run reported, in report order
//
// # Critical Patterns
//
// Stable finding identity
//   - Finding IDs hash crate, declaration path, descr and participle
//   - Moving a declaration does not change its finding ID, so DiffRuns
//     only reports real changes
//
// Deterministic query results
//   - Runs are ordered by seq, assigned on insert
//   - Findings are ordered by seq within a run, then id COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Content-addressed IDs are computed via functions in internal/ir/hash.go
// using RFC 8785 canonical JSON and SHA-256 with domain separation.
package store
