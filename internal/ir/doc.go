// Package ir provides the typed program representation analysed by deadlint.
//
// This package contains the declaration, body and type definitions plus the
// in-memory collaborators the analysis consumes: the node table and parent
// links (Crate), per-node type-checking answers (TypeckResults) and the
// accessibility table (AccessLevels). All other internal packages import ir;
// ir imports nothing internal.
//
// Key design constraints:
//   - Every node carries an ID; zero is the invalid sentinel and also stands
//     for "defined outside this crate" inside a Res.
//   - Declarations, expressions, patterns and types are sealed sum types.
//     Consumers switch over them exhaustively.
//   - The crate is read-only once built. Analyses annotate it externally.
//   - All JSON tags use snake_case
package ir
