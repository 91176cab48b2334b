// Package deadcode finds declarations that are never used.
//
// The analysis runs in three phases over a type-checked ir.Crate:
//
//  1. Seed collects the roots: declarations accessible from outside the
//     crate, the entry point, trait impls and everything exempt by lint
//     level or marker attribute.
//  2. Mark runs a worklist fixpoint from the roots, visiting bodies,
//     signatures and types and marking every declaration they reference.
//  3. Report walks all declarations and emits a Diagnostic for each one the
//     Oracle does not consider live.
//
// Check runs all three. The phases share nothing but their return values,
// so the reporter can only ever see a finished live set.
//
// Uses are classified the way the type checker sees them: a method call
// uses the method it resolved to, reading `x.f` uses field f but writing
// `x.f = v` does not, and naming a variant in a pattern does not construct
// it.
package deadcode
