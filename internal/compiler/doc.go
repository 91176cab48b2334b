// Package compiler lowers crate descriptions written in CUE into a
// resolved, type-checked ir.Crate.
//
// A crate lives under the top-level `crate` field:
//
//	crate: shapes: {
//		entry?: "main"         // path of the entry fn; "" for a library
//		attrs?: ["allow(dead_code)"]
//		items: {
//			Point: struct: fields: {x: "i32", y: "i32"}
//			"impl Point": impl: {type: "Point", items: {...}}
//			main: fn: body: [{call: "Point::new"}]
//		}
//	}
//
// Every declaration has exactly one kind key (fn, const, static, type,
// struct, union, enum, impl, trait, extern, mod) and optional `pub`,
// `attrs` and `generics`.
//
// # Bodies
//
// Bodies are lists of statements whose last entry is the tail expression.
// Scalars are literals, strings are paths (locals first), lists are blocks
// and structs carry exactly one expression key such as call, method, field,
// struct, match or if_let. `{local: pat, init?}` introduces a binding.
//
// # Phases
//
// Compilation runs in four passes so declaration order never matters:
//
//  1. Collect declares every item in its module or body scope
//  2. Headers lower impl self types, impl traits and trait bounds
//  3. Signatures lower field types, fn signatures and generic bounds
//  4. Bodies lower expressions and record their types, resolutions and
//     field indices in the crate's TypeckResults
//
// Accessibility is computed last from `pub` and the public signatures.
//
// # Errors
//
// Resolution failures are CompileErrors carrying the CUE source position.
// Validate checks the structural rules of a finished crate and reports
// every violation with an E1xx code.
package compiler
