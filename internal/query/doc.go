// Package query describes filters over stored findings and compiles them to
// parameterized SQLite.
//
// A filter is a tree of predicates over the finding columns listed in
// Fields:
//
//	query.And{Predicates: []query.Predicate{
//		query.Equals{Field: "descr", Value: "field"},
//		query.Prefix{Field: "path", Value: "Point::"},
//	}}
//
// compiles to
//
//	descr = ? AND substr(path, 1, ?) = ?
//
// with parameters ["field", 7, "Point::"]. Values are never interpolated.
// Validate reports every problem in a filter before it reaches the database.
package query
