package query

// Predicate filters stored findings.
//
// This is a sealed interface - only types in this package implement it.
// The marker method lets the compiler switch over predicates exhaustively.
type Predicate interface {
	predicateNode()
}

// Equals matches findings whose column equals a literal.
//
//	Equals{Field: "severity", Value: "error"}  →  severity = ?
type Equals struct {
	Field string
	Value string
}

func (Equals) predicateNode() {}

// Prefix matches findings whose column starts with a literal, compared
// case-sensitively.
//
//	Prefix{Field: "path", Value: "geo::"}  →  substr(path, 1, ?) = ?
type Prefix struct {
	Field string
	Value string
}

func (Prefix) predicateNode() {}

// In matches findings whose column equals one of the values.
//
//	In{Field: "descr", Values: []string{"struct", "enum"}}  →  descr IN (?, ?)
type In struct {
	Field  string
	Values []string
}

func (In) predicateNode() {}

// And matches findings that satisfy every predicate. An empty And matches
// everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Fields are the finding columns a predicate may reference.
var Fields = []string{"path", "descr", "name", "participle", "severity", "file"}

// All combines non-nil predicates with And. It returns nil when there are
// none, so callers can pass optional filters straight through.
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
