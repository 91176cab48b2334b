package query

import (
	"fmt"
	"slices"
)

// Validate checks that a predicate only references known columns and has
// no empty parts. It returns every problem found; nil means valid. A nil
// predicate is valid and matches everything.
func Validate(p Predicate) []string {
	v := &validator{}
	v.predicate(p, "")
	return v.problems
}

type validator struct {
	problems []string
}

func (v *validator) add(at, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if at != "" {
		msg = at + ": " + msg
	}
	v.problems = append(v.problems, msg)
}

func (v *validator) field(at, name string) {
	if !slices.Contains(Fields, name) {
		v.add(at, "unknown field %q", name)
	}
}

func (v *validator) predicate(p Predicate, at string) {
	switch pred := p.(type) {
	case nil:
		if at != "" {
			v.add(at, "nil predicate")
		}
	case Equals:
		v.field(at, pred.Field)
	case *Equals:
		v.field(at, pred.Field)
	case Prefix:
		v.prefix(at, pred)
	case *Prefix:
		v.prefix(at, *pred)
	case In:
		v.in(at, pred)
	case *In:
		v.in(at, *pred)
	case And:
		v.and(at, pred)
	case *And:
		v.and(at, *pred)
	default:
		v.add(at, "unsupported predicate type %T", p)
	}
}

func (v *validator) prefix(at string, p Prefix) {
	v.field(at, p.Field)
	if p.Value == "" {
		v.add(at, "empty prefix for %s matches everything", p.Field)
	}
}

func (v *validator) in(at string, p In) {
	v.field(at, p.Field)
	if len(p.Values) == 0 {
		v.add(at, "IN on %s needs at least one value", p.Field)
	}
}

func (v *validator) and(at string, p And) {
	for i, sub := range p.Predicates {
		v.predicate(sub, fmt.Sprintf("%sand[%d]", prefixed(at), i))
	}
}

func prefixed(at string) string {
	if at == "" {
		return ""
	}
	return at + "."
}
