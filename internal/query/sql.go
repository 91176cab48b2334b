package query

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Compile converts a predicate to a parameterized SQL condition for the
// findings table. Returns (sql, params, error). A nil predicate compiles to
// "1 = 1".
//
// Field names are checked against Fields before they reach the SQL text;
// values are always passed as parameters.
func Compile(p Predicate) (string, []any, error) {
	if problems := Validate(p); len(problems) > 0 {
		return "", nil, fmt.Errorf("invalid filter: %s", strings.Join(problems, "; "))
	}
	return compile(p)
}

func compile(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case *Equals:
		return compile(*pred)
	case Prefix:
		// No wildcards, case-sensitive.
		return fmt.Sprintf("substr(%s, 1, ?) = ?", pred.Field), []any{utf8.RuneCountInString(pred.Value), pred.Value}, nil
	case *Prefix:
		return compile(*pred)
	case In:
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			params[i] = v
		}
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), params, nil
	case *In:
		return compile(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileAnd joins the parts with AND. Nested conjunctions are
// parenthesized.
func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := compile(pred)
		if err != nil {
			return "", nil, err
		}
		switch pred.(type) {
		case And, *And:
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}
