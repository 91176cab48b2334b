package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name   string
		pred   Predicate
		sql    string
		params []any
	}{
		{
			name: "nil matches everything",
			pred: nil,
			sql:  "1 = 1",
		},
		{
			name:   "equals",
			pred:   Equals{Field: "severity", Value: "error"},
			sql:    "severity = ?",
			params: []any{"error"},
		},
		{
			name:   "pointer equals",
			pred:   &Equals{Field: "descr", Value: "field"},
			sql:    "descr = ?",
			params: []any{"field"},
		},
		{
			name:   "prefix",
			pred:   Prefix{Field: "path", Value: "a_b%"},
			sql:    "substr(path, 1, ?) = ?",
			params: []any{4, "a_b%"},
		},
		{
			name:   "prefix counts characters",
			pred:   &Prefix{Field: "name", Value: "größe"},
			sql:    "substr(name, 1, ?) = ?",
			params: []any{5, "größe"},
		},
		{
			name:   "in",
			pred:   In{Field: "descr", Values: []string{"struct", "enum", "union"}},
			sql:    "descr IN (?, ?, ?)",
			params: []any{"struct", "enum", "union"},
		},
		{
			name: "empty and",
			pred: And{},
			sql:  "1 = 1",
		},
		{
			name: "and with nested and",
			pred: And{Predicates: []Predicate{
				Equals{Field: "participle", Value: "read"},
				And{Predicates: []Predicate{
					Prefix{Field: "path", Value: "Point::"},
					Equals{Field: "severity", Value: "warning"},
				}},
			}},
			sql:    "participle = ? AND (substr(path, 1, ?) = ? AND severity = ?)",
			params: []any{"read", 7, "Point::", "warning"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompileRejectsUnknownField(t *testing.T) {
	_, _, err := Compile(Equals{Field: "id; DROP TABLE findings", Value: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestCompileDeterministic(t *testing.T) {
	pred := And{Predicates: []Predicate{
		In{Field: "severity", Values: []string{"error", "warning"}},
		Prefix{Field: "file", Value: "shapes"},
	}}
	first, firstParams, err := Compile(pred)
	require.NoError(t, err)
	for range 10 {
		sql, params, err := Compile(pred)
		require.NoError(t, err)
		assert.Equal(t, first, sql)
		assert.Equal(t, firstParams, params)
	}
}

func TestAll(t *testing.T) {
	assert.Nil(t, All())
	assert.Nil(t, All(nil, nil))

	eq := Equals{Field: "descr", Value: "function"}
	assert.Equal(t, eq, All(nil, eq))

	pre := Prefix{Field: "path", Value: "geo::"}
	assert.Equal(t, And{Predicates: []Predicate{eq, pre}}, All(eq, nil, pre))
}
