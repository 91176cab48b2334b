package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type foreign struct{}

func (foreign) predicateNode() {}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(nil))
	assert.Empty(t, Validate(And{}))
	for _, f := range Fields {
		assert.Empty(t, Validate(Equals{Field: f, Value: "x"}), f)
	}
}

func TestValidateProblems(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want []string
	}{
		{"unknown field", Equals{Field: "id"}, []string{`unknown field "id"`}},
		{"empty prefix", Prefix{Field: "path"}, []string{"empty prefix for path matches everything"}},
		{"empty in", &In{Field: "descr"}, []string{"IN on descr needs at least one value"}},
		{"foreign type", foreign{}, []string{"unsupported predicate type query.foreign"}},
		{
			"nested",
			And{Predicates: []Predicate{
				Equals{Field: "path", Value: "a"},
				nil,
				And{Predicates: []Predicate{In{Field: "line", Values: []string{"1"}}}},
			}},
			[]string{
				"and[1]: nil predicate",
				`and[2].and[0]: unknown field "line"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.pred))
		})
	}
}
