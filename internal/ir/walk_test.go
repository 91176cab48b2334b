package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func variantPath(kind DefKind, id ID) QPath {
	return &ResolvedPath{Path: &Path{Res: DefRes(kind, id)}}
}

func TestNecessaryVariants(t *testing.T) {
	tests := []struct {
		name string
		pat  Pat
		want []ID
	}{
		{
			name: "wildcard",
			pat:  &WildPat{},
			want: nil,
		},
		{
			name: "unit variant",
			pat:  &PathPat{QPath: variantPath(DefCtorVariant, 5)},
			want: []ID{5},
		},
		{
			name: "nested and deduplicated",
			pat: &TupleStructPat{
				QPath: variantPath(DefCtorVariant, 9),
				Elems: []Pat{
					&StructPat{QPath: variantPath(DefVariant, 3)},
					&PathPat{QPath: variantPath(DefCtorVariant, 9)},
				},
			},
			want: []ID{3, 9},
		},
		{
			name: "or pattern is not descended",
			pat: &TuplePat{Elems: []Pat{
				&OrPat{Alts: []Pat{
					&PathPat{QPath: variantPath(DefCtorVariant, 2)},
					&PathPat{QPath: variantPath(DefCtorVariant, 4)},
				}},
				&PathPat{QPath: variantPath(DefCtorVariant, 6)},
			}},
			want: []ID{6},
		},
		{
			name: "struct and constant paths are ignored",
			pat: &TuplePat{Elems: []Pat{
				&StructPat{QPath: variantPath(DefStruct, 8)},
				&PathPat{QPath: variantPath(DefConst, 10)},
				&PathPat{QPath: &TypeRelativePath{Segment: &PathSegment{Name: "A"}}},
			}},
			want: nil,
		},
		{
			name: "external variants are ignored",
			pat:  &TupleStructPat{QPath: variantPath(DefCtorVariant, NoID)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NecessaryVariants(tt.pat)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalkPatStopsWhenToldTo(t *testing.T) {
	inner := &BindingPat{Name: "x"}
	p := &RefPat{Elem: &TuplePat{Elems: []Pat{inner, &WildPat{}}}}

	var seen int
	WalkPat(p, func(p Pat) bool {
		seen++
		_, isTuple := p.(*TuplePat)
		return !isTuple
	})
	assert.Equal(t, 2, seen)
}

func TestStripFields(t *testing.T) {
	base := &PathExpr{QPath: variantPath(DefStatic, 1)}
	e := &FieldExpr{Base: &FieldExpr{Base: base, Name: "a"}, Name: "b"}
	assert.Same(t, base, StripFields(e))
	assert.Same(t, base, StripFields(base))
}

func TestWalkExpr_VisitsNestedBodies(t *testing.T) {
	lit := func(id ID) Expr { return &LitExpr{ExprBase: ExprBase{ID: id}, Value: "1"} }
	e := &BlockExpr{ExprBase: ExprBase{ID: 1}, Block: &Block{
		Stmts: []Stmt{
			&LocalStmt{Pat: &WildPat{}, Init: lit(2)},
			&ItemStmt{Item: 99},
		},
		Tail: &ClosureExpr{ExprBase: ExprBase{ID: 3}, Body: &Body{
			Value: &RepeatExpr{ExprBase: ExprBase{ID: 4}, Elem: lit(5), Count: &AnonConst{ID: 6, Body: &Body{Value: lit(7)}}},
		}},
	}}

	var seen []ID
	WalkExpr(e, func(x Expr) bool {
		seen = append(seen, x.ExprID())
		return true
	})
	assert.Equal(t, []ID{1, 2, 3, 4, 5, 7}, seen)
}

func TestWalkExpr_StopsDescending(t *testing.T) {
	e := &CallExpr{ExprBase: ExprBase{ID: 1}, Callee: &PathExpr{ExprBase: ExprBase{ID: 2}}}
	var seen []ID
	WalkExpr(e, func(x Expr) bool {
		seen = append(seen, x.ExprID())
		return false
	})
	assert.Equal(t, []ID{1}, seen)
}

func TestBodies(t *testing.T) {
	fn := &Item{ID: 1, Kind: &FnItem{Body: &Body{}}}
	required := &TraitItem{ID: 2, Kind: &TraitFn{}}
	variant := &Variant{ID: 3, Disr: &AnonConst{ID: 4, Body: &Body{}}}

	assert.Len(t, Bodies(fn), 1)
	assert.Empty(t, Bodies(required))
	assert.Len(t, Bodies(variant), 1)
}
