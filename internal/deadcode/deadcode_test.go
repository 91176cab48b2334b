package deadcode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
	"github.com/roach88/deadlint/internal/testutil"
)

func runCheck(t *testing.T, b *testutil.Builder, opts ...lint.Option) *Result {
	t.Helper()
	res, err := Check(b.C, Options{Lints: lint.New(b.C, opts...)})
	require.NoError(t, err)
	return res
}

func messages(res *Result) []string {
	out := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		out = append(out, d.Message())
	}
	return out
}

func withMain(b *testutil.Builder, stmts ...ir.Expr) *ir.Item {
	main := b.Fn(b.Root(), "main", stmts...)
	b.C.Entry = main.ID
	return main
}

// TestCheck_RootInclusion tests that accessible declarations and the entry
// point are live along with everything they reach.
func TestCheck_RootInclusion(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	helper := b.Fn(b.Root(), "helper")
	inner := b.Fn(b.Root(), "inner")
	api := b.Fn(b.Root(), "api", b.Call(inner.ID))
	b.C.Access.Set(api.ID, ir.AccessPublic)
	b.Fn(b.Root(), "orphan")
	main := withMain(b, b.Call(helper.ID))

	res := runCheck(t, b)

	for _, id := range []ir.ID{main.ID, helper.ID, api.ID, inner.ID} {
		assert.True(t, res.Live.Contains(id), "%s should be live", b.C.DefPath(id))
	}
	assert.Equal(t, []string{"function is never used: `orphan`"}, messages(res))
}

// TestCheck_ImplTraitReachabilityIsNotARoot tests that only the reachable
// access level and above seed the worklist.
func TestCheck_ImplTraitReachabilityIsNotARoot(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	hidden := b.Fn(b.Root(), "hidden")
	b.C.Access.Set(hidden.ID, ir.AccessReachableFromImplTrait)

	res := runCheck(t, b)
	assert.Equal(t, []string{"function is never used: `hidden`"}, messages(res))
}

// TestCheck_CycleSafety tests that mutually recursive private functions do
// not keep each other alive.
func TestCheck_CycleSafety(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	ping := b.Fn(b.Root(), "ping")
	pong := b.Fn(b.Root(), "pong", b.Call(ping.ID))
	b.SetBody(ping, b.Call(pong.ID))
	withMain(b)

	res := runCheck(t, b)

	assert.False(t, res.Live.Contains(ping.ID))
	assert.False(t, res.Live.Contains(pong.ID))
	assert.Equal(t, []string{
		"function is never used: `ping`",
		"function is never used: `pong`",
	}, messages(res))
}

// TestCheck_CycleReachable tests that a reachable cycle terminates and is
// fully live.
func TestCheck_CycleReachable(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	even := b.Fn(b.Root(), "even")
	odd := b.Fn(b.Root(), "odd", b.Call(even.ID))
	b.SetBody(even, b.Call(odd.ID), b.Call(even.ID))
	withMain(b, b.Call(even.ID))

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
	assert.True(t, res.Live.Contains(odd.ID))
}

// TestCheck_SuppressionPropagation tests that an allowed root keeps what it
// calls alive.
func TestCheck_SuppressionPropagation(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	g := b.Fn(b.Root(), "g")
	f := b.Fn(b.Root(), "f", b.Call(g.ID))
	f.Attrs = ir.Attrs{{Name: "allow", Args: []string{"dead_code"}}}

	res := runCheck(t, b)

	assert.True(t, res.Live.Contains(f.ID))
	assert.True(t, res.Live.Contains(g.ID))
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_MarkerAttributes tests that intrinsic markers root a
// declaration without changing its lint level.
func TestCheck_MarkerAttributes(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	callee := b.Fn(b.Root(), "callee")
	handler := b.Fn(b.Root(), "on_panic", b.Call(callee.ID))
	handler.Attrs = ir.Attrs{{Name: "panic_handler"}}
	exported := b.Fn(b.Root(), "ffi_entry")
	exported.Attrs = ir.Attrs{{Name: "export_name", Value: "entry"}}

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
	assert.True(t, res.Live.Contains(callee.ID))
}

// TestCheck_PatternNonConstruction tests that naming a variant in a
// pattern does not construct it.
func TestCheck_PatternNonConstruction(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	e := b.Enum(b.Root(), "Shape",
		testutil.VariantSpec{Name: "Circle", Kind: ir.VariantUnit},
		testutil.VariantSpec{Name: "Square", Kind: ir.VariantUnit},
	)
	circle := testutil.Variant(e, "Circle")
	square := testutil.Variant(e, "Square")
	x := b.Local(b.AdtType(e.ID))
	withMain(b,
		b.Match(x,
			b.Arm(b.CtorPat(circle.ID), nil),
			b.Arm(b.Wild(), nil),
		),
		b.Ref(square.Data.Ctor),
	)

	res := runCheck(t, b)

	assert.True(t, res.Live.Contains(e.ID))
	assert.True(t, res.Live.Contains(square.ID))
	assert.False(t, res.Live.Contains(circle.ID))
	assert.Equal(t, []string{"variant is never constructed: `Circle`"}, messages(res))
}

// TestCheck_ArmBodyDoesNotConstructMatchedVariant tests that building the
// matched variant inside its own arm does not count as a construction.
func TestCheck_ArmBodyDoesNotConstructMatchedVariant(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	e := b.Enum(b.Root(), "State",
		testutil.VariantSpec{Name: "Idle", Kind: ir.VariantTuple, Fields: []testutil.FieldSpec{{}}},
		testutil.VariantSpec{Name: "Busy", Kind: ir.VariantUnit},
	)
	idle := testutil.Variant(e, "Idle")
	busy := testutil.Variant(e, "Busy")
	x := b.Local(b.AdtType(e.ID))
	withMain(b,
		b.Match(x,
			b.Arm(b.CtorPat(idle.ID, b.Bind("n")), b.Call(idle.Data.Ctor, b.Lit())),
			b.Arm(b.Wild(), b.Ref(busy.Data.Ctor)),
		),
	)

	res := runCheck(t, b)

	assert.False(t, res.Live.Contains(idle.ID))
	assert.True(t, res.Live.Contains(busy.ID))
	assert.Equal(t, []string{"variant is never constructed: `Idle`"}, messages(res))
}

// TestCheck_OrPatternVariantsAreNotIgnored tests that alternatives of an
// or-pattern are not required, so building one in the arm body counts.
func TestCheck_OrPatternVariantsAreNotIgnored(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	e := b.Enum(b.Root(), "Dir",
		testutil.VariantSpec{Name: "Up", Kind: ir.VariantUnit},
		testutil.VariantSpec{Name: "Down", Kind: ir.VariantUnit},
	)
	up := testutil.Variant(e, "Up")
	down := testutil.Variant(e, "Down")
	x := b.Local(b.AdtType(e.ID))
	withMain(b,
		b.Match(x,
			b.Arm(b.Or(b.CtorPat(up.ID), b.CtorPat(down.ID)), b.Ref(up.Data.Ctor)),
		),
	)

	res := runCheck(t, b)
	assert.True(t, res.Live.Contains(up.ID))
	assert.Equal(t, []string{"variant is never constructed: `Down`"}, messages(res))
}

// TestCheck_FieldWriteExemption tests that assigning a field is not a read.
func TestCheck_FieldWriteExemption(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Config", ir.VariantStruct,
		testutil.FieldSpec{Name: "written"},
		testutil.FieldSpec{Name: "read"},
	)
	fields := testutil.Fields(s)
	sTy := b.AdtType(s.ID)
	withMain(b,
		b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit(), 1: b.Lit()}),
		b.Assign(b.Field(b.Local(sTy), 0), b.Lit()),
		b.Field(b.Local(sTy), 1),
	)

	res := runCheck(t, b)

	assert.False(t, res.Live.Contains(fields[0].ID))
	assert.True(t, res.Live.Contains(fields[1].ID))
	assert.Equal(t, []string{"field is never read: `written`"}, messages(res))
}

// TestCheck_NestedFieldWrite tests that writing through a chain of fields
// reads none of them.
func TestCheck_NestedFieldWrite(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	inner := b.Struct(b.Root(), "Inner", ir.VariantStruct, testutil.FieldSpec{Name: "value"})
	outer := b.Struct(b.Root(), "Outer", ir.VariantStruct, testutil.FieldSpec{Name: "inner", Type: b.AdtType(inner.ID)})
	base := b.Field(b.Local(b.AdtType(outer.ID)), 0)
	b.C.Typeck.SetType(base.ID, b.AdtType(inner.ID))
	withMain(b,
		b.StructLit(outer.ID, outer.ID, map[int]ir.Expr{0: b.StructLit(inner.ID, inner.ID, map[int]ir.Expr{0: b.Lit()})}),
		b.Assign(b.Field(base, 0), b.Lit()),
	)

	res := runCheck(t, b)
	assert.Equal(t, []string{
		"field is never read: `value`",
		"field is never read: `inner`",
	}, messages(res))
}

// TestCheck_CompoundAssignmentReads tests that `x.f += v` reads f.
func TestCheck_CompoundAssignmentReads(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Counter", ir.VariantStruct, testutil.FieldSpec{Name: "hits"})
	withMain(b,
		b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit()}),
		b.AssignOp(b.Field(b.Local(b.AdtType(s.ID)), 0), b.Lit()),
	)

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_FieldAccessThroughReference tests that auto-deref reaches the
// aggregate behind a reference.
func TestCheck_FieldAccessThroughReference(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Point", ir.VariantStruct, testutil.FieldSpec{Name: "x"})
	withMain(b,
		b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit()}),
		b.Field(b.Local(&ir.RefType{Elem: b.AdtType(s.ID)}), 0),
	)

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_TupleFieldAccess tests that tuple projections mark nothing and
// do not fail.
func TestCheck_TupleFieldAccess(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	withMain(b, b.Field(b.Local(&ir.TupleType{Elems: []ir.Type{&ir.PrimType{Name: "i32"}}}), 0))

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_UnionExemption tests that a literal writing one union field
// keeps every field of the union alive.
func TestCheck_UnionExemption(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	u := b.Union(b.Root(), "Bits",
		testutil.FieldSpec{Name: "a"},
		testutil.FieldSpec{Name: "b"},
	)
	withMain(b, b.StructLit(u.ID, u.ID, map[int]ir.Expr{0: b.Lit()}))

	res := runCheck(t, b)

	for _, f := range testutil.Fields(u) {
		assert.True(t, res.Live.Contains(f.ID), "field %s", f.Name)
	}
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_SingleFieldUnionIsNotExempt tests the more-than-one-field rule.
func TestCheck_SingleFieldUnionIsNotExempt(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	u := b.Union(b.Root(), "Only", testutil.FieldSpec{Name: "a"})
	withMain(b, b.StructLit(u.ID, u.ID, map[int]ir.Expr{0: b.Lit()}))

	res := runCheck(t, b)
	assert.Equal(t, []string{"field is never read: `a`"}, messages(res))
}

// TestCheck_UnderscoreSuppression tests that leading underscores silence
// findings whatever the liveness.
func TestCheck_UnderscoreSuppression(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	b.Fn(b.Root(), "_scratch")
	b.Struct(b.Root(), "_Unused", ir.VariantUnit)
	s := b.Struct(b.Root(), "Kept", ir.VariantStruct, testutil.FieldSpec{Name: "_pad"})
	withMain(b, b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit()}))

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_ReprCForcesFields tests that a C layout keeps every field.
func TestCheck_ReprCForcesFields(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Header", ir.VariantStruct,
		testutil.FieldSpec{Name: "magic"},
		testutil.FieldSpec{Name: "len"},
	)
	s.Attrs = ir.Attrs{{Name: "repr", Args: []string{"C"}}}
	withMain(b, b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit(), 1: b.Lit()}))

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)

	// Without the layout attribute both fields are unread.
	s.Attrs = nil
	res = runCheck(t, b)
	assert.Len(t, res.Diagnostics, 2)
}

// TestCheck_PublicFieldsAndPublicEnums tests visibility-forced field
// liveness.
func TestCheck_PublicFieldsAndPublicEnums(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Opts", ir.VariantStruct,
		testutil.FieldSpec{Name: "shown", Pub: true},
		testutil.FieldSpec{Name: "hidden"},
	)
	e := b.Enum(b.Root(), "Msg", testutil.VariantSpec{
		Name:   "Text",
		Fields: []testutil.FieldSpec{{Name: "body"}},
	})
	e.Vis = ir.VisPublic
	text := testutil.Variant(e, "Text")
	withMain(b,
		b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit(), 1: b.Lit()}),
		b.StructLit(text.ID, e.ID, map[int]ir.Expr{0: b.Lit()}),
	)

	res := runCheck(t, b)
	assert.Equal(t, []string{"field is never read: `hidden`"}, messages(res))
}

// TestCheck_StructPatternReadsFields tests that destructuring reads the
// named fields but not the wildcard ones.
func TestCheck_StructPatternReadsFields(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Pair", ir.VariantStruct,
		testutil.FieldSpec{Name: "left"},
		testutil.FieldSpec{Name: "right"},
	)
	x := b.Local(b.AdtType(s.ID))
	withMain(b,
		b.StructLit(s.ID, s.ID, map[int]ir.Expr{0: b.Lit(), 1: b.Lit()}),
		b.Match(x, b.Arm(b.StructPat(s.ID, s.ID, map[int]ir.Pat{0: b.Bind("l"), 1: b.Wild()}), nil)),
	)

	res := runCheck(t, b)
	assert.Equal(t, []string{"field is never read: `right`"}, messages(res))
}

// TestCheck_ConstInPattern tests that constants named in patterns are used.
func TestCheck_ConstInPattern(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	limit := b.Const(b.Root(), "LIMIT")
	x := b.Local(&ir.PrimType{Name: "i32"})
	pat := &ir.PathPat{PatBase: ir.PatBase{ID: b.C.NewID()}, QPath: b.QPath(limit.ID)}
	withMain(b, b.Match(x, b.Arm(pat, nil), b.Arm(b.Wild(), nil)))

	res := runCheck(t, b)
	assert.True(t, res.Live.Contains(limit.ID))
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_StructConstructorAlias tests that calling a tuple struct's
// constructor makes the struct live.
func TestCheck_StructConstructorAlias(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Meters", ir.VariantTuple, testutil.FieldSpec{})
	unit := b.Struct(b.Root(), "Marker", ir.VariantUnit)
	ctor := s.Kind.(*ir.StructItem).Data.Ctor
	withMain(b, b.Call(ctor, b.Lit()))

	res := runCheck(t, b)

	assert.True(t, res.Live.Contains(s.ID))
	assert.True(t, res.Live.Contains(ctor))
	assert.False(t, res.Live.Contains(unit.ID))
	assert.Equal(t, []string{"struct is never constructed: `Marker`"}, messages(res))
}

// TestCheck_TypeAliasKeepsTarget tests that a used alias explores its
// definition.
func TestCheck_TypeAliasKeepsTarget(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	target := b.Struct(b.Root(), "Inner", ir.VariantUnit)
	alias := b.TyAlias(b.Root(), "Alias", target.ID)
	b.TyAlias(b.Root(), "Unused", target.ID)
	withMain(b, b.Ref(alias.ID))

	res := runCheck(t, b)
	assert.True(t, res.Live.Contains(target.ID))
	assert.Equal(t, []string{"type alias is never used: `Unused`"}, messages(res))
}

// TestCheck_AnonConstIsLive tests that array lengths and repeat counts are
// live and explored.
func TestCheck_AnonConstIsLive(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	n := b.Const(b.Root(), "N")
	count := &ir.AnonConst{ID: b.C.NewID(), Body: &ir.Body{Value: b.Ref(n.ID)}}
	withMain(b, &ir.RepeatExpr{ExprBase: ir.ExprBase{ID: b.C.NewID()}, Elem: b.Lit(), Count: count})

	res := runCheck(t, b)
	assert.True(t, res.Live.Contains(count.ID))
	assert.True(t, res.Live.Contains(n.ID))
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_MethodCalls tests that method calls use the method the type
// checker resolved, and that types are live through live inherent items.
func TestCheck_MethodCalls(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Widget", ir.VariantUnit)
	impl := b.Impl(b.Root(), s.ID, nil)
	draw := b.Method(impl, "draw")
	b.Method(impl, "resize")
	b.AssocConst(impl, "SIZE")
	withMain(b, b.MethodCall(b.Local(b.AdtType(s.ID)), draw.ID))

	res := runCheck(t, b)

	assert.True(t, res.Live.Contains(draw.ID))
	assert.False(t, res.Live.Contains(s.ID), "the type is never named")
	assert.Equal(t, []string{
		"associated function is never used: `resize`",
		"associated constant is never used: `SIZE`",
	}, messages(res))
}

// TestCheck_TypeRelativePath tests `Type::assoc` paths resolved by the type
// checker.
func TestCheck_TypeRelativePath(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Point", ir.VariantStruct)
	impl := b.Impl(b.Root(), s.ID, nil)
	origin := b.Method(impl, "origin")
	withMain(b, &ir.CallExpr{ExprBase: ir.ExprBase{ID: b.C.NewID()}, Callee: b.TypeRelative(s.ID, origin.ID)})

	res := runCheck(t, b)
	assert.True(t, res.Live.Contains(origin.ID))
	assert.True(t, res.Live.Contains(s.ID))
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_TraitImplMembersNeverReported tests that trait impls and their
// members are roots, while their bodies still reach other code.
func TestCheck_TraitImplMembersNeverReported(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Handle", ir.VariantUnit)
	helper := b.Fn(b.Root(), "release")
	impl := b.Impl(b.Root(), s.ID, testutil.ExternTrait("Drop"))
	drop := b.Method(impl, "drop", b.Call(helper.ID))

	res := runCheck(t, b)

	assert.True(t, res.Live.Contains(impl.ID))
	assert.True(t, res.Live.Contains(drop.ID))
	assert.True(t, res.Live.Contains(helper.ID))
	assert.True(t, res.Live.Contains(s.ID), "the impl names its self type")
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_TraitItems tests that trait members are never reported and
// only exempt provided members are roots.
func TestCheck_TraitItems(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	used := b.Fn(b.Root(), "used_by_default")
	unused := b.Fn(b.Root(), "unused_by_default")
	tr := b.Trait(b.Root(), "Render")
	tr.Vis = ir.VisPublic
	b.C.Access.Set(tr.ID, ir.AccessPublic)
	b.TraitMethod(tr, "required", false)
	kept := b.TraitMethod(tr, "kept", true, b.Call(used.ID))
	kept.Attrs = ir.Attrs{{Name: "allow", Args: []string{"dead_code"}}}
	b.TraitMethod(tr, "plain", true, b.Call(unused.ID))

	res := runCheck(t, b)
	assert.Equal(t, []string{"function is never used: `unused_by_default`"}, messages(res))
}

// TestCheck_ForeignItems tests extern declarations.
func TestCheck_ForeignItems(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	mod := b.ForeignMod(b.Root())
	called := b.ForeignFn(mod, "strlen")
	b.ForeignFn(mod, "abort")
	kept := b.ForeignFn(mod, "kept")
	kept.Attrs = ir.Attrs{{Name: "used"}}
	withMain(b, b.Call(called.ID))

	res := runCheck(t, b)
	assert.Equal(t, []string{"function is never used: `abort`"}, messages(res))
}

// TestCheck_ExemptEnumSeedsVariants tests that an allowed enum keeps all
// of its variants.
func TestCheck_ExemptEnumSeedsVariants(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	e := b.Enum(b.Root(), "Code",
		testutil.VariantSpec{Name: "A", Kind: ir.VariantUnit},
		testutil.VariantSpec{Name: "B", Kind: ir.VariantUnit},
	)
	e.Attrs = ir.Attrs{{Name: "allow", Args: []string{"dead_code"}}}

	res := runCheck(t, b)
	for _, v := range e.Kind.(*ir.EnumItem).Variants {
		assert.True(t, res.Live.Contains(v.ID), v.Name)
	}
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_PhantomAndPositionalFields tests the field exemptions.
func TestCheck_PhantomAndPositionalFields(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	tuple := b.Struct(b.Root(), "Wrapper", ir.VariantTuple, testutil.FieldSpec{})
	tagged := b.Struct(b.Root(), "Tagged", ir.VariantStruct,
		testutil.FieldSpec{Name: "marker", Type: &ir.AdtType{Path: ir.PhantomDataPath}},
		testutil.FieldSpec{Name: "allowed", Attrs: ir.Attrs{{Name: "allow", Args: []string{"dead_code"}}}},
	)
	withMain(b,
		b.Call(tuple.Kind.(*ir.StructItem).Data.Ctor, b.Lit()),
		b.StructLit(tagged.ID, tagged.ID, map[int]ir.Expr{0: b.Lit(), 1: b.Lit()}),
	)

	res := runCheck(t, b)
	assert.Empty(t, res.Diagnostics)
}

// TestCheck_DeadItemShortCircuits tests that children of a dead item are
// not reported on their own.
func TestCheck_DeadItemShortCircuits(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	outer := b.Fn(b.Root(), "outer")
	b.Fn(outer.ID, "inner")
	b.Enum(b.Root(), "Never", testutil.VariantSpec{Name: "X", Kind: ir.VariantUnit})
	b.Struct(b.Root(), "Gone", ir.VariantStruct, testutil.FieldSpec{Name: "f"})

	live := b.Fn(b.Root(), "live")
	b.Fn(live.ID, "nested_unused")
	withMain(b, b.Call(live.ID))

	res := runCheck(t, b)
	assert.Equal(t, []string{
		"function is never used: `outer`",
		"enum is never used: `Never`",
		"struct is never constructed: `Gone`",
		"function is never used: `nested_unused`",
	}, messages(res))
}

// TestCheck_SelfTypeResolution tests that `Self` marks the impl it names.
func TestCheck_SelfTypeResolution(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Node", ir.VariantUnit)
	impl := b.Impl(b.Root(), s.ID, nil)
	self := &ir.PathExpr{ExprBase: ir.ExprBase{ID: b.C.NewID()}, QPath: &ir.ResolvedPath{Path: &ir.Path{
		Res:      ir.Res{Kind: ir.ResSelfTy, Impl: impl.ID},
		Segments: []*ir.PathSegment{{Name: "Self"}},
	}}}
	withMain(b, self)

	res := runCheck(t, b)
	assert.True(t, res.Live.Contains(impl.ID))
	assert.True(t, res.Live.Contains(s.ID))
}

// TestCheck_LintLevels tests that levels decide severity and silence.
func TestCheck_LintLevels(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	denied := b.Fn(b.Root(), "denied")
	denied.Attrs = ir.Attrs{{Name: "deny", Args: []string{"dead_code"}}}
	b.Fn(b.Root(), "warned")

	res := runCheck(t, b)
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, Error, res.Diagnostics[0].Severity)
	assert.Equal(t, Warning, res.Diagnostics[1].Severity)
	assert.True(t, res.HasErrors())

	res = runCheck(t, b, lint.WithDefault(lint.Allow))
	assert.Len(t, res.Diagnostics, 1, "the explicit deny still applies")
}

// TestCheck_UnresolvedMethodIsInternalError tests the only fatal path.
func TestCheck_UnresolvedMethodIsInternalError(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	withMain(b, b.MethodCall(b.Local(&ir.PrimType{Name: "i32"}), ir.NoID))

	res, err := Check(b.C, Options{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsInternalError(err))
	assert.Contains(t, err.Error(), string(ErrCodeUnresolvedMethod))
}

// TestCheck_OracleIdempotence tests that liveness queries are stable.
func TestCheck_OracleIdempotence(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Cache", ir.VariantUnit)
	impl := b.Impl(b.Root(), s.ID, nil)
	get := b.Method(impl, "get")
	dead := b.Fn(b.Root(), "dead")
	withMain(b, b.MethodCall(b.Local(b.AdtType(s.ID)), get.ID))

	worklist, aliases := Seed(b.C, lint.New(b.C))
	live, err := Mark(b.C, b.C.Typeck, worklist, aliases)
	require.NoError(t, err)
	oracle := NewOracle(b.C, live)

	before := live.IDs()
	for i := 0; i < 3; i++ {
		assert.True(t, oracle.IsLive(s.ID))
		assert.True(t, oracle.IsLive(get.ID))
		assert.False(t, oracle.IsLive(dead.ID))
	}
	assert.Equal(t, before, live.IDs(), "queries do not mutate the live set")
}

// TestCheck_ConcurrentRunsShareCrate tests that runs on one crate from
// several goroutines agree and leave the crate untouched.
func TestCheck_ConcurrentRunsShareCrate(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	s := b.Struct(b.Root(), "Cache", ir.VariantUnit)
	impl := b.Impl(b.Root(), s.ID, nil)
	get := b.Method(impl, "get")
	b.Method(impl, "evict")
	b.Fn(b.Root(), "dead")
	withMain(b, b.MethodCall(b.Local(b.AdtType(s.ID)), get.ID))

	const runs = 8
	results := make([]*Result, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := range runs {
		wg.Go(func() {
			results[i], errs[i] = Check(b.C, Options{})
		})
	}
	wg.Wait()

	for i := range runs {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{
			"associated function is never used: `evict`",
			"function is never used: `dead`",
		}, messages(results[i]))
		assert.Equal(t, results[0].Live.IDs(), results[i].Live.IDs())
	}
}

// TestCheck_TypeInfoOverride tests that an injected TypeInfo replaces the
// crate's own results.
func TestCheck_TypeInfoOverride(t *testing.T) {
	b := testutil.NewBuilder(t, "demo")
	target := b.Fn(b.Root(), "target")
	call := b.MethodCall(b.Local(&ir.PrimType{Name: "i32"}), ir.NoID)
	withMain(b, call)

	info := ir.NewTypeckResults()
	info.SetTypeDependentDef(call.ID, ir.DefRes(ir.DefFn, target.ID))

	res, err := Check(b.C, Options{TypeInfo: info})
	require.NoError(t, err)
	assert.True(t, res.Live.Contains(target.ID))
}
