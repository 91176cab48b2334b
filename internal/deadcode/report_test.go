package deadcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
	"github.com/roach88/deadlint/internal/testutil"
)

// fixedLints applies one level everywhere and exempts a fixed set.
type fixedLints struct {
	level  lint.Level
	exempt map[ir.ID]bool
}

func (f fixedLints) Level(ir.ID) lint.Level { return f.level }
func (f fixedLints) IsExempt(id ir.ID) bool { return f.exempt[id] }

// TestReport_EmptyLiveSet tests reporting without marking: every private
// item of the crate root is dead and its children stay silent.
func TestReport_EmptyLiveSet(t *testing.T) {
	b := testutil.NewBuilder(t, "r")
	b.Fn(b.Root(), "f")
	b.Static(b.Root(), "S")
	b.Const(b.Root(), "C")
	b.Union(b.Root(), "U", testutil.FieldSpec{Name: "a"})
	mod := b.Mod(b.Root(), "m")
	b.Fn(mod.ID, "g")

	var got []string
	n := Report(b.C, NewOracle(b.C, newLiveSet()), fixedLints{level: lint.Warn}, SinkFunc(func(d Diagnostic) {
		got = append(got, d.Message())
	}))

	assert.Equal(t, 5, n)
	assert.Equal(t, []string{
		"function is never used: `f`",
		"static is never used: `S`",
		"constant is never used: `C`",
		"union is never used: `U`",
		"function is never used: `g`",
	}, got)
}

// TestReport_AllowedLevelEmitsNothing tests that allow silences findings
// without changing liveness.
func TestReport_AllowedLevelEmitsNothing(t *testing.T) {
	b := testutil.NewBuilder(t, "r")
	b.Fn(b.Root(), "f")

	var sink Collector
	n := Report(b.C, NewOracle(b.C, newLiveSet()), fixedLints{level: lint.Allow}, &sink)
	assert.Zero(t, n)
	assert.Empty(t, sink.Diagnostics)
}

// TestReport_DiagnosticFields tests the rendered diagnostic.
func TestReport_DiagnosticFields(t *testing.T) {
	b := testutil.NewBuilder(t, "r")
	f := b.Fn(b.Root(), "helper")

	var sink Collector
	Report(b.C, NewOracle(b.C, newLiveSet()), fixedLints{level: lint.Forbid}, &sink)

	require.Len(t, sink.Diagnostics, 1)
	d := sink.Diagnostics[0]
	assert.Equal(t, f.ID, d.Decl)
	assert.Equal(t, "function", d.Descr)
	assert.Equal(t, "used", d.Participle)
	assert.Equal(t, Error, d.Severity)
	assert.Equal(t, f.Span.String()+": error: function is never used: `helper`", d.String())
	assert.True(t, sink.HasErrors())
}

// TestReport_ExemptVariantsAndFields tests that exemption silences
// variants and fields even when they are dead.
func TestReport_ExemptVariantsAndFields(t *testing.T) {
	b := testutil.NewBuilder(t, "r")
	e := b.Enum(b.Root(), "E", testutil.VariantSpec{Name: "V", Kind: ir.VariantUnit})
	s := b.Struct(b.Root(), "S", ir.VariantStruct, testutil.FieldSpec{Name: "f"})

	live := newLiveSet()
	live.insert(e.ID)
	live.insert(s.ID)
	exempt := map[ir.ID]bool{
		testutil.Variant(e, "V").ID: true,
		testutil.Fields(s)[0].ID:    true,
	}

	var sink Collector
	Report(b.C, NewOracle(b.C, live), fixedLints{level: lint.Warn, exempt: exempt}, &sink)
	assert.Empty(t, sink.Diagnostics)

	Report(b.C, NewOracle(b.C, live), fixedLints{level: lint.Warn}, &sink)
	assert.Len(t, sink.Diagnostics, 2)
}

// TestOracle_InherentImplKeepsType tests that a type with a live
// associated item is live though never named.
func TestOracle_InherentImplKeepsType(t *testing.T) {
	b := testutil.NewBuilder(t, "r")
	s := b.Struct(b.Root(), "S", ir.VariantUnit)
	impl := b.Impl(b.Root(), s.ID, nil)
	m := b.Method(impl, "m")
	other := b.Struct(b.Root(), "Other", ir.VariantUnit)

	live := newLiveSet()
	live.insert(m.ID)
	oracle := NewOracle(b.C, live)

	assert.True(t, oracle.IsLive(s.ID))
	assert.True(t, oracle.IsLive(m.ID))
	assert.False(t, oracle.IsLive(other.ID))
	assert.False(t, oracle.IsLive(impl.ID))
}
