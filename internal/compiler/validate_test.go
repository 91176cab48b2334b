package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deadlint/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a crate")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
	assert.Contains(t, errs[0].Message, "string")
}

func TestValidateEmptyCrate(t *testing.T) {
	c := ir.NewCrate("empty")
	assert.Empty(t, Validate(c))
}

func TestValidateEntryAndCtor(t *testing.T) {
	c := ir.NewCrate("broken")
	s := &ir.Item{
		ID:   c.NewID(),
		Name: "S",
		Kind: &ir.StructItem{Data: &ir.VariantData{Kind: ir.VariantTuple}},
	}
	require.NoError(t, c.Add(s, c.Root))
	c.Entry = s.ID

	errs := Validate(c)
	assert.Equal(t, []string{ErrEntryNotFn, ErrCtorMismatch}, codes(errs))
	assert.Equal(t, "S", errs[1].Field)
	assert.Equal(t, "[E103] S: tuple or unit struct has no constructor", errs[1].Error())
}

func TestValidateMissingEntry(t *testing.T) {
	c := ir.NewCrate("broken")
	c.Entry = ir.ID(999)

	errs := Validate(c)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEntryNotFn, errs[0].Code)
}

func TestValidateDuplicateField(t *testing.T) {
	c := ir.NewCrate("broken")
	data := &ir.VariantData{Kind: ir.VariantStruct}
	s := &ir.Item{ID: c.NewID(), Name: "S", Kind: &ir.StructItem{Data: data}}
	require.NoError(t, c.Add(s, c.Root))
	for range 2 {
		f := &ir.Field{ID: c.NewID(), Name: "x", Type: &ir.PrimType{Name: "i32"}}
		require.NoError(t, c.Add(f, s.ID))
		data.Fields = append(data.Fields, f)
	}

	assert.Equal(t, []string{ErrDuplicateField}, codes(Validate(c)))
}

func TestValidateFieldTypeMissing(t *testing.T) {
	c := ir.NewCrate("broken")
	f := &ir.Field{ID: c.NewID(), Name: "x"}
	s := &ir.Item{ID: c.NewID(), Name: "S", Kind: &ir.StructItem{Data: &ir.VariantData{
		Kind:   ir.VariantStruct,
		Fields: []*ir.Field{f},
	}}}
	require.NoError(t, c.Add(s, c.Root))
	require.NoError(t, c.Add(f, s.ID))

	errs := Validate(c)
	assert.Equal(t, []string{ErrFieldTypeMissing}, codes(errs))
	assert.Equal(t, "S::x", errs[0].Field)
}

func TestValidateDanglingMember(t *testing.T) {
	c := ir.NewCrate("broken")
	impl := &ir.Item{ID: c.NewID(), Name: "impl S", Kind: &ir.ImplBlock{Items: []ir.ID{ir.ID(500)}}}
	require.NoError(t, c.Add(impl, c.Root))

	assert.Equal(t, []string{ErrDanglingID}, codes(Validate(c)))
}

func TestValidateEmptyName(t *testing.T) {
	c := ir.NewCrate("broken")
	f := &ir.Item{ID: c.NewID(), Kind: &ir.FnItem{Sig: &ir.FnSig{}}}
	require.NoError(t, c.Add(f, c.Root))

	assert.Equal(t, []string{ErrInvalidName}, codes(Validate(c)))
}

func TestValidateUnresolvedMethod(t *testing.T) {
	c := ir.NewCrate("broken")
	call := &ir.MethodCallExpr{
		ExprBase: ir.ExprBase{ID: c.NewID()},
		Segment:  &ir.PathSegment{Name: "go"},
		Receiver: &ir.LitExpr{ExprBase: ir.ExprBase{ID: c.NewID()}},
	}
	f := &ir.Item{ID: c.NewID(), Name: "f", Kind: &ir.FnItem{
		Sig:  &ir.FnSig{},
		Body: &ir.Body{Value: call},
	}}
	require.NoError(t, c.Add(f, c.Root))

	errs := Validate(c)
	assert.Equal(t, []string{ErrUnresolvedMethod}, codes(errs))
	assert.Contains(t, errs[0].Message, `"go"`)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "main", Message: "bad", Code: ErrEntryNotFn, Line: 4}
	assert.Equal(t, "[E102] line 4: main: bad", e.Error())

	e.Line = 0
	assert.Equal(t, "[E102] main: bad", e.Error())
}
