package compiler

import (
	"fmt"
	"strconv"

	"github.com/roach88/deadlint/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Crate shape errors (E101-E109)
	ErrRootNotModule    = "E101" // crate root is not a module
	ErrEntryNotFn       = "E102" // entry is not a local function
	ErrCtorMismatch     = "E103" // constructor missing or pointing elsewhere
	ErrMemberParent     = "E104" // impl or trait member under the wrong parent
	ErrDanglingID       = "E105" // member list names an unknown node
	ErrDuplicateField   = "E106" // duplicate field name in one variant
	ErrInvalidName      = "E107" // empty declaration name
	ErrFieldTypeMissing = "E108" // field without a semantic type

	// Body errors (E110-E119)
	ErrUnresolvedMethod = "E110" // method call without a type-dependent def
	ErrFieldIndexRange  = "E111" // field index outside the ADT's fields
)

// ValidationError represents a crate validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a crate for the structural rules the analysis relies on.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch c := v.(type) {
	case *ir.Crate:
		return validateCrate(c)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

type validator struct {
	c    *ir.Crate
	errs []ValidationError
}

func (v *validator) add(code string, id ir.ID, line int, format string, args ...any) {
	field := id.String()
	if path := v.c.DefPath(id); path != "" {
		field = path
	}
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Line:    line,
	})
}

func validateCrate(c *ir.Crate) []ValidationError {
	v := &validator{c: c}

	// E101: root must be a module
	if root, ok := c.Item(c.Root); !ok {
		v.add(ErrRootNotModule, c.Root, 0, "crate root is missing")
	} else if _, ok := root.Kind.(*ir.ModItem); !ok {
		v.add(ErrRootNotModule, c.Root, root.Span.Line, "crate root is a %s, not a module", c.Descr(c.Root))
	}

	// E102: entry must be a local function
	if c.Entry.IsValid() {
		isFn := false
		if it, ok := c.Item(c.Entry); ok {
			_, isFn = it.Kind.(*ir.FnItem)
		}
		if !isFn {
			v.add(ErrEntryNotFn, c.Entry, 0, "entry point is not a function of this crate")
		}
	}

	for _, id := range c.IDs() {
		n, _ := c.Node(id)
		v.node(n)
		for _, b := range ir.Bodies(n) {
			v.body(b)
		}
	}
	return v.errs
}

func (v *validator) node(n ir.Node) {
	c := v.c
	if d, ok := n.(ir.Decl); ok && d.DeclName() == "" {
		v.add(ErrInvalidName, n.NodeID(), d.DeclSpan().Line, "%s has an empty name", c.Descr(n.NodeID()))
	}

	switch n := n.(type) {
	case *ir.Item:
		switch k := n.Kind.(type) {
		case *ir.StructItem:
			v.variantData(n.ID, n.Span.Line, k.Data)
		case *ir.UnionItem:
			v.variantData(n.ID, n.Span.Line, k.Data)
		case *ir.EnumItem:
			for _, vr := range k.Variants {
				v.member(n.ID, vr.ID, n.Span.Line)
			}
		case *ir.ImplBlock:
			for _, id := range k.Items {
				v.member(n.ID, id, n.Span.Line)
			}
		case *ir.TraitDef:
			for _, id := range k.Items {
				v.member(n.ID, id, n.Span.Line)
			}
		case *ir.ForeignMod:
			for _, id := range k.Items {
				v.member(n.ID, id, n.Span.Line)
			}
		}
	case *ir.Variant:
		v.variantData(n.ID, n.Span.Line, n.Data)
	case *ir.ImplItem:
		// E104: members point back to their impl
		if c.Parent(n.ID) != n.Impl {
			v.add(ErrMemberParent, n.ID, n.Span.Line, "impl member is registered under %s but belongs to %s", c.Parent(n.ID), n.Impl)
		}
	case *ir.TraitItem:
		if c.Parent(n.ID) != n.Trait {
			v.add(ErrMemberParent, n.ID, n.Span.Line, "trait member is registered under %s but belongs to %s", c.Parent(n.ID), n.Trait)
		}
	case *ir.Ctor:
		if c.Parent(n.ID) != n.Of {
			v.add(ErrCtorMismatch, n.ID, 0, "constructor is registered under %s but builds %s", c.Parent(n.ID), n.Of)
		}
	}
}

// member checks that a listed member exists under its container.
func (v *validator) member(owner, id ir.ID, line int) {
	if !v.c.Contains(id) {
		v.add(ErrDanglingID, owner, line, "member %s is not a node of the crate", id)
		return
	}
	if p := v.c.Parent(id); p != owner {
		v.add(ErrMemberParent, id, line, "member is registered under %s instead of %s", p, owner)
	}
}

func (v *validator) variantData(owner ir.ID, line int, d *ir.VariantData) {
	if d == nil {
		v.add(ErrCtorMismatch, owner, line, "missing variant data")
		return
	}

	// E103: tuple and unit shapes have a constructor building the owner
	switch {
	case d.Kind == ir.VariantStruct && d.Ctor.IsValid():
		v.add(ErrCtorMismatch, owner, line, "braced %s has a constructor", v.c.Descr(owner))
	case d.Kind != ir.VariantStruct && !d.Ctor.IsValid():
		v.add(ErrCtorMismatch, owner, line, "tuple or unit %s has no constructor", v.c.Descr(owner))
	case d.Ctor.IsValid():
		n, ok := v.c.Node(d.Ctor)
		if ctor, isCtor := n.(*ir.Ctor); !ok || !isCtor || ctor.Of != owner {
			v.add(ErrCtorMismatch, owner, line, "constructor %s does not build this %s", d.Ctor, v.c.Descr(owner))
		}
	}

	seen := map[string]bool{}
	for i, f := range d.Fields {
		// E106: duplicate field names
		if seen[f.Name] {
			v.add(ErrDuplicateField, owner, f.Span.Line, "duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Positional && f.Name != strconv.Itoa(i) {
			v.add(ErrDuplicateField, owner, f.Span.Line, "positional field %d is named %q", i, f.Name)
		}
		if f.Type == nil {
			v.add(ErrFieldTypeMissing, f.ID, f.Span.Line, "field %q has no type", f.Name)
		}
		v.member(owner, f.ID, f.Span.Line)
	}
}

// body checks the type-checker tables a body's expressions depend on.
func (v *validator) body(b *ir.Body) {
	tc := v.c.Typeck
	ir.WalkBody(b, func(e ir.Expr) bool {
		switch e := e.(type) {
		case *ir.MethodCallExpr:
			// E110: every method call is resolved
			if res, ok := tc.TypeDependentDef(e.ID); !ok || res.Kind != ir.ResDef {
				v.add(ErrUnresolvedMethod, e.ID, e.Span.Line, "method %q has no resolution", e.Segment.Name)
			}
		case *ir.FieldExpr:
			// E111: field indices stay within the ADT
			v.fieldIndex(e)
		}
		return true
	})
}

func (v *validator) fieldIndex(e *ir.FieldExpr) {
	tc := v.c.Typeck
	index, ok := tc.FieldIndex(e.ID)
	if !ok {
		return
	}
	ty, ok := tc.ExprTypeAdjusted(e.Base.ExprID())
	if !ok {
		return
	}
	adt, ok := ir.PeelRefs(ty).(*ir.AdtType)
	if !ok || !adt.Def.IsValid() {
		return
	}
	it, ok := v.c.Item(adt.Def)
	if !ok {
		return
	}
	var n int
	switch k := it.Kind.(type) {
	case *ir.StructItem:
		n = len(k.Data.Fields)
	case *ir.UnionItem:
		n = len(k.Data.Fields)
	default:
		return
	}
	if index < 0 || index >= n {
		v.add(ErrFieldIndexRange, e.ID, e.Span.Line, "field %q has index %d but %s has %d fields", e.Name, index, adt.Path, n)
	}
}
