package ir

import "strings"

// Ty is a type as written in source (a signature, a field, a cast).
type Ty struct {
	ID   ID
	Span Span
	Kind TyKind
}

// TyKind is the sealed sum of written type shapes.
type TyKind interface {
	tyKind()
}

type (
	// PathTy is a named type: `Point`, `Self`, `u8`, `Vec<T>`.
	PathTy struct{ QPath QPath }
	// TupleTy is `(A, B)`; the empty tuple is unit.
	TupleTy struct{ Elems []*Ty }
	// RefTy is `&T` or `&mut T`.
	RefTy struct {
		Elem *Ty
		Mut  bool
	}
	// SliceTy is `[T]`.
	SliceTy struct{ Elem *Ty }
	// ArrayTy is `[T; N]`; the length is an anonymous constant.
	ArrayTy struct {
		Elem *Ty
		Len  *AnonConst
	}
	// FnPtrTy is `fn(A) -> R`.
	FnPtrTy struct {
		Params []*Ty
		Ret    *Ty
	}
	// TraitObjectTy is `dyn A + B`.
	TraitObjectTy struct{ Bounds []*Path }
	// OpaqueTy is `impl Trait` in return position; Item is the synthesized
	// opaque item that carries the bounds.
	OpaqueTy struct {
		Item ID
		Args []*Ty
	}
	// NeverTy is `!`.
	NeverTy struct{}
	// InferTy is `_`.
	InferTy struct{}
)

func (*PathTy) tyKind()        {}
func (*TupleTy) tyKind()       {}
func (*RefTy) tyKind()         {}
func (*SliceTy) tyKind()       {}
func (*ArrayTy) tyKind()       {}
func (*FnPtrTy) tyKind()       {}
func (*TraitObjectTy) tyKind() {}
func (*OpaqueTy) tyKind()      {}
func (*NeverTy) tyKind()       {}
func (*InferTy) tyKind()       {}

// Type is a semantic type computed by the type checker.
type Type interface {
	isType()
	String() string
}

type (
	// AdtType is a struct, union or enum. Def is NoID for types defined
	// outside the crate, in which case Path names them.
	AdtType struct {
		Def  ID
		Path string
		Args []Type
	}
	// TupleType is a positional tuple, including unit.
	TupleType struct{ Elems []Type }
	// PrimType is a primitive such as i32.
	PrimType struct{ Name string }
	// RefType is a reference or raw pointer.
	RefType struct {
		Elem Type
		Mut  bool
	}
	// OtherType covers everything the analysis never inspects
	// (fn pointers, closures, slices, trait objects).
	OtherType struct{ Descr string }
)

func (*AdtType) isType()   {}
func (*TupleType) isType() {}
func (*PrimType) isType()  {}
func (*RefType) isType()   {}
func (*OtherType) isType() {}

// PhantomDataPath is the canonical path of the zero-sized marker type.
const PhantomDataPath = "core::marker::PhantomData"

// IsPhantomData reports whether t is the PhantomData marker type.
func (t *AdtType) IsPhantomData() bool {
	return t.Path == PhantomDataPath || t.Path == "std::marker::PhantomData"
}

func (t *AdtType) String() string {
	if len(t.Args) == 0 {
		return t.Path
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Path + "<" + strings.Join(args, ", ") + ">"
}

func (t *TupleType) String() string {
	elems := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = e.String()
	}
	if len(elems) == 1 {
		return "(" + elems[0] + ",)"
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

func (t *PrimType) String() string { return t.Name }

func (t *RefType) String() string {
	if t.Mut {
		return "&mut " + t.Elem.String()
	}
	return "&" + t.Elem.String()
}

func (t *OtherType) String() string { return t.Descr }

// PeelRefs strips references, mirroring auto-deref on field access.
func PeelRefs(t Type) Type {
	for {
		r, ok := t.(*RefType)
		if !ok {
			return t
		}
		t = r.Elem
	}
}
