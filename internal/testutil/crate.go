// Package testutil builds small type-checked crates for tests without going
// through the CUE front end.
package testutil

import (
	"maps"
	"slices"
	"strconv"
	"testing"

	"github.com/roach88/deadlint/internal/ir"
)

// Builder assembles an ir.Crate and its type checker results. Every helper
// records the types, resolutions and field indices the analysis looks up,
// so the result behaves like front-end output.
type Builder struct {
	C *ir.Crate
	t testing.TB
}

// NewBuilder starts an empty crate.
func NewBuilder(t testing.TB, name string) *Builder {
	t.Helper()
	return &Builder{C: ir.NewCrate(name), t: t}
}

// Root is the crate root module.
func (b *Builder) Root() ir.ID { return b.C.Root }

func (b *Builder) add(n ir.Node, parent ir.ID) {
	b.t.Helper()
	if err := b.C.Add(n, parent); err != nil {
		b.t.Fatalf("testutil: %v", err)
	}
}

func (b *Builder) span() ir.Span {
	return ir.Span{File: "test.cue", Line: int(b.C.Len()), Col: 1}
}

// Res is the resolution of a path naming the given local declaration.
func (b *Builder) Res(id ir.ID) ir.Res {
	return ir.DefRes(b.C.DefKind(id), id)
}

// Path is a resolved path to the given declaration.
func (b *Builder) Path(id ir.ID) *ir.Path {
	name := b.C.DefPath(id)
	if name == "" {
		name = id.String()
	}
	return &ir.Path{Res: b.Res(id), Segments: []*ir.PathSegment{{Name: name}}}
}

// QPath is a resolved qualified path to the given declaration.
func (b *Builder) QPath(id ir.ID) ir.QPath {
	return &ir.ResolvedPath{Path: b.Path(id)}
}

// AdtType is the semantic type of a local struct, union or enum.
func (b *Builder) AdtType(id ir.ID) *ir.AdtType {
	return &ir.AdtType{Def: id, Path: b.C.DefPath(id)}
}

// TyOf is a written type naming the given declaration.
func (b *Builder) TyOf(id ir.ID) *ir.Ty {
	return &ir.Ty{ID: b.C.NewID(), Kind: &ir.PathTy{QPath: b.QPath(id)}}
}

// PrimTy is a written primitive type.
func (b *Builder) PrimTy(name string) *ir.Ty {
	return &ir.Ty{ID: b.C.NewID(), Kind: &ir.PathTy{QPath: &ir.ResolvedPath{Path: &ir.Path{
		Res:      ir.Res{Kind: ir.ResPrimTy, Prim: name},
		Segments: []*ir.PathSegment{{Name: name}},
	}}}}
}

func (b *Builder) body(stmts []ir.Expr) *ir.Body {
	block := &ir.Block{}
	for _, s := range stmts {
		block.Stmts = append(block.Stmts, &ir.ExprStmt{X: s})
	}
	return &ir.Body{Value: &ir.BlockExpr{ExprBase: ir.ExprBase{ID: b.C.NewID()}, Block: block}}
}

// Fn declares a private function whose body evaluates stmts in order.
func (b *Builder) Fn(parent ir.ID, name string, stmts ...ir.Expr) *ir.Item {
	b.t.Helper()
	it := &ir.Item{
		ID:   b.C.NewID(),
		Name: name,
		Span: b.span(),
		Kind: &ir.FnItem{Sig: &ir.FnSig{}, Body: b.body(stmts)},
	}
	b.add(it, parent)
	return it
}

// SetBody replaces the body of a function, constant, static or method.
// It allows cycles between declarations.
func (b *Builder) SetBody(n ir.Node, stmts ...ir.Expr) {
	body := b.body(stmts)
	switch n := n.(type) {
	case *ir.Item:
		switch k := n.Kind.(type) {
		case *ir.FnItem:
			k.Body = body
		case *ir.ConstItem:
			k.Body = body
		case *ir.StaticItem:
			k.Body = body
		}
	case *ir.ImplItem:
		switch k := n.Kind.(type) {
		case *ir.ImplFn:
			k.Body = body
		case *ir.ImplConst:
			k.Body = body
		}
	case *ir.TraitItem:
		switch k := n.Kind.(type) {
		case *ir.TraitFn:
			k.Body = body
		case *ir.TraitConst:
			k.Default = body
		}
	}
}

// Const declares a private constant.
func (b *Builder) Const(parent ir.ID, name string, stmts ...ir.Expr) *ir.Item {
	b.t.Helper()
	it := &ir.Item{
		ID:   b.C.NewID(),
		Name: name,
		Span: b.span(),
		Kind: &ir.ConstItem{Ty: b.PrimTy("i32"), Body: b.body(stmts)},
	}
	b.add(it, parent)
	return it
}

// Static declares a private static.
func (b *Builder) Static(parent ir.ID, name string, stmts ...ir.Expr) *ir.Item {
	b.t.Helper()
	it := &ir.Item{
		ID:   b.C.NewID(),
		Name: name,
		Span: b.span(),
		Kind: &ir.StaticItem{Ty: b.PrimTy("i32"), Body: b.body(stmts)},
	}
	b.add(it, parent)
	return it
}

// TyAlias declares `type name = target`.
func (b *Builder) TyAlias(parent ir.ID, name string, target ir.ID) *ir.Item {
	b.t.Helper()
	it := &ir.Item{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: &ir.TyAliasItem{Ty: b.TyOf(target)}}
	b.add(it, parent)
	return it
}

// Mod declares a module.
func (b *Builder) Mod(parent ir.ID, name string) *ir.Item {
	b.t.Helper()
	it := &ir.Item{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: &ir.ModItem{}}
	b.add(it, parent)
	return it
}

// FieldSpec describes one field of a struct, union or variant.
type FieldSpec struct {
	Name  string // empty for positional fields
	Pub   bool
	Type  ir.Type
	Attrs ir.Attrs
}

func (b *Builder) variantData(kind ir.VariantKind, owner ir.ID, specs []FieldSpec) *ir.VariantData {
	d := &ir.VariantData{Kind: kind}
	for i, s := range specs {
		f := &ir.Field{
			ID:    b.C.NewID(),
			Name:  s.Name,
			Span:  b.span(),
			Attrs: s.Attrs,
			Type:  s.Type,
		}
		if f.Type == nil {
			f.Type = &ir.PrimType{Name: "i32"}
		}
		if s.Pub {
			f.Vis = ir.VisPublic
		}
		if s.Name == "" {
			f.Name = strconv.Itoa(i)
			f.Positional = true
		}
		f.Ty = b.PrimTy("i32")
		b.add(f, owner)
		d.Fields = append(d.Fields, f)
	}
	if kind != ir.VariantStruct {
		ctor := &ir.Ctor{ID: b.C.NewID(), Of: owner}
		b.add(ctor, owner)
		d.Ctor = ctor.ID
	}
	return d
}

// Struct declares a struct of the given constructor form.
func (b *Builder) Struct(parent ir.ID, name string, kind ir.VariantKind, fields ...FieldSpec) *ir.Item {
	b.t.Helper()
	data := &ir.VariantData{}
	it := &ir.Item{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: &ir.StructItem{Data: data}}
	b.add(it, parent)
	*data = *b.variantData(kind, it.ID, fields)
	return it
}

// Union declares a union.
func (b *Builder) Union(parent ir.ID, name string, fields ...FieldSpec) *ir.Item {
	b.t.Helper()
	data := &ir.VariantData{}
	it := &ir.Item{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: &ir.UnionItem{Data: data}}
	b.add(it, parent)
	*data = *b.variantData(ir.VariantStruct, it.ID, fields)
	return it
}

// VariantSpec describes one enum variant.
type VariantSpec struct {
	Name   string
	Kind   ir.VariantKind
	Fields []FieldSpec
	Attrs  ir.Attrs
}

// Enum declares an enum.
func (b *Builder) Enum(parent ir.ID, name string, variants ...VariantSpec) *ir.Item {
	b.t.Helper()
	e := &ir.EnumItem{}
	it := &ir.Item{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: e}
	b.add(it, parent)
	for _, vs := range variants {
		v := &ir.Variant{ID: b.C.NewID(), Name: vs.Name, Span: b.span(), Attrs: vs.Attrs}
		b.add(v, it.ID)
		v.Data = b.variantData(vs.Kind, v.ID, vs.Fields)
		e.Variants = append(e.Variants, v)
	}
	return it
}

// Variant returns the named variant of an enum.
func Variant(enum *ir.Item, name string) *ir.Variant {
	for _, v := range enum.Kind.(*ir.EnumItem).Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Fields returns the field list of a struct, union or variant.
func Fields(n ir.Node) []*ir.Field {
	switch n := n.(type) {
	case *ir.Item:
		switch k := n.Kind.(type) {
		case *ir.StructItem:
			return k.Data.Fields
		case *ir.UnionItem:
			return k.Data.Fields
		}
	case *ir.Variant:
		return n.Data.Fields
	}
	return nil
}

// Impl declares an impl block for the local type self; trait is nil for
// inherent impls.
func (b *Builder) Impl(parent ir.ID, self ir.ID, trait *ir.Path) *ir.Item {
	b.t.Helper()
	it := &ir.Item{
		ID:   b.C.NewID(),
		Name: b.C.DefPath(self),
		Span: b.span(),
		Kind: &ir.ImplBlock{OfTrait: trait, SelfTy: b.TyOf(self)},
	}
	b.add(it, parent)
	return it
}

// ExternTrait is a path to a trait defined outside the crate.
func ExternTrait(name string) *ir.Path {
	return &ir.Path{Res: ir.DefRes(ir.DefTrait, ir.NoID), Segments: []*ir.PathSegment{{Name: name}}}
}

// Method declares an associated function in an impl block.
func (b *Builder) Method(impl *ir.Item, name string, stmts ...ir.Expr) *ir.ImplItem {
	b.t.Helper()
	ii := &ir.ImplItem{
		ID:   b.C.NewID(),
		Name: name,
		Span: b.span(),
		Impl: impl.ID,
		Kind: &ir.ImplFn{Sig: &ir.FnSig{}, Body: b.body(stmts)},
	}
	b.add(ii, impl.ID)
	k := impl.Kind.(*ir.ImplBlock)
	k.Items = append(k.Items, ii.ID)
	return ii
}

// AssocConst declares an associated constant in an impl block.
func (b *Builder) AssocConst(impl *ir.Item, name string, stmts ...ir.Expr) *ir.ImplItem {
	b.t.Helper()
	ii := &ir.ImplItem{
		ID:   b.C.NewID(),
		Name: name,
		Span: b.span(),
		Impl: impl.ID,
		Kind: &ir.ImplConst{Ty: b.PrimTy("i32"), Body: b.body(stmts)},
	}
	b.add(ii, impl.ID)
	k := impl.Kind.(*ir.ImplBlock)
	k.Items = append(k.Items, ii.ID)
	return ii
}

// Trait declares a trait.
func (b *Builder) Trait(parent ir.ID, name string) *ir.Item {
	b.t.Helper()
	it := &ir.Item{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: &ir.TraitDef{}}
	b.add(it, parent)
	return it
}

// TraitMethod declares a trait method; provided methods get a body.
func (b *Builder) TraitMethod(trait *ir.Item, name string, provided bool, stmts ...ir.Expr) *ir.TraitItem {
	b.t.Helper()
	k := &ir.TraitFn{Sig: &ir.FnSig{}}
	if provided {
		k.Body = b.body(stmts)
	}
	ti := &ir.TraitItem{ID: b.C.NewID(), Name: name, Span: b.span(), Trait: trait.ID, Kind: k}
	b.add(ti, trait.ID)
	td := trait.Kind.(*ir.TraitDef)
	td.Items = append(td.Items, ti.ID)
	return ti
}

// ForeignMod declares an extern block.
func (b *Builder) ForeignMod(parent ir.ID) *ir.Item {
	b.t.Helper()
	it := &ir.Item{ID: b.C.NewID(), Span: b.span(), Kind: &ir.ForeignMod{Abi: "C"}}
	b.add(it, parent)
	return it
}

// ForeignFn declares a function in an extern block.
func (b *Builder) ForeignFn(mod *ir.Item, name string) *ir.ForeignItem {
	b.t.Helper()
	fi := &ir.ForeignItem{ID: b.C.NewID(), Name: name, Span: b.span(), Kind: &ir.ForeignFn{Sig: &ir.FnSig{}}}
	b.add(fi, mod.ID)
	fm := mod.Kind.(*ir.ForeignMod)
	fm.Items = append(fm.Items, fi.ID)
	return fi
}

func (b *Builder) base() ir.ExprBase {
	return ir.ExprBase{ID: b.C.NewID(), Span: b.span()}
}

func (b *Builder) pbase() ir.PatBase {
	return ir.PatBase{ID: b.C.NewID(), Span: b.span()}
}

// Ref is a value path to a declaration: `f`, `CONST`, `Unit`, `E::V`.
func (b *Builder) Ref(id ir.ID) *ir.PathExpr {
	return &ir.PathExpr{ExprBase: b.base(), QPath: b.QPath(id)}
}

// Call is `f()`.
func (b *Builder) Call(fn ir.ID, args ...ir.Expr) *ir.CallExpr {
	return &ir.CallExpr{ExprBase: b.base(), Callee: b.Ref(fn), Args: args}
}

// TypeRelative is `Self::name`-style access resolved by the type checker
// to target, e.g. `Point::origin`.
func (b *Builder) TypeRelative(self ir.ID, target ir.ID) *ir.PathExpr {
	e := &ir.PathExpr{ExprBase: b.base(), QPath: &ir.TypeRelativePath{
		QSelf:   b.TyOf(self),
		Segment: &ir.PathSegment{Name: b.C.DefPath(target)},
	}}
	b.C.Typeck.SetTypeDependentDef(e.ID, b.Res(target))
	return e
}

// Local is a local variable of the given type.
func (b *Builder) Local(ty ir.Type) *ir.PathExpr {
	e := &ir.PathExpr{ExprBase: b.base(), QPath: &ir.ResolvedPath{Path: &ir.Path{
		Res:      ir.Res{Kind: ir.ResLocal},
		Segments: []*ir.PathSegment{{Name: "x"}},
	}}}
	b.C.Typeck.SetType(e.ID, ty)
	return e
}

// MethodCall is `recv.name()` resolved to target; NoID leaves it
// unresolved.
func (b *Builder) MethodCall(recv ir.Expr, target ir.ID) *ir.MethodCallExpr {
	e := &ir.MethodCallExpr{ExprBase: b.base(), Segment: &ir.PathSegment{Name: "m"}, Receiver: recv}
	if target.IsValid() {
		b.C.Typeck.SetTypeDependentDef(e.ID, b.Res(target))
	}
	return e
}

// Field is `base.f` where f is the index-th field of the base's type.
func (b *Builder) Field(base ir.Expr, index int) *ir.FieldExpr {
	e := &ir.FieldExpr{ExprBase: b.base(), Base: base, Name: strconv.Itoa(index)}
	b.C.Typeck.SetFieldIndex(e.ID, index)
	return e
}

// Assign is `lhs = rhs`.
func (b *Builder) Assign(lhs, rhs ir.Expr) *ir.AssignExpr {
	return &ir.AssignExpr{ExprBase: b.base(), LHS: lhs, RHS: rhs}
}

// AssignOp is `lhs += rhs`.
func (b *Builder) AssignOp(lhs, rhs ir.Expr) *ir.AssignOpExpr {
	return &ir.AssignOpExpr{ExprBase: b.base(), Op: "+", LHS: lhs, RHS: rhs}
}

// Lit is an integer literal.
func (b *Builder) Lit() *ir.LitExpr {
	return &ir.LitExpr{ExprBase: b.base(), Value: "1"}
}

// StructLit is `Path { fields }` for a struct, union or struct variant;
// the map keys are field indices.
func (b *Builder) StructLit(target ir.ID, adt ir.ID, fields map[int]ir.Expr) *ir.StructExpr {
	e := &ir.StructExpr{ExprBase: b.base(), QPath: b.QPath(target)}
	for _, i := range slices.Sorted(maps.Keys(fields)) {
		f := &ir.ExprField{ID: b.C.NewID(), Name: strconv.Itoa(i), Expr: fields[i]}
		b.C.Typeck.SetFieldIndex(f.ID, i)
		e.Fields = append(e.Fields, f)
	}
	b.C.Typeck.SetType(e.ID, b.AdtType(adt))
	return e
}

// Match is `match scrutinee { arms }`.
func (b *Builder) Match(scrutinee ir.Expr, arms ...*ir.Arm) *ir.MatchExpr {
	return &ir.MatchExpr{ExprBase: b.base(), Scrutinee: scrutinee, Arms: arms}
}

// Arm is `pat => body`.
func (b *Builder) Arm(pat ir.Pat, body ir.Expr) *ir.Arm {
	if body == nil {
		body = b.Lit()
	}
	return &ir.Arm{ID: b.C.NewID(), Pat: pat, Body: body}
}

// Let is `let pat = init;` as an if-let condition.
func (b *Builder) Let(pat ir.Pat, init ir.Expr) *ir.LetExpr {
	return &ir.LetExpr{ExprBase: b.base(), Pat: pat, Init: init}
}

// Wild is `_`.
func (b *Builder) Wild() *ir.WildPat { return &ir.WildPat{PatBase: b.pbase()} }

// Bind is a binding pattern.
func (b *Builder) Bind(name string) *ir.BindingPat {
	return &ir.BindingPat{PatBase: b.pbase(), Name: name}
}

// CtorPat matches a tuple or unit variant or struct through its
// constructor: `E::V(elems)` or `E::V`.
func (b *Builder) CtorPat(owner ir.ID, elems ...ir.Pat) ir.Pat {
	var ctor ir.ID
	n, _ := b.C.Node(owner)
	switch n := n.(type) {
	case *ir.Variant:
		ctor = n.Data.Ctor
	case *ir.Item:
		if s, ok := n.Kind.(*ir.StructItem); ok {
			ctor = s.Data.Ctor
		}
	}
	if variantKind(n) == ir.VariantUnit {
		return &ir.PathPat{PatBase: b.pbase(), QPath: b.QPath(ctor)}
	}
	return &ir.TupleStructPat{PatBase: b.pbase(), QPath: b.QPath(ctor), Elems: elems}
}

func variantKind(n ir.Node) ir.VariantKind {
	switch n := n.(type) {
	case *ir.Variant:
		return n.Data.Kind
	case *ir.Item:
		if s, ok := n.Kind.(*ir.StructItem); ok {
			return s.Data.Kind
		}
	}
	return ir.VariantStruct
}

// StructPat is `Path { fields }` matching a struct or struct variant of
// the aggregate adt; the map keys are field indices.
func (b *Builder) StructPat(target ir.ID, adt ir.ID, fields map[int]ir.Pat) *ir.StructPat {
	p := &ir.StructPat{PatBase: b.pbase(), QPath: b.QPath(target)}
	for _, i := range slices.Sorted(maps.Keys(fields)) {
		f := &ir.PatField{ID: b.C.NewID(), Name: strconv.Itoa(i), Pat: fields[i]}
		b.C.Typeck.SetFieldIndex(f.ID, i)
		p.Fields = append(p.Fields, f)
	}
	b.C.Typeck.SetType(p.ID, b.AdtType(adt))
	return p
}

// Or is `a | b`.
func (b *Builder) Or(alts ...ir.Pat) *ir.OrPat {
	return &ir.OrPat{PatBase: b.pbase(), Alts: alts}
}

// Block wraps expressions in a block expression.
func (b *Builder) Block(stmts ...ir.Expr) *ir.BlockExpr {
	return b.body(stmts).Value.(*ir.BlockExpr)
}
