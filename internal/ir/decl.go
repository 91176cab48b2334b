package ir

// Node is any IR node registered in the crate's node table: declarations,
// synthetic constructors and anonymous constants.
type Node interface {
	NodeID() ID
	node()
}

// Decl is a named declaration eligible for dead-code analysis.
type Decl interface {
	Node
	DeclName() string
	DeclSpan() Span
	DeclAttrs() Attrs
}

// Item is a top-level or nested item: fn, const, static, type alias, struct,
// union, enum, impl, trait, extern block, opaque type or module.
type Item struct {
	ID       ID
	Name     string
	Span     Span
	Vis      Visibility
	Attrs    Attrs
	Generics []*GenericParam
	Kind     ItemKind
}

// GenericParam is a type or const parameter with its trait bounds.
type GenericParam struct {
	ID      ID
	Name    string
	Bounds  []*Path
	Default *Ty
}

// ItemKind is the sealed sum of item shapes.
type ItemKind interface {
	itemKind()
}

type (
	// FnItem is a free function.
	FnItem struct {
		Sig  *FnSig
		Body *Body
	}
	// ConstItem is `const NAME: T = value`.
	ConstItem struct {
		Ty   *Ty
		Body *Body
	}
	// StaticItem is `static NAME: T = value`.
	StaticItem struct {
		Ty   *Ty
		Mut  bool
		Body *Body
	}
	// TyAliasItem is `type Name = T`.
	TyAliasItem struct{ Ty *Ty }
	// StructItem is a struct with named, positional or no fields.
	StructItem struct{ Data *VariantData }
	// UnionItem is an untagged union.
	UnionItem struct{ Data *VariantData }
	// EnumItem is a tagged enum.
	EnumItem struct{ Variants []*Variant }
	// ImplBlock is `impl [Trait for] SelfTy { items }`.
	ImplBlock struct {
		OfTrait *Path // nil for inherent impls
		SelfTy  *Ty
		Items   []ID
	}
	// TraitDef is `trait Name: Bounds { items }`.
	TraitDef struct {
		Bounds []*Path
		Items  []ID
	}
	// ForeignMod is an `extern "ABI" { items }` block.
	ForeignMod struct {
		Abi   string
		Items []ID
	}
	// OpaqueTyItem is the hidden item behind `impl Trait` or a named
	// existential type.
	OpaqueTyItem struct{ Bounds []*Path }
	// ModItem is a module.
	ModItem struct{ Items []ID }
)

func (*FnItem) itemKind()       {}
func (*ConstItem) itemKind()    {}
func (*StaticItem) itemKind()   {}
func (*TyAliasItem) itemKind()  {}
func (*StructItem) itemKind()   {}
func (*UnionItem) itemKind()    {}
func (*EnumItem) itemKind()     {}
func (*ImplBlock) itemKind()    {}
func (*TraitDef) itemKind()     {}
func (*ForeignMod) itemKind()   {}
func (*OpaqueTyItem) itemKind() {}
func (*ModItem) itemKind()      {}

// FnSig is a function signature.
type FnSig struct {
	Inputs []*Ty
	Output *Ty // nil for unit
}

// VariantKind is the constructor form of a struct or variant.
type VariantKind uint8

const (
	// VariantStruct has named fields and no constructor function.
	VariantStruct VariantKind = iota
	// VariantTuple has positional fields and a constructor function.
	VariantTuple
	// VariantUnit has no fields and a constructor constant.
	VariantUnit
)

// VariantData is the field list of a struct, union or variant.
type VariantData struct {
	Kind   VariantKind
	Fields []*Field
	// Ctor is the synthetic constructor of tuple and unit forms.
	Ctor ID
}

// HasCtor reports whether the data has a tuple or unit constructor.
func (d *VariantData) HasCtor() bool {
	return d != nil && d.Kind != VariantStruct && d.Ctor.IsValid()
}

// Variant is an enum variant.
type Variant struct {
	ID    ID
	Name  string
	Span  Span
	Attrs Attrs
	Data  *VariantData
	Disr  *AnonConst // explicit discriminant, optional
}

// Field is a struct, union or variant field.
type Field struct {
	ID         ID
	Name       string
	Span       Span
	Vis        Visibility
	Attrs      Attrs
	Ty         *Ty
	Type       Type // semantic type, for the marker-type check
	Positional bool
}

// ImplItem is a member of an impl block.
type ImplItem struct {
	ID    ID
	Name  string
	Span  Span
	Vis   Visibility
	Attrs Attrs
	Impl  ID
	Kind  ImplItemKind
}

// ImplItemKind is the sealed sum of impl member shapes.
type ImplItemKind interface {
	implItemKind()
}

type (
	// ImplConst is an associated constant.
	ImplConst struct {
		Ty   *Ty
		Body *Body
	}
	// ImplFn is an associated function or method.
	ImplFn struct {
		Sig  *FnSig
		Body *Body
	}
	// ImplType is an associated type.
	ImplType struct{ Ty *Ty }
)

func (*ImplConst) implItemKind() {}
func (*ImplFn) implItemKind()    {}
func (*ImplType) implItemKind()  {}

// TraitItem is a member of a trait definition.
type TraitItem struct {
	ID    ID
	Name  string
	Span  Span
	Attrs Attrs
	Trait ID
	Kind  TraitItemKind
}

// TraitItemKind is the sealed sum of trait member shapes.
type TraitItemKind interface {
	traitItemKind()
}

type (
	// TraitConst is an associated constant; Default is nil when required.
	TraitConst struct {
		Ty      *Ty
		Default *Body
	}
	// TraitFn is a method; Body is nil when required.
	TraitFn struct {
		Sig  *FnSig
		Body *Body
	}
	// TraitType is an associated type.
	TraitType struct {
		Bounds  []*Path
		Default *Ty
	}
)

func (*TraitConst) traitItemKind() {}
func (*TraitFn) traitItemKind()    {}
func (*TraitType) traitItemKind()  {}

// Provided reports whether the trait item carries a default body.
func (t *TraitItem) Provided() bool {
	switch k := t.Kind.(type) {
	case *TraitConst:
		return k.Default != nil
	case *TraitFn:
		return k.Body != nil
	default:
		return false
	}
}

// ForeignItem is a declaration inside an extern block.
type ForeignItem struct {
	ID    ID
	Name  string
	Span  Span
	Vis   Visibility
	Attrs Attrs
	Kind  ForeignItemKind
}

// ForeignItemKind is the sealed sum of foreign declaration shapes.
type ForeignItemKind interface {
	foreignItemKind()
}

type (
	// ForeignFn is an externally linked function.
	ForeignFn struct{ Sig *FnSig }
	// ForeignStatic is an externally linked static.
	ForeignStatic struct {
		Ty  *Ty
		Mut bool
	}
	// ForeignType is an opaque extern type.
	ForeignType struct{}
)

func (*ForeignFn) foreignItemKind()     {}
func (*ForeignStatic) foreignItemKind() {}
func (*ForeignType) foreignItemKind()   {}

// AnonConst is a constant expression nested in another context: an array
// length, a discriminant, an inline const block.
type AnonConst struct {
	ID   ID
	Body *Body
}

// Ctor is the synthetic constructor function of a tuple or unit struct or
// variant. Of is the struct or variant it builds.
type Ctor struct {
	ID ID
	Of ID
}

func (n *Item) NodeID() ID        { return n.ID }
func (n *Variant) NodeID() ID     { return n.ID }
func (n *Field) NodeID() ID       { return n.ID }
func (n *ImplItem) NodeID() ID    { return n.ID }
func (n *TraitItem) NodeID() ID   { return n.ID }
func (n *ForeignItem) NodeID() ID { return n.ID }
func (n *AnonConst) NodeID() ID   { return n.ID }
func (n *Ctor) NodeID() ID        { return n.ID }

func (*Item) node()        {}
func (*Variant) node()     {}
func (*Field) node()       {}
func (*ImplItem) node()    {}
func (*TraitItem) node()   {}
func (*ForeignItem) node() {}
func (*AnonConst) node()   {}
func (*Ctor) node()        {}

func (n *Item) DeclName() string        { return n.Name }
func (n *Variant) DeclName() string     { return n.Name }
func (n *Field) DeclName() string       { return n.Name }
func (n *ImplItem) DeclName() string    { return n.Name }
func (n *TraitItem) DeclName() string   { return n.Name }
func (n *ForeignItem) DeclName() string { return n.Name }

func (n *Item) DeclSpan() Span        { return n.Span }
func (n *Variant) DeclSpan() Span     { return n.Span }
func (n *Field) DeclSpan() Span       { return n.Span }
func (n *ImplItem) DeclSpan() Span    { return n.Span }
func (n *TraitItem) DeclSpan() Span   { return n.Span }
func (n *ForeignItem) DeclSpan() Span { return n.Span }

func (n *Item) DeclAttrs() Attrs        { return n.Attrs }
func (n *Variant) DeclAttrs() Attrs     { return n.Attrs }
func (n *Field) DeclAttrs() Attrs       { return n.Attrs }
func (n *ImplItem) DeclAttrs() Attrs    { return n.Attrs }
func (n *TraitItem) DeclAttrs() Attrs   { return n.Attrs }
func (n *ForeignItem) DeclAttrs() Attrs { return n.Attrs }

// DefKindOf classifies a node the way a path resolving to it would.
func DefKindOf(n Node) DefKind {
	switch n := n.(type) {
	case *Item:
		switch n.Kind.(type) {
		case *FnItem:
			return DefFn
		case *ConstItem:
			return DefConst
		case *StaticItem:
			return DefStatic
		case *TyAliasItem:
			return DefTyAlias
		case *StructItem:
			return DefStruct
		case *UnionItem:
			return DefUnion
		case *EnumItem:
			return DefEnum
		case *ImplBlock:
			return DefImpl
		case *TraitDef:
			return DefTrait
		case *ForeignMod:
			return DefForeignMod
		case *OpaqueTyItem:
			return DefOpaqueTy
		case *ModItem:
			return DefMod
		}
	case *Variant:
		return DefVariant
	case *Field:
		return DefField
	case *ImplItem:
		switch n.Kind.(type) {
		case *ImplConst:
			return DefAssocConst
		case *ImplFn:
			return DefAssocFn
		case *ImplType:
			return DefAssocTy
		}
	case *TraitItem:
		switch n.Kind.(type) {
		case *TraitConst:
			return DefAssocConst
		case *TraitFn:
			return DefAssocFn
		case *TraitType:
			return DefAssocTy
		}
	case *ForeignItem:
		switch n.Kind.(type) {
		case *ForeignFn:
			return DefFn
		case *ForeignStatic:
			return DefStatic
		case *ForeignType:
			return DefForeignTy
		}
	case *AnonConst:
		return DefAnonConst
	case *Ctor:
		return DefCtorStruct
	}
	return 0
}
