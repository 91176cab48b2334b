package ir

import "strings"

// DefKind is the kind of a definition a path can resolve to.
type DefKind uint8

const (
	DefMod DefKind = iota + 1
	DefStruct
	DefUnion
	DefEnum
	DefVariant
	DefTrait
	DefTyAlias
	DefForeignTy
	DefTyParam
	DefFn
	DefConst
	DefConstParam
	DefStatic
	DefCtorStruct
	DefCtorVariant
	DefAssocFn
	DefAssocConst
	DefAssocTy
	DefField
	DefOpaqueTy
	DefImpl
	DefAnonConst
	DefForeignMod
)

var defKindDescr = map[DefKind]string{
	DefMod:         "module",
	DefStruct:      "struct",
	DefUnion:       "union",
	DefEnum:        "enum",
	DefVariant:     "variant",
	DefTrait:       "trait",
	DefTyAlias:     "type alias",
	DefForeignTy:   "foreign type",
	DefTyParam:     "type parameter",
	DefFn:          "function",
	DefConst:       "constant",
	DefConstParam:  "const parameter",
	DefStatic:      "static",
	DefCtorStruct:  "tuple struct",
	DefCtorVariant: "tuple variant",
	DefAssocFn:     "associated function",
	DefAssocConst:  "associated constant",
	DefAssocTy:     "associated type",
	DefField:       "field",
	DefOpaqueTy:    "opaque type",
	DefImpl:        "implementation",
	DefAnonConst:   "constant expression",
	DefForeignMod:  "foreign module",
}

// Descr returns the human description used in diagnostics ("function", ...).
func (k DefKind) Descr() string {
	if d, ok := defKindDescr[k]; ok {
		return d
	}
	return "item"
}

func (k DefKind) String() string { return strings.ReplaceAll(k.Descr(), " ", "_") }

// ResKind is the shape of a resolution.
type ResKind uint8

const (
	// ResErr is an unresolved or erroneous path.
	ResErr ResKind = iota
	// ResDef resolves to a definition (local or not).
	ResDef
	// ResPrimTy is a primitive type such as i32 or bool.
	ResPrimTy
	// ResSelfTy is `Self` in a trait or impl.
	ResSelfTy
	// ResSelfCtor is `Self(..)` used as a value in an impl.
	ResSelfCtor
	// ResLocal is a local binding.
	ResLocal
	// ResToolMod is a tool module such as rustfmt::.
	ResToolMod
	// ResNonMacroAttr is a built-in attribute path.
	ResNonMacroAttr
)

func (k ResKind) String() string {
	switch k {
	case ResErr:
		return "err"
	case ResDef:
		return "def"
	case ResPrimTy:
		return "prim"
	case ResSelfTy:
		return "self_ty"
	case ResSelfCtor:
		return "self_ctor"
	case ResLocal:
		return "local"
	case ResToolMod:
		return "tool_mod"
	case ResNonMacroAttr:
		return "non_macro_attr"
	default:
		return "unknown"
	}
}

// Res is what a path resolved to.
type Res struct {
	Kind    ResKind
	DefKind DefKind // ResDef only
	// Def is the definition for ResDef, the impl for ResSelfCtor and the
	// binding pattern for ResLocal. NoID means outside the crate.
	Def ID
	// Trait and Impl are set for ResSelfTy: `Self` inside a trait names the
	// trait, inside an impl it names the impl block.
	Trait ID
	Impl  ID
	// Prim names the primitive for ResPrimTy.
	Prim string
}

// DefRes builds a definition resolution.
func DefRes(kind DefKind, id ID) Res { return Res{Kind: ResDef, DefKind: kind, Def: id} }

// ErrRes is the error resolution.
func ErrRes() Res { return Res{Kind: ResErr} }

// IsDef reports whether r resolves to a definition of one of the given kinds.
func (r Res) IsDef(kinds ...DefKind) bool {
	if r.Kind != ResDef {
		return false
	}
	for _, k := range kinds {
		if r.DefKind == k {
			return true
		}
	}
	return false
}

// QPath is a possibly qualified path: either fully resolved by name
// resolution, or relative to a type and resolved by the type checker.
type QPath interface {
	qpath()
}

// ResolvedPath is `path` or `<QSelf as Trait>::path`.
type ResolvedPath struct {
	QSelf *Ty // optional
	Path  *Path
}

// TypeRelativePath is `<QSelf>::segment`, e.g. `Point::origin`. Its
// resolution is only known to the type checker.
type TypeRelativePath struct {
	QSelf   *Ty
	Segment *PathSegment
}

func (*ResolvedPath) qpath()     {}
func (*TypeRelativePath) qpath() {}

// Path is a resolved path such as `shapes::Circle`.
type Path struct {
	Span     Span
	Res      Res
	Segments []*PathSegment
}

// PathSegment is one `::`-separated segment with optional generic args.
type PathSegment struct {
	Name string
	Args []*Ty
}

// String renders the path as written.
func (p *Path) String() string {
	if p == nil {
		return ""
	}
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	return strings.Join(names, "::")
}
