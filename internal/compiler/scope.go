package compiler

import (
	"strings"
	"unicode"

	"cuelang.org/go/cue"

	"github.com/roach88/deadlint/internal/ir"
)

type namespace uint8

const (
	// typeNS holds modules, structs, unions, enums, traits and aliases.
	typeNS namespace = iota
	// valueNS holds functions, constants, statics and the constructors of
	// tuple and unit structs.
	valueNS
)

func (ns namespace) String() string {
	if ns == typeNS {
		return "type"
	}
	return "value"
}

const selfTypeName = "Self"

// scope is the item namespace of a module or of a function body that
// declares nested items. Module scopes have no parent; body scopes see the
// scope they are declared in.
type scope struct {
	owner  ir.ID
	module ir.ID
	parent *scope
	types  map[string]ir.ID
	values map[string]ir.ID
}

func newScope(owner, module ir.ID, parent *scope) *scope {
	return &scope{
		owner:  owner,
		module: module,
		parent: parent,
		types:  map[string]ir.ID{},
		values: map[string]ir.ID{},
	}
}

func (s *scope) table(ns namespace) map[string]ir.ID {
	if ns == typeNS {
		return s.types
	}
	return s.values
}

// define binds name in ns, reporting false when it is already bound in this
// scope.
func (s *scope) define(ns namespace, name string, id ir.ID) bool {
	t := s.table(ns)
	if _, dup := t[name]; dup {
		return false
	}
	t[name] = id
	return true
}

func (s *scope) lookup(ns namespace, name string) (ir.ID, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if id, ok := sc.table(ns)[name]; ok {
			return id, true
		}
	}
	return ir.NoID, false
}

// declCtx is where a signature or body is lowered: its item scope, the
// declaration that owns synthesized nodes, the enclosing impl or trait and
// the generic parameters in scope.
type declCtx struct {
	scope    *scope
	owner    ir.ID
	impl     ir.ID
	trait    ir.ID
	generics map[string]*ir.GenericParam
}

func (d *declCtx) with(owner ir.ID, params []*ir.GenericParam) *declCtx {
	out := *d
	out.owner = owner
	if len(params) > 0 {
		out.generics = make(map[string]*ir.GenericParam, len(d.generics)+len(params))
		for k, v := range d.generics {
			out.generics[k] = v
		}
		for _, p := range params {
			out.generics[p.Name] = p
		}
	}
	return &out
}

var primitives = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true, "bool": true, "char": true, "str": true,
}

type externDef struct {
	path string
	kind ir.DefKind
}

// prelude lists the names visible in every module without a path.
var prelude = map[string]externDef{
	"Option":       {"core::option::Option", ir.DefEnum},
	"Some":         {"core::option::Option::Some", ir.DefCtorVariant},
	"None":         {"core::option::Option::None", ir.DefCtorVariant},
	"Result":       {"core::result::Result", ir.DefEnum},
	"Ok":           {"core::result::Result::Ok", ir.DefCtorVariant},
	"Err":          {"core::result::Result::Err", ir.DefCtorVariant},
	"Vec":          {"alloc::vec::Vec", ir.DefStruct},
	"String":       {"alloc::string::String", ir.DefStruct},
	"Box":          {"alloc::boxed::Box", ir.DefStruct},
	"PhantomData":  {ir.PhantomDataPath, ir.DefStruct},
	"Clone":        {"core::clone::Clone", ir.DefTrait},
	"Copy":         {"core::marker::Copy", ir.DefTrait},
	"Send":         {"core::marker::Send", ir.DefTrait},
	"Sync":         {"core::marker::Sync", ir.DefTrait},
	"Sized":        {"core::marker::Sized", ir.DefTrait},
	"Debug":        {"core::fmt::Debug", ir.DefTrait},
	"Display":      {"core::fmt::Display", ir.DefTrait},
	"Default":      {"core::default::Default", ir.DefTrait},
	"Drop":         {"core::ops::Drop", ir.DefTrait},
	"Eq":           {"core::cmp::Eq", ir.DefTrait},
	"PartialEq":    {"core::cmp::PartialEq", ir.DefTrait},
	"Ord":          {"core::cmp::Ord", ir.DefTrait},
	"PartialOrd":   {"core::cmp::PartialOrd", ir.DefTrait},
	"Hash":         {"core::hash::Hash", ir.DefTrait},
	"Iterator":     {"core::iter::Iterator", ir.DefTrait},
	"IntoIterator": {"core::iter::IntoIterator", ir.DefTrait},
	"Fn":           {"core::ops::Fn", ir.DefTrait},
	"FnMut":        {"core::ops::FnMut", ir.DefTrait},
	"FnOnce":       {"core::ops::FnOnce", ir.DefTrait},
	"From":         {"core::convert::From", ir.DefTrait},
	"Into":         {"core::convert::Into", ir.DefTrait},
	"AsRef":        {"core::convert::AsRef", ir.DefTrait},
	"ToString":     {"alloc::string::ToString", ir.DefTrait},
	"drop":         {"core::mem::drop", ir.DefFn},
}

var externRoots = map[string]bool{"std": true, "core": true, "alloc": true}

// pathResult is a lowered path: either fully resolved, or relative to a
// type with its target already looked up.
type pathResult struct {
	path     *ir.Path
	relative *ir.TypeRelativePath
	target   ir.Res
}

func (r pathResult) qpath() ir.QPath {
	if r.relative != nil {
		return r.relative
	}
	return &ir.ResolvedPath{Path: r.path}
}

// res is the resolution of the path: the path's own for resolved paths,
// the looked-up target for type-relative ones.
func (r pathResult) res() ir.Res {
	if r.relative != nil {
		return r.target
	}
	return r.path.Res
}

// guessExternKind classifies a path outside the crate from its spelling.
func guessExternKind(name string, ns namespace) ir.DefKind {
	if name == "" {
		return ir.DefMod
	}
	upper := unicode.IsUpper(rune(name[0]))
	switch {
	case ns == typeNS && upper:
		return ir.DefStruct
	case ns == typeNS:
		return ir.DefMod
	case upper && strings.ToUpper(name) == name && len(name) > 1:
		return ir.DefConst
	case upper:
		return ir.DefCtorStruct
	default:
		return ir.DefFn
	}
}

func (c *compiler) lowerSegs(ctx *declCtx, segs []tySeg, at cue.Value) ([]*ir.PathSegment, error) {
	out := make([]*ir.PathSegment, len(segs))
	for i, s := range segs {
		ps := &ir.PathSegment{Name: s.name}
		for _, a := range s.args {
			t, err := c.lowerTy(ctx, a, at)
			if err != nil {
				return nil, err
			}
			ps.Args = append(ps.Args, t)
		}
		out[i] = ps
	}
	return out, nil
}

// resolveSegs resolves a path in the given namespace. The namespace applies
// to the last segment; leading segments name modules or types.
func (c *compiler) resolveSegs(ctx *declCtx, segs []tySeg, ns namespace, at cue.Value) (pathResult, error) {
	lowered, err := c.lowerSegs(ctx, segs, at)
	if err != nil {
		return pathResult{}, err
	}
	span := spanOf(at)
	resolved := func(res ir.Res, n int) pathResult {
		return pathResult{path: &ir.Path{Span: span, Res: res, Segments: lowered[:n]}}
	}
	extern := func() pathResult {
		last := segs[len(segs)-1].name
		return resolved(ir.DefRes(guessExternKind(last, ns), ir.NoID), len(segs))
	}

	first := segs[0].name
	nsAt := func(i int) namespace {
		if i == len(segs)-1 {
			return ns
		}
		return typeNS
	}

	var cur ir.Res
	switch {
	case first == "crate":
		cur = ir.DefRes(ir.DefMod, c.crate.Root)
	case first == "super":
		parent := c.crate.Parent(ctx.scope.module)
		if !parent.IsValid() {
			return pathResult{}, errorAt(at, "path", "super of the crate root")
		}
		cur = ir.DefRes(ir.DefMod, c.moduleOf(parent))
	case first == "self" && len(segs) > 1:
		cur = ir.DefRes(ir.DefMod, ctx.scope.module)
	case first == selfTypeName:
		switch {
		case ctx.impl.IsValid() && len(segs) == 1 && ns == valueNS:
			cur = ir.Res{Kind: ir.ResSelfCtor, Def: ctx.impl}
		case ctx.impl.IsValid():
			cur = ir.Res{Kind: ir.ResSelfTy, Impl: ctx.impl}
		case ctx.trait.IsValid():
			cur = ir.Res{Kind: ir.ResSelfTy, Trait: ctx.trait}
		default:
			return pathResult{}, errorAt(at, "path", "Self outside of an impl or trait")
		}
	case externRoots[first]:
		return extern(), nil
	default:
		if p, ok := ctx.generics[first]; ok && nsAt(0) == typeNS {
			cur = ir.DefRes(ir.DefTyParam, p.ID)
			break
		}
		if primitives[first] && nsAt(0) == typeNS {
			cur = ir.Res{Kind: ir.ResPrimTy, Prim: first}
			break
		}
		if id, ok := ctx.scope.lookup(nsAt(0), first); ok {
			cur = ir.DefRes(c.crate.DefKind(id), id)
			break
		}
		if id, ok := ctx.scope.lookup(typeNS, first); ok && len(segs) > 1 {
			cur = ir.DefRes(c.crate.DefKind(id), id)
			break
		}
		if e, ok := prelude[first]; ok {
			if len(segs) == 1 {
				kind := e.kind
				if first == "PhantomData" && ns == valueNS {
					kind = ir.DefCtorStruct
				}
				return resolved(ir.DefRes(kind, ir.NoID), 1), nil
			}
			return extern(), nil
		}
		return pathResult{}, errorAt(at, "path", "cannot find %s `%s` in this scope", nsAt(0), first)
	}

	for i := 1; i < len(segs); i++ {
		name := segs[i].name
		last := i == len(segs)-1

		if cur.Kind == ir.ResDef && !cur.Def.IsValid() {
			return extern(), nil
		}

		switch {
		case cur.IsDef(ir.DefMod):
			ms := c.modScopes[cur.Def]
			id, ok := ms.table(nsAt(i))[name]
			if !ok && !last {
				id, ok = ms.types[name]
			}
			if !ok {
				return pathResult{}, errorAt(at, "path", "cannot find %s `%s` in module `%s`", nsAt(i), name, segNames(segs[:i]))
			}
			cur = ir.DefRes(c.crate.DefKind(id), id)
			continue

		case cur.IsDef(ir.DefEnum):
			if v := c.variantNamed(cur.Def, name); v != nil {
				if nsAt(i) == valueNS && v.Data.HasCtor() {
					cur = ir.DefRes(ir.DefCtorVariant, v.Data.Ctor)
				} else {
					cur = ir.DefRes(ir.DefVariant, v.ID)
				}
				continue
			}

		case cur.IsDef(ir.DefTrait):
			if id, ok := c.traitItemNamed(cur.Def, name); ok {
				cur = ir.DefRes(c.crate.DefKind(id), id)
				continue
			}
			return pathResult{}, errorAt(at, "path", "trait `%s` has no item `%s`", segNames(segs[:i]), name)
		}

		// Anything else is `Type::assoc`, which the type checker resolves.
		if !last {
			return pathResult{}, errorAt(at, "path", "unsupported nested associated path `%s`", segNames(segs))
		}
		selfPath := &ir.Path{Span: span, Res: cur, Segments: lowered[:i]}
		target, err := c.assocItem(ctx, c.semOfPath(selfPath), name, nsAt(i), at)
		if err != nil {
			return pathResult{}, err
		}
		return pathResult{
			relative: &ir.TypeRelativePath{
				QSelf:   &ir.Ty{ID: c.crate.NewID(), Span: span, Kind: &ir.PathTy{QPath: &ir.ResolvedPath{Path: selfPath}}},
				Segment: lowered[i],
			},
			target: target,
		}, nil
	}
	return resolved(cur, len(segs)), nil
}

// moduleOf returns the nearest module enclosing (or equal to) id.
func (c *compiler) moduleOf(id ir.ID) ir.ID {
	for ; id.IsValid(); id = c.crate.Parent(id) {
		if it, ok := c.crate.Item(id); ok {
			if _, ok := it.Kind.(*ir.ModItem); ok {
				return id
			}
		}
	}
	return c.crate.Root
}

func (c *compiler) variantNamed(enum ir.ID, name string) *ir.Variant {
	it, ok := c.crate.Item(enum)
	if !ok {
		return nil
	}
	e, ok := it.Kind.(*ir.EnumItem)
	if !ok {
		return nil
	}
	for _, v := range e.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (c *compiler) traitItemNamed(trait ir.ID, name string) (ir.ID, bool) {
	it, ok := c.crate.Item(trait)
	if !ok {
		return ir.NoID, false
	}
	for _, id := range it.Kind.(*ir.TraitDef).Items {
		if n, _ := c.crate.Node(id); n.(*ir.TraitItem).Name == name {
			return id, true
		}
	}
	for _, b := range it.Kind.(*ir.TraitDef).Bounds {
		if b.Res.IsDef(ir.DefTrait) && b.Res.Def.IsValid() && b.Res.Def != trait {
			if id, ok := c.traitItemNamed(b.Res.Def, name); ok {
				return id, true
			}
		}
	}
	return ir.NoID, false
}

// assocItem finds the associated item called name on a type: members of
// its impls first, then provided members of the local traits it
// implements. Items of types outside the crate resolve to external defs.
func (c *compiler) assocItem(ctx *declCtx, self ir.Type, name string, ns namespace, at cue.Value) (ir.Res, error) {
	switch t := ir.PeelRefs(self).(type) {
	case *ir.AdtType:
		if !t.Def.IsValid() {
			break
		}
		if v := c.variantNamed(t.Def, name); v != nil {
			if ns == valueNS && v.Data.HasCtor() {
				return ir.DefRes(ir.DefCtorVariant, v.Data.Ctor), nil
			}
			return ir.DefRes(ir.DefVariant, v.ID), nil
		}
		for _, impl := range c.implsOf[t.Def] {
			it, _ := c.crate.Item(impl)
			for _, id := range it.Kind.(*ir.ImplBlock).Items {
				n, _ := c.crate.Node(id)
				if n.(*ir.ImplItem).Name == name {
					return ir.DefRes(c.crate.DefKind(id), id), nil
				}
			}
		}
		for _, impl := range c.implsOf[t.Def] {
			it, _ := c.crate.Item(impl)
			if tr := it.Kind.(*ir.ImplBlock).OfTrait; tr != nil && tr.Res.Def.IsValid() {
				if id, ok := c.traitItemNamed(tr.Res.Def, name); ok {
					return ir.DefRes(c.crate.DefKind(id), id), nil
				}
			}
		}
		return ir.Res{}, errorAt(at, "path", "no associated item named `%s` found for `%s`", name, t.Path)
	case *ir.OtherType:
		for _, trait := range c.boundTraits(ctx, t.Descr) {
			if id, ok := c.traitItemNamed(trait, name); ok {
				return ir.DefRes(c.crate.DefKind(id), id), nil
			}
		}
	}
	return ir.DefRes(guessExternKind(name, ns), ir.NoID), nil
}

// boundTraits lists the local traits a `Self` or type parameter named
// descr is known to implement.
func (c *compiler) boundTraits(ctx *declCtx, descr string) []ir.ID {
	var traits []ir.ID
	if descr == selfTypeName && ctx.trait.IsValid() {
		traits = append(traits, ctx.trait)
	}
	if p, ok := ctx.generics[descr]; ok {
		for _, b := range p.Bounds {
			if b.Res.IsDef(ir.DefTrait) && b.Res.Def.IsValid() {
				traits = append(traits, b.Res.Def)
			}
		}
	}
	return traits
}
