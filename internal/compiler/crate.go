package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deadlint/internal/ir"
)

// compiler lowers one crate. Declarations are collected first so that every
// name is known; headers (impl self types), signatures and bodies follow in
// separate phases.
type compiler struct {
	crate     *ir.Crate
	modScopes map[ir.ID]*scope
	implsOf   map[ir.ID][]ir.ID
	opaques   map[ir.ID][]ir.ID
	aliasing  map[ir.ID]bool
	sigs      map[ir.ID]*ir.FnSig
	valueTys  map[ir.ID]*ir.Ty

	headers    []func() error
	signatures []func() error
	bodies     []func() error
}

func newCompiler(name string) *compiler {
	c := &compiler{
		crate:     ir.NewCrate(name),
		modScopes: map[ir.ID]*scope{},
		implsOf:   map[ir.ID][]ir.ID{},
		opaques:   map[ir.ID][]ir.ID{},
		aliasing:  map[ir.ID]bool{},
		sigs:      map[ir.ID]*ir.FnSig{},
		valueTys:  map[ir.ID]*ir.Ty{},
	}
	root := c.crate.Root
	c.modScopes[root] = newScope(root, root, nil)
	return c
}

func lookup(v cue.Value, key string) (cue.Value, bool) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	return f, f.Exists()
}

func stringAt(v cue.Value, key string) (string, bool, error) {
	f, ok := lookup(v, key)
	if !ok {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", true, formatCUEError(err)
	}
	return s, true, nil
}

func boolAt(v cue.Value, key string) (bool, error) {
	f, ok := lookup(v, key)
	if !ok {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func (c *compiler) add(n ir.Node, parent ir.ID, at cue.Value) error {
	if err := c.crate.Add(n, parent); err != nil {
		return errorAt(at, "ir", "%v", err)
	}
	return nil
}

// CompileCrate parses a CUE value into a type-checked ir.Crate.
// The value should be the crate struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`crate: shapes: { items: { ... } }`)
//	crate, err := CompileCrate(v.LookupPath(cue.ParsePath("crate.shapes")))
func CompileCrate(v cue.Value) (*ir.Crate, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	// Crate name from struct label (the path selector)
	name := "main"
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].Unquoted()
	}
	c := newCompiler(name)
	root, _ := c.crate.Item(c.crate.Root)
	root.Span = spanOf(v)

	attrs, err := parseAttrs(v)
	if err != nil {
		return nil, err
	}
	root.Attrs = attrs

	ctx := &declCtx{scope: c.modScopes[root.ID], owner: root.ID}
	if items, ok := lookup(v, "items"); ok {
		if err := c.collectItems(items, root.ID, ctx); err != nil {
			return nil, err
		}
	}

	for _, phase := range [][]func() error{c.headers, c.signatures, c.bodies} {
		for _, job := range phase {
			if err := job(); err != nil {
				return nil, err
			}
		}
	}

	if err := c.resolveEntry(v); err != nil {
		return nil, err
	}
	c.computeAccess()
	return c.crate, nil
}

// CompileCrates compiles every crate under the top-level `crate` field, in
// declaration order.
func CompileCrates(v cue.Value) ([]*ir.Crate, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	cv, ok := lookup(v, "crate")
	if !ok {
		return nil, errorAt(v, "crate", "no crate defined")
	}
	iter, err := cv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var crates []*ir.Crate
	for iter.Next() {
		crate, err := CompileCrate(iter.Value())
		if err != nil {
			return nil, err
		}
		crates = append(crates, crate)
	}
	return crates, nil
}

// resolveEntry picks the entry point: the `entry` path when given (empty
// for libraries), otherwise a root function named main.
func (c *compiler) resolveEntry(v cue.Value) error {
	rootScope := c.modScopes[c.crate.Root]
	entry, ok, err := stringAt(v, "entry")
	if err != nil {
		return err
	}
	if !ok {
		if id, ok := rootScope.values["main"]; ok {
			if it, ok := c.crate.Item(id); ok {
				if _, ok := it.Kind.(*ir.FnItem); ok {
					c.crate.Entry = id
				}
			}
		}
		return nil
	}
	if entry == "" {
		return nil
	}
	ev, _ := lookup(v, "entry")
	segs, err := parsePath(entry)
	if err != nil {
		return errorAt(ev, "entry", "%v", err)
	}
	pr, err := c.resolveSegs(&declCtx{scope: rootScope, owner: c.crate.Root}, segs, valueNS, ev)
	if err != nil {
		return err
	}
	res := pr.res()
	if !res.IsDef(ir.DefFn) || !res.Def.IsValid() {
		return errorAt(ev, "entry", "entry point `%s` is not a function of this crate", entry)
	}
	c.crate.Entry = res.Def
	return nil
}

var itemKeys = []string{"fn", "const", "static", "type", "struct", "union", "enum", "impl", "trait", "extern", "mod"}

// kindOf returns the single kind key of a declaration.
func kindOf(v cue.Value, field string, keys []string) (string, cue.Value, error) {
	var found []string
	var kv cue.Value
	for _, k := range keys {
		if f, ok := lookup(v, k); ok {
			found = append(found, k)
			kv = f
		}
	}
	switch len(found) {
	case 1:
		return found[0], kv, nil
	case 0:
		return "", kv, errorAt(v, field, "declaration needs one of %s", strings.Join(keys, ", "))
	default:
		return "", kv, errorAt(v, field, "declaration has several kinds: %s", strings.Join(found, ", "))
	}
}

func parseVis(v cue.Value) (ir.Visibility, error) {
	pv, ok := lookup(v, "pub")
	if !ok {
		return ir.VisPrivate, nil
	}
	if b, err := pv.Bool(); err == nil {
		if b {
			return ir.VisPublic, nil
		}
		return ir.VisPrivate, nil
	}
	if _, err := pv.String(); err == nil {
		return ir.VisRestricted, nil
	}
	return ir.VisPrivate, errorAt(pv, "pub", "must be a bool or a restriction such as \"crate\"")
}

func parseAttrs(v cue.Value) (ir.Attrs, error) {
	av, ok := lookup(v, "attrs")
	if !ok {
		return nil, nil
	}
	iter, err := av.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var attrs ir.Attrs
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		a, ok := ir.ParseAttr(s)
		if !ok {
			return nil, errorAt(iter.Value(), "attrs", "malformed attribute %q", s)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// parseGenerics declares the generic parameters of a declaration. Their
// bounds are lowered with the signature.
func (c *compiler) parseGenerics(v cue.Value) ([]*ir.GenericParam, map[*ir.GenericParam]cue.Value, error) {
	gv, ok := lookup(v, "generics")
	if !ok {
		return nil, nil, nil
	}
	iter, err := gv.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}
	var params []*ir.GenericParam
	bounds := map[*ir.GenericParam]cue.Value{}
	for iter.Next() {
		p := &ir.GenericParam{ID: c.crate.NewID(), Name: iter.Label()}
		params = append(params, p)
		bounds[p] = iter.Value()
	}
	return params, bounds, nil
}

func (c *compiler) lowerGenericBounds(ctx *declCtx, bounds map[*ir.GenericParam]cue.Value) error {
	for p, bv := range bounds {
		iter, err := bv.List()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return formatCUEError(err)
			}
			segs, err := parsePath(s)
			if err != nil {
				return errorAt(iter.Value(), "generics", "%v", err)
			}
			pr, err := c.resolveSegs(ctx, segs, typeNS, iter.Value())
			if err != nil {
				return err
			}
			p.Bounds = append(p.Bounds, pr.path)
		}
	}
	return nil
}

func (c *compiler) collectItems(v cue.Value, parent ir.ID, ctx *declCtx) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if _, err := c.collectItem(iter.Label(), iter.Value(), parent, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) define(sc *scope, ns namespace, name string, id ir.ID, at cue.Value) error {
	if !sc.define(ns, name, id) {
		return errorAt(at, "items", "the name `%s` is defined multiple times in the %s namespace", name, ns)
	}
	return nil
}

func (c *compiler) collectItem(label string, v cue.Value, parent ir.ID, ctx *declCtx) (*ir.Item, error) {
	kind, kv, err := kindOf(v, label, itemKeys)
	if err != nil {
		return nil, err
	}
	vis, err := parseVis(v)
	if err != nil {
		return nil, err
	}
	attrs, err := parseAttrs(v)
	if err != nil {
		return nil, err
	}
	generics, bounds, err := c.parseGenerics(v)
	if err != nil {
		return nil, err
	}

	it := &ir.Item{
		ID:       c.crate.NewID(),
		Name:     label,
		Span:     spanOf(v),
		Vis:      vis,
		Attrs:    attrs,
		Generics: generics,
	}
	sc := ctx.scope
	ictx := ctx.with(it.ID, generics)
	if len(bounds) > 0 {
		c.signatures = append(c.signatures, func() error { return c.lowerGenericBounds(ictx, bounds) })
	}

	switch kind {
	case "fn":
		it.Kind = &ir.FnItem{Sig: &ir.FnSig{}}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, valueNS, label, it.ID, v); err != nil {
			return nil, err
		}
		return it, c.collectFn(it, kv, ictx)

	case "const", "static":
		if kind == "const" {
			it.Kind = &ir.ConstItem{}
		} else {
			mut, err := boolAt(kv, "mut")
			if err != nil {
				return nil, err
			}
			it.Kind = &ir.StaticItem{Mut: mut}
		}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, valueNS, label, it.ID, v); err != nil {
			return nil, err
		}
		c.collectValue(it, kv, ictx)
		return it, nil

	case "type":
		alias := &ir.TyAliasItem{}
		it.Kind = alias
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, typeNS, label, it.ID, v); err != nil {
			return nil, err
		}
		c.signatures = append(c.signatures, func() error {
			t, err := c.typeString(ictx, kv)
			alias.Ty = t
			return err
		})
		return it, nil

	case "struct", "union":
		data := &ir.VariantData{}
		if kind == "struct" {
			it.Kind = &ir.StructItem{Data: data}
		} else {
			it.Kind = &ir.UnionItem{Data: data}
		}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, typeNS, label, it.ID, v); err != nil {
			return nil, err
		}
		if err := c.collectVariantData(data, it.ID, kv, ictx, kind == "union"); err != nil {
			return nil, err
		}
		if data.HasCtor() {
			if err := c.define(sc, valueNS, label, data.Ctor, v); err != nil {
				return nil, err
			}
		}
		return it, nil

	case "enum":
		enum := &ir.EnumItem{}
		it.Kind = enum
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, typeNS, label, it.ID, v); err != nil {
			return nil, err
		}
		return it, c.collectEnum(it, enum, kv, ictx)

	case "impl":
		it.Kind = &ir.ImplBlock{}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		return it, c.collectImpl(it, kv, ictx)

	case "trait":
		it.Kind = &ir.TraitDef{}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, typeNS, label, it.ID, v); err != nil {
			return nil, err
		}
		return it, c.collectTrait(it, kv, ictx)

	case "extern":
		abi, _, err := stringAt(kv, "abi")
		if err != nil {
			return nil, err
		}
		if abi == "" {
			abi = "C"
		}
		it.Kind = &ir.ForeignMod{Abi: abi}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		return it, c.collectForeign(it, kv, ictx)

	case "mod":
		it.Kind = &ir.ModItem{}
		if err := c.add(it, parent, v); err != nil {
			return nil, err
		}
		if err := c.define(sc, typeNS, label, it.ID, v); err != nil {
			return nil, err
		}
		ms := newScope(it.ID, it.ID, nil)
		c.modScopes[it.ID] = ms
		if items, ok := lookup(kv, "items"); ok {
			mctx := &declCtx{scope: ms, owner: it.ID}
			if err := c.collectItems(items, it.ID, mctx); err != nil {
				return nil, err
			}
		}
		if p, ok := c.crate.Item(parent); ok {
			if m, ok := p.Kind.(*ir.ModItem); ok {
				m.Items = append(m.Items, it.ID)
			}
		}
		return it, nil
	}
	return nil, fmt.Errorf("unreachable item kind %q", kind)
}

// bodyScope opens the scope of nested items declared by a function body.
func (c *compiler) bodyScope(owner ir.ID, v cue.Value, ctx *declCtx) (*declCtx, []ir.ID, error) {
	items, ok := lookup(v, "items")
	if !ok {
		return ctx, nil, nil
	}
	bctx := *ctx
	bctx.scope = newScope(owner, ctx.scope.module, ctx.scope)
	before := len(c.crate.Children(owner))
	if err := c.collectItems(items, owner, &bctx); err != nil {
		return nil, nil, err
	}
	var nested []ir.ID
	for _, id := range c.crate.Children(owner)[before:] {
		if _, ok := c.crate.Item(id); ok {
			nested = append(nested, id)
		}
	}
	return &bctx, nested, nil
}

func (c *compiler) collectFn(it *ir.Item, v cue.Value, ctx *declCtx) error {
	fn := it.Kind.(*ir.FnItem)
	c.sigs[it.ID] = fn.Sig
	bctx, nested, err := c.bodyScope(it.ID, v, ctx)
	if err != nil {
		return err
	}
	var params []param
	c.signatures = append(c.signatures, func() error {
		var err error
		params, err = c.lowerSig(bctx, v, fn.Sig)
		return err
	})
	c.bodies = append(c.bodies, func() error {
		body, err := c.lowerFnBody(bctx, params, v, nested)
		fn.Body = body
		return err
	})
	return nil
}

// collectValue schedules the type and initializer of a const or static.
func (c *compiler) collectValue(it *ir.Item, v cue.Value, ctx *declCtx) {
	c.signatures = append(c.signatures, func() error {
		t, err := c.declaredType(ctx, v)
		if err != nil {
			return err
		}
		c.valueTys[it.ID] = t
		switch k := it.Kind.(type) {
		case *ir.ConstItem:
			k.Ty = t
		case *ir.StaticItem:
			k.Ty = t
		}
		return nil
	})
	c.bodies = append(c.bodies, func() error {
		body, err := c.lowerValueBody(ctx, v, "value")
		switch k := it.Kind.(type) {
		case *ir.ConstItem:
			k.Body = body
		case *ir.StaticItem:
			k.Body = body
		}
		return err
	})
}

// declaredType lowers `type`, defaulting to an inferred type.
func (c *compiler) declaredType(ctx *declCtx, v cue.Value) (*ir.Ty, error) {
	t, err := c.optionalType(ctx, v, "type")
	if err != nil || t != nil {
		return t, err
	}
	return &ir.Ty{ID: c.crate.NewID(), Span: spanOf(v), Kind: &ir.InferTy{}}, nil
}

type fieldDecl struct {
	field *ir.Field
	ty    cue.Value
}

// collectVariantData declares the fields and constructor of a struct,
// union or variant body: `fields: {name: T}` for named fields,
// `tuple: [T]` for positional ones, neither for a unit shape.
func (c *compiler) collectVariantData(d *ir.VariantData, owner ir.ID, v cue.Value, ctx *declCtx, union bool) error {
	var decls []fieldDecl
	fv, named := lookup(v, "fields")
	tv, tuple := lookup(v, "tuple")
	switch {
	case named && tuple:
		return errorAt(v, "fields", "use either fields or tuple, not both")
	case named:
		d.Kind = ir.VariantStruct
		iter, err := fv.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			f, err := c.fieldSpec(iter.Label(), iter.Value(), false)
			if err != nil {
				return err
			}
			decls = append(decls, fieldDecl{field: f, ty: fieldTypeValue(iter.Value())})
		}
	case tuple:
		d.Kind = ir.VariantTuple
		iter, err := tv.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			f, err := c.fieldSpec(fmt.Sprint(i), iter.Value(), true)
			if err != nil {
				return err
			}
			decls = append(decls, fieldDecl{field: f, ty: fieldTypeValue(iter.Value())})
		}
	default:
		d.Kind = ir.VariantUnit
	}
	if union && d.Kind != ir.VariantStruct {
		return errorAt(v, "fields", "unions need named fields")
	}

	for _, fd := range decls {
		if err := c.add(fd.field, owner, fd.ty); err != nil {
			return err
		}
		d.Fields = append(d.Fields, fd.field)
	}
	if d.Kind != ir.VariantStruct {
		ctor := &ir.Ctor{ID: c.crate.NewID(), Of: owner}
		if err := c.add(ctor, owner, v); err != nil {
			return err
		}
		d.Ctor = ctor.ID
	}

	c.signatures = append(c.signatures, func() error {
		fctx := ctx.with(owner, nil)
		for _, fd := range decls {
			t, err := c.typeString(fctx, fd.ty)
			if err != nil {
				return err
			}
			fd.field.Ty = t
			fd.field.Type = c.semType(t)
		}
		return nil
	})
	return nil
}

func fieldTypeValue(v cue.Value) cue.Value {
	if tv, ok := lookup(v, "type"); ok {
		return tv
	}
	return v
}

// fieldSpec declares a field given as a type string or as
// `{type, pub, attrs}`.
func (c *compiler) fieldSpec(name string, v cue.Value, positional bool) (*ir.Field, error) {
	f := &ir.Field{ID: c.crate.NewID(), Name: name, Span: spanOf(v), Positional: positional}
	if v.Kind() == cue.StructKind {
		vis, err := parseVis(v)
		if err != nil {
			return nil, err
		}
		attrs, err := parseAttrs(v)
		if err != nil {
			return nil, err
		}
		f.Vis, f.Attrs = vis, attrs
		if _, ok := lookup(v, "type"); !ok {
			return nil, errorAt(v, "fields", "field `%s` needs a type", name)
		}
	}
	return f, nil
}

func (c *compiler) collectEnum(it *ir.Item, enum *ir.EnumItem, v cue.Value, ctx *declCtx) error {
	vv, ok := lookup(v, "variants")
	if !ok {
		return nil
	}
	iter, err := vv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		val := iter.Value()
		attrs, err := parseAttrs(val)
		if err != nil {
			return err
		}
		variant := &ir.Variant{
			ID:    c.crate.NewID(),
			Name:  iter.Label(),
			Span:  spanOf(val),
			Attrs: attrs,
			Data:  &ir.VariantData{},
		}
		if err := c.add(variant, it.ID, val); err != nil {
			return err
		}
		if err := c.collectVariantData(variant.Data, variant.ID, val, ctx, false); err != nil {
			return err
		}
		if dv, ok := lookup(val, "disr"); ok {
			vctx := ctx.with(variant.ID, nil)
			c.bodies = append(c.bodies, func() error {
				ac, err := c.anonConst(vctx, dv)
				variant.Disr = ac
				return err
			})
		}
		enum.Variants = append(enum.Variants, variant)
	}
	return nil
}

var implItemKeys = []string{"fn", "const", "type"}

func (c *compiler) collectImpl(it *ir.Item, v cue.Value, ctx *declCtx) error {
	impl := it.Kind.(*ir.ImplBlock)
	tv, ok := lookup(v, "type")
	if !ok {
		return errorAt(v, "impl", "impl needs a self type")
	}
	c.headers = append(c.headers, func() error {
		self, err := c.typeString(ctx, tv)
		if err != nil {
			return err
		}
		impl.SelfTy = self
		if trv, ok := lookup(v, "trait"); ok {
			s, err := trv.String()
			if err != nil {
				return formatCUEError(err)
			}
			segs, err := parsePath(s)
			if err != nil {
				return errorAt(trv, "trait", "%v", err)
			}
			pr, err := c.resolveSegs(ctx, segs, typeNS, trv)
			if err != nil {
				return err
			}
			if pr.path == nil || !pr.path.Res.IsDef(ir.DefTrait) {
				return errorAt(trv, "trait", "`%s` is not a trait", s)
			}
			impl.OfTrait = pr.path
		}
		if def := impl.SelfDef(); def.IsValid() {
			c.implsOf[def] = append(c.implsOf[def], it.ID)
		}
		return nil
	})

	mctx := *ctx
	mctx.impl = it.ID
	items, ok := lookup(v, "items")
	if !ok {
		return nil
	}
	iter, err := items.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		id, err := c.collectImplItem(it, iter.Label(), iter.Value(), &mctx)
		if err != nil {
			return err
		}
		impl.Items = append(impl.Items, id)
	}
	return nil
}

func (c *compiler) collectImplItem(impl *ir.Item, name string, v cue.Value, ctx *declCtx) (ir.ID, error) {
	kind, kv, err := kindOf(v, name, implItemKeys)
	if err != nil {
		return ir.NoID, err
	}
	vis, err := parseVis(v)
	if err != nil {
		return ir.NoID, err
	}
	attrs, err := parseAttrs(v)
	if err != nil {
		return ir.NoID, err
	}
	ii := &ir.ImplItem{ID: c.crate.NewID(), Name: name, Span: spanOf(v), Vis: vis, Attrs: attrs, Impl: impl.ID}
	mctx := ctx.with(ii.ID, nil)

	switch kind {
	case "fn":
		fn := &ir.ImplFn{Sig: &ir.FnSig{}}
		ii.Kind = fn
		if err := c.add(ii, impl.ID, v); err != nil {
			return ir.NoID, err
		}
		c.sigs[ii.ID] = fn.Sig
		bctx, nested, err := c.bodyScope(ii.ID, kv, mctx)
		if err != nil {
			return ir.NoID, err
		}
		var params []param
		c.signatures = append(c.signatures, func() error {
			var err error
			params, err = c.lowerSig(bctx, kv, fn.Sig)
			return err
		})
		c.bodies = append(c.bodies, func() error {
			body, err := c.lowerFnBody(bctx, params, kv, nested)
			fn.Body = body
			return err
		})
	case "const":
		k := &ir.ImplConst{}
		ii.Kind = k
		if err := c.add(ii, impl.ID, v); err != nil {
			return ir.NoID, err
		}
		c.signatures = append(c.signatures, func() error {
			t, err := c.declaredType(mctx, kv)
			k.Ty = t
			c.valueTys[ii.ID] = t
			return err
		})
		c.bodies = append(c.bodies, func() error {
			body, err := c.lowerValueBody(mctx, kv, "value")
			k.Body = body
			return err
		})
	case "type":
		k := &ir.ImplType{}
		ii.Kind = k
		if err := c.add(ii, impl.ID, v); err != nil {
			return ir.NoID, err
		}
		c.signatures = append(c.signatures, func() error {
			t, err := c.typeString(mctx, kv)
			k.Ty = t
			return err
		})
	}
	return ii.ID, nil
}

func (c *compiler) collectTrait(it *ir.Item, v cue.Value, ctx *declCtx) error {
	trait := it.Kind.(*ir.TraitDef)
	tctx := *ctx
	tctx.trait = it.ID

	if bv, ok := lookup(v, "bounds"); ok {
		c.headers = append(c.headers, func() error {
			bounds, err := c.boundList(&tctx, bv)
			trait.Bounds = bounds
			return err
		})
	}

	items, ok := lookup(v, "items")
	if !ok {
		return nil
	}
	iter, err := items.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		id, err := c.collectTraitItem(it, iter.Label(), iter.Value(), &tctx)
		if err != nil {
			return err
		}
		trait.Items = append(trait.Items, id)
	}
	return nil
}

func (c *compiler) boundList(ctx *declCtx, v cue.Value) ([]*ir.Path, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var bounds [][]tySeg
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		segs, err := parsePath(s)
		if err != nil {
			return nil, errorAt(iter.Value(), "bounds", "%v", err)
		}
		bounds = append(bounds, segs)
	}
	return c.lowerBounds(ctx, bounds, v)
}

func (c *compiler) collectTraitItem(trait *ir.Item, name string, v cue.Value, ctx *declCtx) (ir.ID, error) {
	kind, kv, err := kindOf(v, name, implItemKeys)
	if err != nil {
		return ir.NoID, err
	}
	attrs, err := parseAttrs(v)
	if err != nil {
		return ir.NoID, err
	}
	ti := &ir.TraitItem{ID: c.crate.NewID(), Name: name, Span: spanOf(v), Attrs: attrs, Trait: trait.ID}
	mctx := ctx.with(ti.ID, nil)

	switch kind {
	case "fn":
		fn := &ir.TraitFn{Sig: &ir.FnSig{}}
		ti.Kind = fn
		if err := c.add(ti, trait.ID, v); err != nil {
			return ir.NoID, err
		}
		c.sigs[ti.ID] = fn.Sig
		bctx, nested, err := c.bodyScope(ti.ID, kv, mctx)
		if err != nil {
			return ir.NoID, err
		}
		var params []param
		c.signatures = append(c.signatures, func() error {
			var err error
			params, err = c.lowerSig(bctx, kv, fn.Sig)
			return err
		})
		if _, provided := lookup(kv, "body"); provided {
			c.bodies = append(c.bodies, func() error {
				body, err := c.lowerFnBody(bctx, params, kv, nested)
				fn.Body = body
				return err
			})
		}
	case "const":
		k := &ir.TraitConst{}
		ti.Kind = k
		if err := c.add(ti, trait.ID, v); err != nil {
			return ir.NoID, err
		}
		c.signatures = append(c.signatures, func() error {
			t, err := c.declaredType(mctx, kv)
			k.Ty = t
			c.valueTys[ti.ID] = t
			return err
		})
		if _, provided := lookup(kv, "value"); provided {
			c.bodies = append(c.bodies, func() error {
				body, err := c.lowerValueBody(mctx, kv, "value")
				k.Default = body
				return err
			})
		}
	case "type":
		k := &ir.TraitType{}
		ti.Kind = k
		if err := c.add(ti, trait.ID, v); err != nil {
			return ir.NoID, err
		}
		c.signatures = append(c.signatures, func() error {
			if bv, ok := lookup(kv, "bounds"); ok {
				bounds, err := c.boundList(mctx, bv)
				if err != nil {
					return err
				}
				k.Bounds = bounds
			}
			t, err := c.optionalType(mctx, kv, "default")
			k.Default = t
			return err
		})
	}
	return ti.ID, nil
}

var foreignItemKeys = []string{"fn", "static", "type"}

func (c *compiler) collectForeign(it *ir.Item, v cue.Value, ctx *declCtx) error {
	fm := it.Kind.(*ir.ForeignMod)
	items, ok := lookup(v, "items")
	if !ok {
		return nil
	}
	iter, err := items.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name, val := iter.Label(), iter.Value()
		kind, kv, err := kindOf(val, name, foreignItemKeys)
		if err != nil {
			return err
		}
		vis, err := parseVis(val)
		if err != nil {
			return err
		}
		attrs, err := parseAttrs(val)
		if err != nil {
			return err
		}
		fi := &ir.ForeignItem{ID: c.crate.NewID(), Name: name, Span: spanOf(val), Vis: vis, Attrs: attrs}
		fctx := ctx.with(fi.ID, nil)
		ns := valueNS
		switch kind {
		case "fn":
			k := &ir.ForeignFn{Sig: &ir.FnSig{}}
			fi.Kind = k
			c.sigs[fi.ID] = k.Sig
			c.signatures = append(c.signatures, func() error {
				_, err := c.lowerSig(fctx, kv, k.Sig)
				return err
			})
		case "static":
			mut, err := boolAt(kv, "mut")
			if err != nil {
				return err
			}
			k := &ir.ForeignStatic{Mut: mut}
			fi.Kind = k
			c.signatures = append(c.signatures, func() error {
				t, err := c.declaredType(fctx, kv)
				k.Ty = t
				c.valueTys[fi.ID] = t
				return err
			})
		case "type":
			fi.Kind = &ir.ForeignType{}
			ns = typeNS
		}
		if err := c.add(fi, it.ID, val); err != nil {
			return err
		}
		if err := c.define(ctx.scope, ns, name, fi.ID, val); err != nil {
			return err
		}
		fm.Items = append(fm.Items, fi.ID)
	}
	return nil
}
