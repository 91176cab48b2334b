package compiler

import (
	"github.com/roach88/deadlint/internal/ir"
)

// computeAccess fills the crate's accessibility table. A declaration is
// public when every module on its path from the root is pub; types named
// by public signatures are reachable, and opaque types returned by them
// are reachable only through impl Trait.
func (c *compiler) computeAccess() {
	c.publicItems(c.crate.Root)
	for _, id := range c.crate.IDs() {
		it, ok := c.crate.Item(id)
		if !ok {
			continue
		}
		if impl, ok := it.Kind.(*ir.ImplBlock); ok && c.crate.Access.AtLeast(c.crate.Parent(id), ir.AccessPublic) {
			c.publicImpl(it, impl)
		}
	}
	for id, level := range c.crate.Access {
		if level == ir.AccessPublic {
			c.reachFromSignature(id)
		}
	}
}

// publicItems walks the public declarations under a public module. Impls
// are handled once every public type is known.
func (c *compiler) publicItems(module ir.ID) {
	acc := c.crate.Access
	acc.Set(module, ir.AccessPublic)
	for _, id := range c.crate.Children(module) {
		it, ok := c.crate.Item(id)
		if !ok {
			continue
		}
		switch k := it.Kind.(type) {
		case *ir.ImplBlock:
			continue
		case *ir.ForeignMod:
			for _, fid := range k.Items {
				n, _ := c.crate.Node(fid)
				if n.(*ir.ForeignItem).Vis.IsPub() {
					acc.Set(fid, ir.AccessPublic)
				}
			}
			continue
		}
		if !it.Vis.IsPub() {
			continue
		}
		acc.Set(id, ir.AccessPublic)
		switch k := it.Kind.(type) {
		case *ir.ModItem:
			c.publicItems(id)
		case *ir.StructItem:
			c.publicFields(k.Data)
		case *ir.UnionItem:
			c.publicFields(k.Data)
		case *ir.EnumItem:
			for _, v := range k.Variants {
				acc.Set(v.ID, ir.AccessPublic)
				if v.Data.HasCtor() {
					acc.Set(v.Data.Ctor, ir.AccessPublic)
				}
				for _, f := range v.Data.Fields {
					acc.Set(f.ID, ir.AccessPublic)
				}
			}
		case *ir.TraitDef:
			for _, tid := range k.Items {
				acc.Set(tid, ir.AccessPublic)
			}
		}
	}
}

func (c *compiler) publicFields(d *ir.VariantData) {
	allPub := true
	for _, f := range d.Fields {
		if f.Vis.IsPub() {
			c.crate.Access.Set(f.ID, ir.AccessPublic)
		} else {
			allPub = false
		}
	}
	if d.HasCtor() && allPub {
		c.crate.Access.Set(d.Ctor, ir.AccessPublic)
	}
}

// publicImpl handles an impl in a public module. Inherent members follow
// their own visibility; trait impl members are public whenever the self
// type and the trait are.
func (c *compiler) publicImpl(it *ir.Item, impl *ir.ImplBlock) {
	selfPub := true
	if def := impl.SelfDef(); def.IsValid() {
		selfPub = c.crate.Access.AtLeast(def, ir.AccessPublic)
	}
	if !selfPub {
		return
	}
	if impl.IsTraitImpl() {
		if tr := impl.OfTrait.Res.Def; tr.IsValid() && !c.crate.Access.AtLeast(tr, ir.AccessPublic) {
			return
		}
		c.crate.Access.Set(it.ID, ir.AccessPublic)
		for _, id := range impl.Items {
			c.crate.Access.Set(id, ir.AccessPublic)
		}
		return
	}
	for _, id := range impl.Items {
		n, _ := c.crate.Node(id)
		if n.(*ir.ImplItem).Vis.IsPub() {
			c.crate.Access.Set(id, ir.AccessPublic)
		}
	}
}

// reachFromSignature marks what a public declaration's signature exposes.
func (c *compiler) reachFromSignature(id ir.ID) {
	sig, ok := c.sigs[id]
	if !ok {
		return
	}
	for _, t := range sig.Inputs {
		c.reachTy(t, ir.AccessReachable)
	}
	c.reachTy(sig.Output, ir.AccessReachable)
}

func (c *compiler) reachTy(t *ir.Ty, level ir.AccessLevel) {
	if t == nil {
		return
	}
	switch k := t.Kind.(type) {
	case *ir.PathTy:
		rp, ok := k.QPath.(*ir.ResolvedPath)
		if !ok || rp.Path == nil {
			return
		}
		if res := rp.Path.Res; res.Kind == ir.ResDef && res.Def.IsValid() {
			switch res.DefKind {
			case ir.DefStruct, ir.DefUnion, ir.DefEnum, ir.DefTyAlias, ir.DefTrait, ir.DefForeignTy:
				c.crate.Access.Set(res.Def, level)
			}
		}
		for _, seg := range rp.Path.Segments {
			for _, a := range seg.Args {
				c.reachTy(a, level)
			}
		}
	case *ir.RefTy:
		c.reachTy(k.Elem, level)
	case *ir.SliceTy:
		c.reachTy(k.Elem, level)
	case *ir.ArrayTy:
		c.reachTy(k.Elem, level)
	case *ir.TupleTy:
		for _, e := range k.Elems {
			c.reachTy(e, level)
		}
	case *ir.FnPtrTy:
		for _, p := range k.Params {
			c.reachTy(p, level)
		}
		c.reachTy(k.Ret, level)
	case *ir.OpaqueTy:
		c.crate.Access.Set(k.Item, ir.AccessReachableFromImplTrait)
	}
}
