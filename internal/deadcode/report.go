package deadcode

import (
	"strings"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
)

// LevelSource gives the lint level in effect at a declaration.
type LevelSource interface {
	Level(id ir.ID) lint.Level
}

// Lints is the suppression policy the reporter consults. *lint.Levels
// implements it.
type Lints interface {
	Exemptions
	LevelSource
}

type reporter struct {
	crate  *ir.Crate
	oracle *Oracle
	lints  Lints
	sink   Sink
	count  int
}

// Report walks every declaration of the crate from the root module and
// emits a diagnostic for each dead one. A dead item is reported alone:
// its variants, fields, members and nested items are not visited.
func Report(c *ir.Crate, oracle *Oracle, lints Lints, sink Sink) int {
	r := &reporter{crate: c, oracle: oracle, lints: lints, sink: sink}
	if root, ok := c.Item(c.Root); ok {
		r.walkItem(root)
	}
	return r.count
}

func (r *reporter) warn(d ir.Decl, participle string) {
	name := d.DeclName()
	if strings.HasPrefix(name, "_") {
		return
	}
	id := d.NodeID()
	sev, ok := severityOf(r.lints.Level(id))
	if !ok {
		return
	}
	r.count++
	r.sink.Emit(Diagnostic{
		Decl:       id,
		Descr:      r.crate.Descr(id),
		Name:       name,
		Participle: participle,
		Span:       d.DeclSpan(),
		Severity:   sev,
	})
}

func (r *reporter) shouldWarnAboutItem(it *ir.Item) bool {
	switch it.Kind.(type) {
	case *ir.StaticItem, *ir.ConstItem, *ir.FnItem, *ir.TyAliasItem,
		*ir.EnumItem, *ir.StructItem, *ir.UnionItem:
		return !r.oracle.IsLive(it.ID)
	}
	return false
}

func (r *reporter) visitItem(it *ir.Item) {
	if r.shouldWarnAboutItem(it) {
		participle := "used"
		if _, ok := it.Kind.(*ir.StructItem); ok {
			participle = "constructed"
		}
		r.warn(it, participle)
		return
	}
	r.walkItem(it)
}

func (r *reporter) walkItem(it *ir.Item) {
	switch k := it.Kind.(type) {
	case *ir.StructItem:
		r.visitFields(k.Data)
	case *ir.UnionItem:
		r.visitFields(k.Data)
	case *ir.EnumItem:
		for _, v := range k.Variants {
			r.visitVariant(v)
		}
	case *ir.ImplBlock:
		for _, id := range k.Items {
			if n, ok := r.crate.Node(id); ok {
				if ii, ok := n.(*ir.ImplItem); ok {
					r.visitImplItem(ii)
				}
			}
		}
	case *ir.TraitDef:
		for _, id := range k.Items {
			if n, ok := r.crate.Node(id); ok {
				if ti, ok := n.(*ir.TraitItem); ok {
					r.visitTraitItem(ti)
				}
			}
		}
	case *ir.ForeignMod:
		for _, id := range k.Items {
			if n, ok := r.crate.Node(id); ok {
				if fi, ok := n.(*ir.ForeignItem); ok {
					r.visitForeignItem(fi)
				}
			}
		}
	}
	r.visitNestedItems(it.ID)
}

// visitNestedItems visits the items declared inside id: module members and
// items declared in bodies.
func (r *reporter) visitNestedItems(id ir.ID) {
	for _, child := range r.crate.Children(id) {
		if it, ok := r.crate.Item(child); ok {
			r.visitItem(it)
		}
	}
}

func (r *reporter) visitVariant(v *ir.Variant) {
	if !r.oracle.IsLive(v.ID) && !r.lints.IsExempt(v.ID) {
		r.warn(v, "constructed")
		return
	}
	r.visitFields(v.Data)
	r.visitNestedItems(v.ID)
}

func (r *reporter) visitFields(d *ir.VariantData) {
	if d == nil {
		return
	}
	for _, f := range d.Fields {
		if r.shouldWarnAboutField(f) {
			r.warn(f, "read")
		}
	}
}

func (r *reporter) shouldWarnAboutField(f *ir.Field) bool {
	if f.Positional || r.oracle.IsLive(f.ID) {
		return false
	}
	if adt, ok := f.Type.(*ir.AdtType); ok && adt.IsPhantomData() {
		return false
	}
	return !r.lints.IsExempt(f.ID)
}

func (r *reporter) visitForeignItem(fi *ir.ForeignItem) {
	if !r.oracle.IsLive(fi.ID) && !r.lints.IsExempt(fi.ID) {
		r.warn(fi, "used")
	}
}

func (r *reporter) visitImplItem(ii *ir.ImplItem) {
	switch ii.Kind.(type) {
	case *ir.ImplConst, *ir.ImplFn:
		if !r.oracle.IsLive(ii.ID) {
			r.warn(ii, "used")
		}
		r.visitNestedItems(ii.ID)
	case *ir.ImplType:
	}
}

// visitTraitItem never warns about the trait item itself; only items
// nested in a provided body are reported.
func (r *reporter) visitTraitItem(ti *ir.TraitItem) {
	if ti.Provided() {
		r.visitNestedItems(ti.ID)
	}
}
