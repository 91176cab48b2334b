package deadcode

import (
	"slices"

	"github.com/roach88/deadlint/internal/ir"
)

// Exemptions reports declarations that are live by policy: allowed by the
// lint level or carrying an intrinsic marker attribute.
type Exemptions interface {
	IsExempt(id ir.ID) bool
}

// Seed computes the initial worklist and the constructor alias map.
//
// Roots are every declaration accessible from outside the crate, the entry
// point, exempt items (and every variant of an exempt enum), trait impl
// blocks with all their members, exempt members of inherent impls, exempt
// provided trait members and exempt foreign functions and statics.
//
// The alias map sends the synthetic constructor of every tuple or unit
// struct and variant to the struct or variant itself.
func Seed(c *ir.Crate, ex Exemptions) ([]ir.ID, map[ir.ID]ir.ID) {
	var worklist []ir.ID
	aliases := make(map[ir.ID]ir.ID)

	accessible := make([]ir.ID, 0, len(c.Access))
	for id, level := range c.Access {
		if level >= ir.AccessReachable {
			accessible = append(accessible, id)
		}
	}
	slices.Sort(accessible)
	worklist = append(worklist, accessible...)

	if c.Entry.IsValid() {
		worklist = append(worklist, c.Entry)
	}

	for _, id := range c.IDs() {
		n, _ := c.Node(id)
		switch n := n.(type) {
		case *ir.Item:
			worklist = seedItem(c, ex, n, worklist, aliases)
		case *ir.TraitItem:
			if n.Provided() && ex.IsExempt(id) {
				worklist = append(worklist, id)
			}
		case *ir.ForeignItem:
			switch n.Kind.(type) {
			case *ir.ForeignFn, *ir.ForeignStatic:
				if ex.IsExempt(id) {
					worklist = append(worklist, id)
				}
			}
		case *ir.ImplItem:
			// Seeded with their impl block.
		}
	}

	return worklist, aliases
}

func seedItem(c *ir.Crate, ex Exemptions, it *ir.Item, worklist []ir.ID, aliases map[ir.ID]ir.ID) []ir.ID {
	exempt := ex.IsExempt(it.ID)
	if exempt {
		worklist = append(worklist, it.ID)
	}

	switch k := it.Kind.(type) {
	case *ir.EnumItem:
		for _, v := range k.Variants {
			if exempt {
				worklist = append(worklist, v.ID)
			}
			if v.Data.HasCtor() {
				aliases[v.Data.Ctor] = v.ID
			}
		}
	case *ir.ImplBlock:
		if k.IsTraitImpl() {
			worklist = append(worklist, it.ID)
		}
		for _, member := range k.Items {
			if k.IsTraitImpl() || ex.IsExempt(member) {
				worklist = append(worklist, member)
			}
		}
	case *ir.StructItem:
		if k.Data.HasCtor() {
			aliases[k.Data.Ctor] = it.ID
		}
	}
	return worklist
}
