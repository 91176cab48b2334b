package ir

import (
	"fmt"
	"slices"
)

// Crate is the unit of analysis: every declaration of one compilation unit,
// indexed by ID, plus the side tables produced by name resolution, privacy
// analysis and type checking.
//
// A Crate is built once by a front end and is read-only afterwards. Lookups
// are not safe for concurrent use with Add.
type Crate struct {
	Name string
	// Root is the ID of the crate's root module item.
	Root ID
	// Entry is the program entry function, NoID for libraries.
	Entry ID
	// Access holds the accessibility levels from privacy analysis.
	Access AccessLevels
	// Typeck holds the type checker's results for every body in the crate.
	Typeck *TypeckResults

	nodes    map[ID]Node
	parents  map[ID]ID
	children map[ID][]ID
	nextID   ID
}

// NewCrate returns a crate containing only its root module.
func NewCrate(name string) *Crate {
	c := &Crate{
		Name:     name,
		Access:   AccessLevels{},
		Typeck:   NewTypeckResults(),
		nodes:    map[ID]Node{},
		parents:  map[ID]ID{},
		children: map[ID][]ID{},
	}
	root := &Item{ID: c.NewID(), Name: name, Vis: VisPublic, Kind: &ModItem{}}
	c.nodes[root.ID] = root
	c.Root = root.ID
	return c
}

// NewID allocates a fresh ID. IDs are shared by declarations, expressions,
// patterns and types.
func (c *Crate) NewID() ID {
	c.nextID++
	return c.nextID
}

// Add registers n under parent. Children are remembered in insertion order.
func (c *Crate) Add(n Node, parent ID) error {
	id := n.NodeID()
	if !id.IsValid() {
		return fmt.Errorf("add node: invalid id")
	}
	if _, dup := c.nodes[id]; dup {
		return fmt.Errorf("add node %s: duplicate id", id)
	}
	if _, ok := c.nodes[parent]; !ok {
		return fmt.Errorf("add node %s: unknown parent %s", id, parent)
	}
	if id > c.nextID {
		c.nextID = id
	}
	c.nodes[id] = n
	c.parents[id] = parent
	c.children[parent] = append(c.children[parent], id)
	return nil
}

// Node returns the node with the given ID.
func (c *Crate) Node(id ID) (Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Item returns the item with the given ID.
func (c *Crate) Item(id ID) (*Item, bool) {
	it, ok := c.nodes[id].(*Item)
	return it, ok
}

// Contains reports whether id is a node of this crate.
func (c *Crate) Contains(id ID) bool {
	_, ok := c.nodes[id]
	return ok
}

// Parent returns the enclosing node of id (NoID for the root).
func (c *Crate) Parent(id ID) ID { return c.parents[id] }

// Children returns the nodes registered directly under id, in declaration
// order.
func (c *Crate) Children(id ID) []ID { return c.children[id] }

// IDs returns every node ID in ascending order.
func (c *Crate) IDs() []ID {
	ids := make([]ID, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered nodes.
func (c *Crate) Len() int { return len(c.nodes) }

// DefKind classifies the node with the given ID. Constructors are told
// apart by what they build.
func (c *Crate) DefKind(id ID) DefKind {
	n, ok := c.nodes[id]
	if !ok {
		return 0
	}
	if ctor, ok := n.(*Ctor); ok {
		if _, isVariant := c.nodes[ctor.Of].(*Variant); isVariant {
			return DefCtorVariant
		}
		return DefCtorStruct
	}
	return DefKindOf(n)
}

// Descr is the human description of a declaration ("function", "struct").
func (c *Crate) Descr(id ID) string { return c.DefKind(id).Descr() }

// IsTraitImpl reports whether the impl block implements a trait.
func (b *ImplBlock) IsTraitImpl() bool { return b.OfTrait != nil }

// SelfDef returns the local definition the impl's self type names, or NoID.
func (b *ImplBlock) SelfDef() ID {
	if b.SelfTy == nil {
		return NoID
	}
	pt, ok := b.SelfTy.Kind.(*PathTy)
	if !ok {
		return NoID
	}
	rp, ok := pt.QPath.(*ResolvedPath)
	if !ok || rp.Path == nil || rp.Path.Res.Kind != ResDef {
		return NoID
	}
	return rp.Path.Res.Def
}

// InherentImplIndex maps each local type to its inherent impl blocks, in
// ID order. The index is computed on every call and the crate is not
// modified, so callers that query it repeatedly should keep the result.
func (c *Crate) InherentImplIndex() map[ID][]ID {
	index := map[ID][]ID{}
	for _, id := range c.IDs() {
		it, ok := c.nodes[id].(*Item)
		if !ok {
			continue
		}
		impl, ok := it.Kind.(*ImplBlock)
		if !ok || impl.IsTraitImpl() {
			continue
		}
		if self := impl.SelfDef(); self.IsValid() {
			index[self] = append(index[self], id)
		}
	}
	return index
}

// AssociatedItems returns the members of an impl block or trait.
func (c *Crate) AssociatedItems(id ID) []ID {
	it, ok := c.Item(id)
	if !ok {
		return nil
	}
	switch k := it.Kind.(type) {
	case *ImplBlock:
		return k.Items
	case *TraitDef:
		return k.Items
	}
	return nil
}
