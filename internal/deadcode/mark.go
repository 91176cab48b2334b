package deadcode

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/deadlint/internal/ir"
)

// TypeInfo is what the marker needs from the type checker.
// *ir.TypeckResults implements it.
type TypeInfo interface {
	// NodeType is the type of an expression or pattern.
	NodeType(id ir.ID) (ir.Type, bool)
	// ExprTypeAdjusted is the type of an expression after auto-deref.
	ExprTypeAdjusted(id ir.ID) (ir.Type, bool)
	// TypeDependentDef is the target of a method call or type-relative path.
	TypeDependentDef(id ir.ID) (ir.Res, bool)
	// FieldIndex is the position of the field a field expression, struct
	// literal field or field pattern selects.
	FieldIndex(id ir.ID) (int, bool)
	// QPathRes resolves a path occurring in the given node.
	QPathRes(q ir.QPath, id ir.ID) ir.Res
}

// markState holds the flags scoped to one declaration visit.
type markState struct {
	reprC        bool
	inheritedPub bool
}

type marker struct {
	crate   *ir.Crate
	info    TypeInfo
	logger  *slog.Logger
	aliases map[ir.ID]ir.ID

	worklist []ir.ID
	scanned  map[ir.ID]bool
	live     *LiveSet

	state          markState
	inPat          bool
	ignoreVariants []ir.ID
}

func newMarker(c *ir.Crate, info TypeInfo, worklist []ir.ID, aliases map[ir.ID]ir.ID, logger *slog.Logger) *marker {
	if logger == nil {
		logger = discardLogger()
	}
	return &marker{
		crate:    c,
		info:     info,
		logger:   logger,
		aliases:  aliases,
		worklist: slices.Clone(worklist),
		scanned:  make(map[ir.ID]bool),
		live:     newLiveSet(),
	}
}

// Mark runs the reachability fixpoint from the seeded worklist and returns
// the live set. The only error is an *InternalError for a method call the
// type checker left unresolved.
func Mark(c *ir.Crate, info TypeInfo, worklist []ir.ID, aliases map[ir.ID]ir.ID) (*LiveSet, error) {
	return newMarker(c, info, worklist, aliases, nil).run()
}

func (m *marker) run() (*LiveSet, error) {
	err := m.guard(func() {
		for m.step() {
		}
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debug("marking finished", "scanned", len(m.scanned), "live", m.live.Len())
	return m.live, nil
}

// guard runs fn and turns a bailout into its error.
func (m *marker) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	fn()
	return nil
}

// step processes one worklist entry and reports whether any remain.
func (m *marker) step() bool {
	if len(m.worklist) == 0 {
		return false
	}
	id := m.worklist[len(m.worklist)-1]
	m.worklist = m.worklist[:len(m.worklist)-1]

	if m.scanned[id] {
		return true
	}
	m.scanned[id] = true

	if target, ok := m.aliases[id]; ok {
		id = target
	}
	if n, ok := m.crate.Node(id); ok {
		m.live.insert(id)
		m.visitNode(n)
	}
	return true
}

func (m *marker) fail(code InternalErrorCode, node ir.ID, span ir.Span, format string, args ...any) {
	panic(bailout{err: &InternalError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
		Span:    span,
	}})
}

// shouldExplore reports whether a node has a definition worth visiting
// once it becomes live.
func (m *marker) shouldExplore(id ir.ID) bool {
	n, ok := m.crate.Node(id)
	if !ok {
		return false
	}
	switch n.(type) {
	case *ir.Item, *ir.ImplItem, *ir.ForeignItem, *ir.TraitItem, *ir.Variant, *ir.AnonConst:
		return true
	}
	return false
}

// checkDefID marks a local definition live and queues it for exploration.
func (m *marker) checkDefID(id ir.ID) {
	if !m.crate.Contains(id) {
		return
	}
	_, isAlias := m.aliases[id]
	if m.shouldExplore(id) || isAlias {
		m.worklist = append(m.worklist, id)
	}
	m.live.insert(id)
}

// insertDefID marks a leaf (a field) live without exploring it.
func (m *marker) insertDefID(id ir.ID) {
	if m.crate.Contains(id) {
		m.live.insert(id)
	}
}

func (m *marker) handleRes(res ir.Res) {
	if res.IsDef(ir.DefConst, ir.DefAssocConst, ir.DefTyAlias) {
		m.checkDefID(res.Def)
		return
	}
	if m.inPat {
		return
	}

	switch res.Kind {
	case ir.ResPrimTy, ir.ResSelfCtor, ir.ResLocal, ir.ResToolMod, ir.ResNonMacroAttr, ir.ResErr:
		return
	case ir.ResSelfTy:
		if res.Trait.IsValid() {
			m.checkDefID(res.Trait)
		}
		if res.Impl.IsValid() {
			m.checkDefID(res.Impl)
		}
		return
	}

	switch res.DefKind {
	case ir.DefCtorVariant:
		variant := m.crate.Parent(res.Def)
		m.checkDefID(m.crate.Parent(variant))
		if !slices.Contains(m.ignoreVariants, res.Def) {
			m.checkDefID(variant)
		}
	case ir.DefVariant:
		m.checkDefID(m.crate.Parent(res.Def))
		if !slices.Contains(m.ignoreVariants, res.Def) {
			m.checkDefID(res.Def)
		}
	default:
		m.checkDefID(res.Def)
	}
}

func (m *marker) lookupAndHandleMethod(e *ir.MethodCallExpr) {
	res, ok := m.info.TypeDependentDef(e.ID)
	if !ok || res.Kind != ir.ResDef {
		m.fail(ErrCodeUnresolvedMethod, e.ID, e.Span, "no type-dependent def for method %q", e.Segment.Name)
	}
	m.checkDefID(res.Def)
}

// adtFields returns the fields of the variant of adt that res selects:
// the single variant of a struct or union, or the named enum variant.
func (m *marker) adtFields(adt ir.ID, res ir.Res) []*ir.Field {
	it, ok := m.crate.Item(adt)
	if !ok {
		return nil
	}
	switch k := it.Kind.(type) {
	case *ir.StructItem:
		return k.Data.Fields
	case *ir.UnionItem:
		return k.Data.Fields
	case *ir.EnumItem:
		variant := res.Def
		if res.IsDef(ir.DefCtorVariant) {
			variant = m.crate.Parent(res.Def)
		} else if !res.IsDef(ir.DefVariant) {
			return nil
		}
		for _, v := range k.Variants {
			if v.ID == variant {
				return v.Data.Fields
			}
		}
	}
	return nil
}

func (m *marker) handleFieldAccess(base ir.Expr, id ir.ID) {
	ty, ok := m.info.ExprTypeAdjusted(base.ExprID())
	if !ok {
		return
	}
	switch t := ir.PeelRefs(ty).(type) {
	case *ir.AdtType:
		index, ok := m.info.FieldIndex(id)
		if !ok {
			return
		}
		fields := m.adtFields(t.Def, ir.Res{})
		if index >= 0 && index < len(fields) {
			m.insertDefID(fields[index].ID)
		}
	case *ir.TupleType:
	default:
		m.logger.Debug("field access on non-aggregate", "expr", id, "type", ty.String())
	}
}

func (m *marker) handleFieldPatternMatch(p *ir.StructPat, res ir.Res) {
	ty, ok := m.info.NodeType(p.ID)
	if !ok {
		return
	}
	adt, ok := ir.PeelRefs(ty).(*ir.AdtType)
	if !ok {
		return
	}
	fields := m.adtFields(adt.Def, res)
	for _, fp := range p.Fields {
		if _, wild := fp.Pat.(*ir.WildPat); wild {
			continue
		}
		index, ok := m.info.FieldIndex(fp.ID)
		if ok && index >= 0 && index < len(fields) {
			m.insertDefID(fields[index].ID)
		}
	}
}

// markAsUsedIfUnion marks every field of a local union with more than one
// field once a literal writes any of them: all fields share storage, so a
// write to one is observable through the others.
func (m *marker) markAsUsedIfUnion(adt *ir.AdtType, fields []*ir.ExprField) {
	if len(fields) == 0 {
		return
	}
	it, ok := m.crate.Item(adt.Def)
	if !ok {
		return
	}
	u, ok := it.Kind.(*ir.UnionItem)
	if !ok || len(u.Data.Fields) <= 1 {
		return
	}
	for _, f := range u.Data.Fields {
		m.insertDefID(f.ID)
	}
}

// visitNode explores a live declaration. Scoped flags start cleared and are
// restored afterwards.
func (m *marker) visitNode(n ir.Node) {
	saved := m.state
	m.state = markState{}
	defer func() { m.state = saved }()

	switch n := n.(type) {
	case *ir.Item:
		switch n.Kind.(type) {
		case *ir.StructItem, *ir.UnionItem:
			m.state.reprC = n.Attrs.ReprC()
			m.walkItem(n)
		case *ir.EnumItem:
			m.state.inheritedPub = n.Vis.IsPub()
			m.walkItem(n)
		case *ir.ForeignMod:
		default:
			m.walkItem(n)
		}
	case *ir.TraitItem:
		m.walkTraitItem(n)
	case *ir.ImplItem:
		m.walkImplItem(n)
	case *ir.ForeignItem:
		m.walkForeignItem(n)
	}
}

// walkItem visits an item's signature, bounds and body. Members of impls,
// traits and modules are separate declarations and are not entered.
func (m *marker) walkItem(it *ir.Item) {
	m.visitGenerics(it.Generics)

	switch k := it.Kind.(type) {
	case *ir.FnItem:
		m.visitFnSig(k.Sig)
		m.visitBody(k.Body)
	case *ir.ConstItem:
		m.visitTy(k.Ty)
		m.visitBody(k.Body)
	case *ir.StaticItem:
		m.visitTy(k.Ty)
		m.visitBody(k.Body)
	case *ir.TyAliasItem:
		m.visitTy(k.Ty)
	case *ir.StructItem:
		m.visitVariantData(k.Data)
	case *ir.UnionItem:
		m.visitVariantData(k.Data)
	case *ir.EnumItem:
		for _, v := range k.Variants {
			m.visitVariantData(v.Data)
			if v.Disr != nil {
				m.visitAnonConst(v.Disr)
			}
		}
	case *ir.ImplBlock:
		if k.OfTrait != nil {
			m.visitPath(k.OfTrait)
		}
		m.visitTy(k.SelfTy)
	case *ir.TraitDef:
		for _, b := range k.Bounds {
			m.visitPath(b)
		}
	case *ir.OpaqueTyItem:
		for _, b := range k.Bounds {
			m.visitPath(b)
		}
	case *ir.ForeignMod, *ir.ModItem:
	}
}

func (m *marker) walkTraitItem(ti *ir.TraitItem) {
	switch k := ti.Kind.(type) {
	case *ir.TraitConst:
		m.visitTy(k.Ty)
		m.visitBody(k.Default)
	case *ir.TraitFn:
		m.visitFnSig(k.Sig)
		m.visitBody(k.Body)
	case *ir.TraitType:
		for _, b := range k.Bounds {
			m.visitPath(b)
		}
		m.visitTy(k.Default)
	}
}

func (m *marker) walkImplItem(ii *ir.ImplItem) {
	switch k := ii.Kind.(type) {
	case *ir.ImplConst:
		m.visitTy(k.Ty)
		m.visitBody(k.Body)
	case *ir.ImplFn:
		m.visitFnSig(k.Sig)
		m.visitBody(k.Body)
	case *ir.ImplType:
		m.visitTy(k.Ty)
	}
}

func (m *marker) walkForeignItem(fi *ir.ForeignItem) {
	switch k := fi.Kind.(type) {
	case *ir.ForeignFn:
		m.visitFnSig(k.Sig)
	case *ir.ForeignStatic:
		m.visitTy(k.Ty)
	case *ir.ForeignType:
	}
}

// visitVariantData marks fields live up front when the layout is fixed,
// the enclosing enum is public or the field itself is public, then walks
// the field types.
func (m *marker) visitVariantData(d *ir.VariantData) {
	if d == nil {
		return
	}
	for _, f := range d.Fields {
		if m.state.reprC || m.state.inheritedPub || f.Vis.IsPub() {
			m.live.insert(f.ID)
		}
	}
	for _, f := range d.Fields {
		m.visitTy(f.Ty)
	}
}

func (m *marker) visitGenerics(params []*ir.GenericParam) {
	for _, p := range params {
		for _, b := range p.Bounds {
			m.visitPath(b)
		}
		m.visitTy(p.Default)
	}
}

func (m *marker) visitFnSig(sig *ir.FnSig) {
	if sig == nil {
		return
	}
	for _, t := range sig.Inputs {
		m.visitTy(t)
	}
	m.visitTy(sig.Output)
}

func (m *marker) visitPath(p *ir.Path) {
	if p == nil {
		return
	}
	m.handleRes(p.Res)
	for _, seg := range p.Segments {
		m.visitSegment(seg)
	}
}

func (m *marker) visitSegment(seg *ir.PathSegment) {
	if seg == nil {
		return
	}
	for _, a := range seg.Args {
		m.visitTy(a)
	}
}

func (m *marker) visitQPath(q ir.QPath) {
	switch q := q.(type) {
	case *ir.ResolvedPath:
		m.visitTy(q.QSelf)
		m.visitPath(q.Path)
	case *ir.TypeRelativePath:
		m.visitTy(q.QSelf)
		m.visitSegment(q.Segment)
	}
}

func (m *marker) visitTy(t *ir.Ty) {
	if t == nil {
		return
	}
	switch k := t.Kind.(type) {
	case *ir.PathTy:
		m.visitQPath(k.QPath)
	case *ir.TupleTy:
		for _, e := range k.Elems {
			m.visitTy(e)
		}
	case *ir.RefTy:
		m.visitTy(k.Elem)
	case *ir.SliceTy:
		m.visitTy(k.Elem)
	case *ir.ArrayTy:
		m.visitTy(k.Elem)
		if k.Len != nil {
			m.visitAnonConst(k.Len)
		}
	case *ir.FnPtrTy:
		for _, p := range k.Params {
			m.visitTy(p)
		}
		m.visitTy(k.Ret)
	case *ir.TraitObjectTy:
		for _, b := range k.Bounds {
			m.visitPath(b)
		}
	case *ir.OpaqueTy:
		if it, ok := m.crate.Item(k.Item); ok {
			m.walkItem(it)
		}
		for _, a := range k.Args {
			m.visitTy(a)
		}
	case *ir.NeverTy, *ir.InferTy:
	}
}

func (m *marker) visitAnonConst(c *ir.AnonConst) {
	m.live.insert(c.ID)
	m.visitBody(c.Body)
}

func (m *marker) visitBody(b *ir.Body) {
	if b == nil {
		return
	}
	for _, p := range b.Params {
		m.visitPat(p)
	}
	m.visitExpr(b.Value)
}

func (m *marker) visitBlock(b *ir.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch s := s.(type) {
		case *ir.LocalStmt:
			m.visitExpr(s.Init)
			m.visitPat(s.Pat)
			m.visitTy(s.Ty)
			m.visitBlock(s.Else)
		case *ir.ExprStmt:
			m.visitExpr(s.X)
		case *ir.ItemStmt:
			// Nested items are declarations of their own.
		}
	}
	m.visitExpr(b.Tail)
}

func (m *marker) visitExprs(es []ir.Expr) {
	for _, e := range es {
		m.visitExpr(e)
	}
}

func (m *marker) visitExpr(e ir.Expr) {
	if e == nil {
		return
	}
	switch e := e.(type) {
	case *ir.PathExpr:
		if _, ok := e.QPath.(*ir.TypeRelativePath); ok {
			m.handleRes(m.info.QPathRes(e.QPath, e.ID))
		}
		m.visitQPath(e.QPath)
	case *ir.LitExpr:
	case *ir.CallExpr:
		m.visitExpr(e.Callee)
		m.visitExprs(e.Args)
	case *ir.MethodCallExpr:
		m.lookupAndHandleMethod(e)
		m.visitSegment(e.Segment)
		m.visitExpr(e.Receiver)
		m.visitExprs(e.Args)
	case *ir.FieldExpr:
		m.handleFieldAccess(e.Base, e.ID)
		m.visitExpr(e.Base)
	case *ir.AssignExpr:
		// A write through a field chain is not a read of the field.
		m.visitExpr(ir.StripFields(e.LHS))
		m.visitExpr(e.RHS)
	case *ir.AssignOpExpr:
		// Compound assignment reads its target.
		m.visitExpr(e.LHS)
		m.visitExpr(e.RHS)
	case *ir.BinaryExpr:
		m.visitExpr(e.X)
		m.visitExpr(e.Y)
	case *ir.UnaryExpr:
		m.visitExpr(e.X)
	case *ir.StructExpr:
		m.handleRes(m.info.QPathRes(e.QPath, e.ID))
		if ty, ok := m.info.NodeType(e.ID); ok {
			if adt, ok := ty.(*ir.AdtType); ok {
				m.markAsUsedIfUnion(adt, e.Fields)
			}
		}
		m.visitQPath(e.QPath)
		for _, f := range e.Fields {
			m.visitExpr(f.Expr)
		}
		m.visitExpr(e.Base)
	case *ir.TupleExpr:
		m.visitExprs(e.Elems)
	case *ir.ArrayExpr:
		m.visitExprs(e.Elems)
	case *ir.RepeatExpr:
		m.visitExpr(e.Elem)
		if e.Count != nil {
			m.visitAnonConst(e.Count)
		}
	case *ir.IndexExpr:
		m.visitExpr(e.X)
		m.visitExpr(e.Index)
	case *ir.CastExpr:
		m.visitExpr(e.X)
		m.visitTy(e.Ty)
	case *ir.RefExpr:
		m.visitExpr(e.X)
	case *ir.BlockExpr:
		m.visitBlock(e.Block)
	case *ir.IfExpr:
		m.visitExpr(e.Cond)
		m.visitBlock(e.Then)
		m.visitExpr(e.Else)
	case *ir.LetExpr:
		m.visitExpr(e.Init)
		m.visitPat(e.Pat)
	case *ir.MatchExpr:
		m.visitExpr(e.Scrutinee)
		for _, arm := range e.Arms {
			m.visitArm(arm)
		}
	case *ir.LoopExpr:
		m.visitBlock(e.Body)
	case *ir.ClosureExpr:
		m.visitBody(e.Body)
	case *ir.ReturnExpr:
		m.visitExpr(e.X)
	case *ir.BreakExpr:
		m.visitExpr(e.X)
	case *ir.ConstBlockExpr:
		if e.Const != nil {
			m.visitAnonConst(e.Const)
		}
	}
}

// visitArm hides the variants the arm's pattern requires while the guard
// and body are visited: building them there can only happen if they were
// built somewhere else first.
func (m *marker) visitArm(a *ir.Arm) {
	n := len(m.ignoreVariants)
	m.ignoreVariants = append(m.ignoreVariants, ir.NecessaryVariants(a.Pat)...)
	m.visitPat(a.Pat)
	m.visitExpr(a.Guard)
	m.visitExpr(a.Body)
	m.ignoreVariants = m.ignoreVariants[:n]
}

func (m *marker) visitPat(p ir.Pat) {
	if p == nil {
		return
	}
	saved := m.inPat
	m.inPat = true
	defer func() { m.inPat = saved }()

	switch p := p.(type) {
	case *ir.StructPat:
		m.handleFieldPatternMatch(p, m.info.QPathRes(p.QPath, p.ID))
		m.visitQPath(p.QPath)
		for _, f := range p.Fields {
			m.visitPat(f.Pat)
		}
	case *ir.PathPat:
		m.handleRes(m.info.QPathRes(p.QPath, p.ID))
		m.visitQPath(p.QPath)
	case *ir.TupleStructPat:
		m.visitQPath(p.QPath)
		for _, e := range p.Elems {
			m.visitPat(e)
		}
	case *ir.BindingPat:
		m.visitPat(p.Sub)
	case *ir.TuplePat:
		for _, e := range p.Elems {
			m.visitPat(e)
		}
	case *ir.OrPat:
		for _, a := range p.Alts {
			m.visitPat(a)
		}
	case *ir.RefPat:
		m.visitPat(p.Elem)
	case *ir.LitPat:
		m.visitExpr(p.X)
	case *ir.RangePat:
		m.visitExpr(p.Lo)
		m.visitExpr(p.Hi)
	case *ir.SlicePat:
		for _, e := range p.Elems {
			m.visitPat(e)
		}
	case *ir.WildPat:
	}
}
