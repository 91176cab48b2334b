package compiler

import (
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deadlint/internal/ir"
)

// param is a lowered function parameter awaiting its binding pattern.
type param struct {
	name string
	ty   *ir.Ty
	at   cue.Value
}

var (
	unitType  ir.Type = &ir.TupleType{}
	unknown   ir.Type = &ir.OtherType{Descr: "_"}
	neverType ir.Type = &ir.OtherType{Descr: "!"}
)

// lowerSig lowers `self`, `params` and `ret` of a function declaration.
func (c *compiler) lowerSig(ctx *declCtx, v cue.Value, sig *ir.FnSig) ([]param, error) {
	var params []param
	if sv, ok := lookup(v, "self"); ok {
		mode, err := sv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		pr, err := c.resolveSegs(ctx, []tySeg{{name: selfTypeName}}, typeNS, sv)
		if err != nil {
			return nil, err
		}
		t := &ir.Ty{ID: c.crate.NewID(), Span: spanOf(sv), Kind: &ir.PathTy{QPath: pr.qpath()}}
		switch mode {
		case "value":
		case "&", "&mut":
			t = &ir.Ty{ID: c.crate.NewID(), Span: t.Span, Kind: &ir.RefTy{Elem: t, Mut: mode == "&mut"}}
		default:
			return nil, errorAt(sv, "self", "receiver must be \"value\", \"&\" or \"&mut\", got %q", mode)
		}
		sig.Inputs = append(sig.Inputs, t)
		params = append(params, param{name: "self", ty: t, at: sv})
	}
	if pv, ok := lookup(v, "params"); ok {
		iter, err := pv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := c.typeString(ctx, iter.Value())
			if err != nil {
				return nil, err
			}
			sig.Inputs = append(sig.Inputs, t)
			params = append(params, param{name: iter.Label(), ty: t, at: iter.Value()})
		}
	}
	ret, err := c.optionalType(ctx, v, "ret")
	if err != nil {
		return nil, err
	}
	sig.Output = ret
	return params, nil
}

// lowerFnBody lowers the `body` statement list of a function. Nested items
// become item statements ahead of the code.
func (c *compiler) lowerFnBody(ctx *declCtx, params []param, v cue.Value, nested []ir.ID) (*ir.Body, error) {
	l := c.newLowerer(ctx)
	body := &ir.Body{}
	for _, p := range params {
		pat := &ir.BindingPat{PatBase: ir.PatBase{ID: c.crate.NewID(), Span: spanOf(p.at)}, Name: p.name}
		l.bind(pat, c.semType(p.ty))
		body.Params = append(body.Params, pat)
	}

	block := &ir.Block{}
	for _, id := range nested {
		block.Stmts = append(block.Stmts, &ir.ItemStmt{Item: id})
	}
	if bv, ok := lookup(v, "body"); ok {
		b, err := l.block(bv)
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, b.Stmts...)
		block.Tail = b.Tail
	}
	body.Value = l.blockExpr(block, spanOf(v))
	return body, nil
}

// lowerValueBody lowers the initializer at key of a constant or static.
func (c *compiler) lowerValueBody(ctx *declCtx, v cue.Value, key string) (*ir.Body, error) {
	iv, ok := lookup(v, key)
	if !ok {
		return nil, errorAt(v, key, "missing initializer")
	}
	e, err := c.newLowerer(ctx).expr(iv)
	if err != nil {
		return nil, err
	}
	return &ir.Body{Value: e}, nil
}

// anonConst lowers an expression into an anonymous constant owned by the
// context's declaration.
func (c *compiler) anonConst(ctx *declCtx, v cue.Value) (*ir.AnonConst, error) {
	ac := &ir.AnonConst{ID: c.crate.NewID()}
	if err := c.add(ac, ctx.owner, v); err != nil {
		return nil, err
	}
	e, err := c.newLowerer(ctx).expr(v)
	if err != nil {
		return nil, err
	}
	ac.Body = &ir.Body{Value: e}
	return ac, nil
}

type local struct {
	id ir.ID
	ty ir.Type
}

// lowerer lowers one body. Locals live in a stack of frames; items are
// resolved through the declaration context.
type lowerer struct {
	c      *compiler
	ctx    *declCtx
	tc     *ir.TypeckResults
	frames []map[string]local
}

func (c *compiler) newLowerer(ctx *declCtx) *lowerer {
	return &lowerer{c: c, ctx: ctx, tc: c.crate.Typeck, frames: []map[string]local{{}}}
}

func (l *lowerer) push() { l.frames = append(l.frames, map[string]local{}) }
func (l *lowerer) pop()  { l.frames = l.frames[:len(l.frames)-1] }

func (l *lowerer) bind(p *ir.BindingPat, ty ir.Type) {
	l.frames[len(l.frames)-1][p.Name] = local{id: p.ID, ty: ty}
	l.tc.SetType(p.ID, ty)
}

func (l *lowerer) local(name string) (local, bool) {
	for i := len(l.frames) - 1; i >= 0; i-- {
		if loc, ok := l.frames[i][name]; ok {
			return loc, true
		}
	}
	return local{}, false
}

func (l *lowerer) typeOf(e ir.Expr) ir.Type {
	if e == nil {
		return unitType
	}
	if t, ok := l.tc.NodeType(e.ExprID()); ok {
		return t
	}
	return unknown
}

func (l *lowerer) base(v cue.Value) ir.ExprBase {
	return ir.ExprBase{ID: l.c.crate.NewID(), Span: spanOf(v)}
}

func (l *lowerer) blockExpr(b *ir.Block, span ir.Span) *ir.BlockExpr {
	e := &ir.BlockExpr{ExprBase: ir.ExprBase{ID: l.c.crate.NewID(), Span: span}, Block: b}
	l.tc.SetType(e.ID, l.typeOf(b.Tail))
	return e
}

// block lowers a statement list. The last element is the tail when it is
// an expression.
func (l *lowerer) block(v cue.Value) (*ir.Block, error) {
	if v.Kind() != cue.ListKind {
		e, err := l.expr(v)
		if err != nil {
			return nil, err
		}
		return &ir.Block{Tail: e}, nil
	}
	l.push()
	defer l.pop()

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var elems []cue.Value
	for iter.Next() {
		elems = append(elems, iter.Value())
	}
	b := &ir.Block{}
	for i, sv := range elems {
		if _, isLocal := lookup(sv, "local"); isLocal && sv.Kind() == cue.StructKind {
			s, err := l.localStmt(sv)
			if err != nil {
				return nil, err
			}
			b.Stmts = append(b.Stmts, s)
			continue
		}
		e, err := l.expr(sv)
		if err != nil {
			return nil, err
		}
		if i == len(elems)-1 {
			b.Tail = e
		} else {
			b.Stmts = append(b.Stmts, &ir.ExprStmt{X: e})
		}
	}
	return b, nil
}

// localStmt lowers `{local: pat, type?, init?, else?}`. The initializer and
// the else block do not see the new bindings.
func (l *lowerer) localStmt(v cue.Value) (*ir.LocalStmt, error) {
	s := &ir.LocalStmt{}
	t, err := l.c.optionalType(l.ctx, v, "type")
	if err != nil {
		return nil, err
	}
	s.Ty = t
	if iv, ok := lookup(v, "init"); ok {
		if s.Init, err = l.expr(iv); err != nil {
			return nil, err
		}
	}
	if ev, ok := lookup(v, "else"); ok {
		if s.Else, err = l.block(ev); err != nil {
			return nil, err
		}
	}
	expected := l.typeOf(s.Init)
	if s.Init == nil {
		expected = unknown
	}
	if t != nil {
		expected = l.c.semType(t)
	}
	pv, _ := lookup(v, "local")
	if s.Pat, err = l.pat(pv, expected); err != nil {
		return nil, err
	}
	return s, nil
}

var exprKeys = []string{
	"call", "method", "field", "assign", "assign_op", "struct", "match", "cond",
	"if_let", "loop", "while", "block", "closure", "binary", "unary", "deref",
	"ref", "tuple", "array", "repeat", "index", "cast", "return", "break",
	"const_block", "lit",
}

func (l *lowerer) expr(v cue.Value) (ir.Expr, error) {
	switch v.Kind() {
	case cue.IntKind, cue.FloatKind, cue.BoolKind:
		return l.lit(v)
	case cue.StringKind:
		s, _ := v.String()
		return l.pathExpr(s, v)
	case cue.NullKind:
		e := &ir.TupleExpr{ExprBase: l.base(v)}
		l.tc.SetType(e.ID, unitType)
		return e, nil
	case cue.ListKind:
		b, err := l.block(v)
		if err != nil {
			return nil, err
		}
		return l.blockExpr(b, spanOf(v)), nil
	case cue.StructKind:
	default:
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		return nil, errorAt(v, "expr", "unsupported expression of kind %s", v.Kind())
	}

	kind, kv, err := kindOf(v, "expr", exprKeys)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "call":
		return l.call(v, kv)
	case "method":
		return l.methodCall(v, kv)
	case "field":
		return l.field(v, kv)
	case "assign":
		return l.assign(v, kv)
	case "assign_op":
		return l.assignOp(v, kv)
	case "struct":
		return l.structExpr(v, kv)
	case "match":
		return l.match(v, kv)
	case "cond":
		return l.cond(v, kv)
	case "if_let":
		return l.ifLet(v, kv)
	case "loop":
		body, err := l.block(kv)
		if err != nil {
			return nil, err
		}
		e := &ir.LoopExpr{ExprBase: l.base(v), Body: body}
		l.tc.SetType(e.ID, unknown)
		return e, nil
	case "while":
		return l.while(v, kv)
	case "block":
		b, err := l.block(kv)
		if err != nil {
			return nil, err
		}
		return l.blockExpr(b, spanOf(v)), nil
	case "closure":
		return l.closure(v, kv)
	case "binary":
		return l.binary(v, kv)
	case "unary":
		op, err := kv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		x, err := l.operand(v, "x")
		if err != nil {
			return nil, err
		}
		e := &ir.UnaryExpr{ExprBase: l.base(v), Op: op, X: x}
		l.tc.SetType(e.ID, l.typeOf(x))
		return e, nil
	case "deref":
		x, err := l.expr(kv)
		if err != nil {
			return nil, err
		}
		e := &ir.UnaryExpr{ExprBase: l.base(v), Op: "*", X: x}
		t := unknown
		if r, ok := l.typeOf(x).(*ir.RefType); ok {
			t = r.Elem
		}
		l.tc.SetType(e.ID, t)
		return e, nil
	case "ref":
		x, err := l.expr(kv)
		if err != nil {
			return nil, err
		}
		mut, err := boolAt(v, "mut")
		if err != nil {
			return nil, err
		}
		e := &ir.RefExpr{ExprBase: l.base(v), X: x, Mut: mut}
		l.tc.SetType(e.ID, &ir.RefType{Elem: l.typeOf(x), Mut: mut})
		return e, nil
	case "tuple":
		elems, err := l.exprList(kv)
		if err != nil {
			return nil, err
		}
		e := &ir.TupleExpr{ExprBase: l.base(v), Elems: elems}
		tt := &ir.TupleType{}
		for _, x := range elems {
			tt.Elems = append(tt.Elems, l.typeOf(x))
		}
		l.tc.SetType(e.ID, tt)
		return e, nil
	case "array":
		elems, err := l.exprList(kv)
		if err != nil {
			return nil, err
		}
		e := &ir.ArrayExpr{ExprBase: l.base(v), Elems: elems}
		l.tc.SetType(e.ID, &ir.OtherType{Descr: "array"})
		return e, nil
	case "repeat":
		return l.repeat(v, kv)
	case "index":
		x, err := l.expr(kv)
		if err != nil {
			return nil, err
		}
		at, err := l.operand(v, "at")
		if err != nil {
			return nil, err
		}
		e := &ir.IndexExpr{ExprBase: l.base(v), X: x, Index: at}
		l.tc.SetType(e.ID, unknown)
		return e, nil
	case "cast":
		x, err := l.expr(kv)
		if err != nil {
			return nil, err
		}
		tv, ok := lookup(v, "to")
		if !ok {
			return nil, errorAt(v, "cast", "cast needs a target type")
		}
		t, err := l.c.typeString(l.ctx, tv)
		if err != nil {
			return nil, err
		}
		e := &ir.CastExpr{ExprBase: l.base(v), X: x, Ty: t}
		l.tc.SetType(e.ID, l.c.semType(t))
		return e, nil
	case "return", "break":
		var x ir.Expr
		if kv.Kind() != cue.NullKind {
			if x, err = l.expr(kv); err != nil {
				return nil, err
			}
		}
		var e ir.Expr
		if kind == "return" {
			e = &ir.ReturnExpr{ExprBase: l.base(v), X: x}
		} else {
			e = &ir.BreakExpr{ExprBase: l.base(v), X: x}
		}
		l.tc.SetType(e.ExprID(), neverType)
		return e, nil
	case "const_block":
		ac, err := l.c.anonConst(l.ctx, kv)
		if err != nil {
			return nil, err
		}
		e := &ir.ConstBlockExpr{ExprBase: l.base(v), Const: ac}
		l.tc.SetType(e.ID, l.typeOf(ac.Body.Value))
		return e, nil
	case "lit":
		return l.lit(kv)
	}
	return nil, errorAt(v, "expr", "unsupported expression %q", kind)
}

// operand lowers the required sub-expression at key.
func (l *lowerer) operand(v cue.Value, key string) (ir.Expr, error) {
	ov, ok := lookup(v, key)
	if !ok {
		return nil, errorAt(v, key, "missing operand %q", key)
	}
	return l.expr(ov)
}

func (l *lowerer) exprList(v cue.Value) ([]ir.Expr, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.Expr
	for iter.Next() {
		e, err := l.expr(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *lowerer) optionalList(v cue.Value, key string) ([]ir.Expr, error) {
	lv, ok := lookup(v, key)
	if !ok {
		return nil, nil
	}
	return l.exprList(lv)
}

func (l *lowerer) lit(v cue.Value) (ir.Expr, error) {
	e := &ir.LitExpr{ExprBase: l.base(v)}
	var t ir.Type
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e.Value, t = strconv.FormatInt(n, 10), &ir.PrimType{Name: "i32"}
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e.Value, t = strconv.FormatFloat(f, 'g', -1, 64), &ir.PrimType{Name: "f64"}
	case cue.BoolKind:
		b, _ := v.Bool()
		e.Value, t = strconv.FormatBool(b), &ir.PrimType{Name: "bool"}
	case cue.StringKind:
		s, _ := v.String()
		e.Value, t = strconv.Quote(s), &ir.RefType{Elem: &ir.PrimType{Name: "str"}}
	default:
		return nil, errorAt(v, "lit", "unsupported literal of kind %s", v.Kind())
	}
	l.tc.SetType(e.ID, t)
	return e, nil
}

// pathExpr lowers a value path: a local when a single segment names one,
// otherwise an item, constructor or associated item.
func (l *lowerer) pathExpr(s string, v cue.Value) (ir.Expr, error) {
	e := &ir.PathExpr{ExprBase: l.base(v)}
	segs, err := parsePath(s)
	if err != nil {
		return nil, errorAt(v, "path", "%v", err)
	}
	if len(segs) == 1 && len(segs[0].args) == 0 {
		if loc, ok := l.local(segs[0].name); ok {
			e.QPath = &ir.ResolvedPath{Path: &ir.Path{
				Span:     e.Span,
				Res:      ir.Res{Kind: ir.ResLocal, Def: loc.id},
				Segments: []*ir.PathSegment{{Name: segs[0].name}},
			}}
			l.tc.SetType(e.ID, loc.ty)
			return e, nil
		}
	}
	pr, err := l.c.resolveSegs(l.ctx, segs, valueNS, v)
	if err != nil {
		return nil, err
	}
	if pr.relative != nil {
		l.tc.SetTypeDependentDef(e.ID, pr.target)
	}
	e.QPath = pr.qpath()
	l.tc.SetType(e.ID, l.valueType(pr.res()))
	return e, nil
}

// valueType is the type of a path used as a value. Unit constructors have
// their ADT's type; functions and tuple constructors are typed at the call.
func (l *lowerer) valueType(res ir.Res) ir.Type {
	switch res.Kind {
	case ir.ResSelfCtor:
		return l.selfType(res.Def)
	case ir.ResDef:
	default:
		return unknown
	}
	if !res.Def.IsValid() {
		return unknown
	}
	switch res.DefKind {
	case ir.DefConst, ir.DefStatic, ir.DefAssocConst:
		if t, ok := l.c.valueTys[res.Def]; ok {
			return l.c.semType(t)
		}
	case ir.DefCtorStruct, ir.DefCtorVariant:
		n, _ := l.c.crate.Node(res.Def)
		if ctor := n.(*ir.Ctor); l.ctorKind(ctor) == ir.VariantUnit {
			return l.adtOf(ctor.Of)
		}
		return &ir.OtherType{Descr: "fn item"}
	case ir.DefFn, ir.DefAssocFn:
		return &ir.OtherType{Descr: "fn item"}
	}
	return unknown
}

func (l *lowerer) ctorKind(ctor *ir.Ctor) ir.VariantKind {
	n, _ := l.c.crate.Node(ctor.Of)
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

// adtOf is the type of values of a struct, union or enum, or of the enum
// owning a variant.
func (l *lowerer) adtOf(id ir.ID) ir.Type {
	if l.c.crate.DefKind(id) == ir.DefVariant {
		id = l.c.crate.Parent(id)
	}
	return &ir.AdtType{Def: id, Path: l.c.crate.DefPath(id)}
}

func (l *lowerer) selfType(impl ir.ID) ir.Type {
	if it, ok := l.c.crate.Item(impl); ok {
		if b, ok := it.Kind.(*ir.ImplBlock); ok {
			return l.c.semType(b.SelfTy)
		}
	}
	return &ir.OtherType{Descr: selfTypeName}
}

// returnType is the result type of calling the resolved callee.
func (l *lowerer) returnType(res ir.Res) ir.Type {
	switch res.Kind {
	case ir.ResSelfCtor:
		return l.selfType(res.Def)
	case ir.ResDef:
	default:
		return unknown
	}
	if !res.Def.IsValid() {
		return unknown
	}
	switch res.DefKind {
	case ir.DefCtorStruct, ir.DefCtorVariant:
		n, _ := l.c.crate.Node(res.Def)
		return l.adtOf(n.(*ir.Ctor).Of)
	case ir.DefFn, ir.DefAssocFn:
		if sig, ok := l.c.sigs[res.Def]; ok {
			return l.c.semType(sig.Output)
		}
	}
	return unknown
}

func (l *lowerer) call(v, kv cue.Value) (ir.Expr, error) {
	callee, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	args, err := l.optionalList(v, "args")
	if err != nil {
		return nil, err
	}
	e := &ir.CallExpr{ExprBase: l.base(v), Callee: callee, Args: args}
	t := unknown
	if p, ok := callee.(*ir.PathExpr); ok {
		t = l.returnType(l.tc.QPathRes(p.QPath, p.ID))
	}
	l.tc.SetType(e.ID, t)
	return e, nil
}

func (l *lowerer) methodCall(v, kv cue.Value) (ir.Expr, error) {
	name, err := kv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	recv, err := l.operand(v, "recv")
	if err != nil {
		return nil, err
	}
	args, err := l.optionalList(v, "args")
	if err != nil {
		return nil, err
	}
	e := &ir.MethodCallExpr{
		ExprBase: l.base(v),
		Segment:  &ir.PathSegment{Name: name},
		Receiver: recv,
		Args:     args,
	}
	res, err := l.c.assocItem(l.ctx, l.typeOf(recv), name, valueNS, kv)
	if err != nil {
		return nil, err
	}
	l.tc.SetTypeDependentDef(e.ID, res)
	l.tc.SetType(e.ID, l.returnType(res))
	return e, nil
}

// fields returns the fields of the struct or union behind t, or of the
// variant res selects when t is an enum.
func (l *lowerer) fields(t ir.Type, res ir.Res) ([]*ir.Field, bool) {
	adt, ok := ir.PeelRefs(t).(*ir.AdtType)
	if !ok || !adt.Def.IsValid() {
		return nil, false
	}
	it, ok := l.c.crate.Item(adt.Def)
	if !ok {
		return nil, false
	}
	switch k := it.Kind.(type) {
	case *ir.StructItem:
		return k.Data.Fields, true
	case *ir.UnionItem:
		return k.Data.Fields, true
	case *ir.EnumItem:
		variant := res.Def
		if res.IsDef(ir.DefCtorVariant) {
			variant = l.c.crate.Parent(res.Def)
		}
		for _, vr := range k.Variants {
			if vr.ID == variant {
				return vr.Data.Fields, true
			}
		}
	}
	return nil, false
}

func fieldIndex(fields []*ir.Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (l *lowerer) field(v, kv cue.Value) (ir.Expr, error) {
	var name string
	switch kv.Kind() {
	case cue.IntKind:
		n, _ := kv.Int64()
		name = strconv.FormatInt(n, 10)
	default:
		s, err := kv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		name = s
	}
	base, err := l.operand(v, "of")
	if err != nil {
		return nil, err
	}
	e := &ir.FieldExpr{ExprBase: l.base(v), Base: base, Name: name}
	bt := l.typeOf(base)
	peeled := ir.PeelRefs(bt)
	if peeled != bt {
		l.tc.SetAdjustedType(base.ExprID(), peeled)
	}

	t := unknown
	switch pt := peeled.(type) {
	case *ir.AdtType:
		if fields, ok := l.fields(pt, ir.Res{}); ok {
			i := fieldIndex(fields, name)
			if i < 0 {
				return nil, errorAt(kv, "field", "no field `%s` on type `%s`", name, pt.Path)
			}
			l.tc.SetFieldIndex(e.ID, i)
			t = fields[i].Type
		}
	case *ir.TupleType:
		if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(pt.Elems) {
			l.tc.SetFieldIndex(e.ID, i)
			t = pt.Elems[i]
		}
	}
	if t == nil {
		t = unknown
	}
	l.tc.SetType(e.ID, t)
	return e, nil
}

func (l *lowerer) assign(v, kv cue.Value) (ir.Expr, error) {
	lhs, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	rhs, err := l.operand(v, "value")
	if err != nil {
		return nil, err
	}
	e := &ir.AssignExpr{ExprBase: l.base(v), LHS: lhs, RHS: rhs}
	l.tc.SetType(e.ID, unitType)
	return e, nil
}

func (l *lowerer) assignOp(v, kv cue.Value) (ir.Expr, error) {
	op, err := kv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	lhs, err := l.operand(v, "target")
	if err != nil {
		return nil, err
	}
	rhs, err := l.operand(v, "value")
	if err != nil {
		return nil, err
	}
	e := &ir.AssignOpExpr{ExprBase: l.base(v), Op: strings.TrimSuffix(op, "="), LHS: lhs, RHS: rhs}
	l.tc.SetType(e.ID, unitType)
	return e, nil
}

var comparisons = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true, "&&": true, "||": true}

func (l *lowerer) binary(v, kv cue.Value) (ir.Expr, error) {
	op, err := kv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	x, err := l.operand(v, "x")
	if err != nil {
		return nil, err
	}
	y, err := l.operand(v, "y")
	if err != nil {
		return nil, err
	}
	e := &ir.BinaryExpr{ExprBase: l.base(v), Op: op, X: x, Y: y}
	if comparisons[op] {
		l.tc.SetType(e.ID, &ir.PrimType{Name: "bool"})
	} else {
		l.tc.SetType(e.ID, l.typeOf(x))
	}
	return e, nil
}

// structPath resolves the path of a struct literal or struct pattern and
// returns the type it builds.
func (l *lowerer) structPath(kv cue.Value, id ir.ID) (ir.QPath, ir.Res, ir.Type, error) {
	s, err := kv.String()
	if err != nil {
		return nil, ir.Res{}, nil, formatCUEError(err)
	}
	segs, err := parsePath(s)
	if err != nil {
		return nil, ir.Res{}, nil, errorAt(kv, "struct", "%v", err)
	}
	pr, err := l.c.resolveSegs(l.ctx, segs, typeNS, kv)
	if err != nil {
		return nil, ir.Res{}, nil, err
	}
	if pr.relative != nil {
		l.tc.SetTypeDependentDef(id, pr.target)
	}
	res := pr.res()
	var t ir.Type
	switch {
	case res.Kind == ir.ResSelfTy && res.Impl.IsValid():
		t = l.selfType(res.Impl)
	case res.IsDef(ir.DefStruct, ir.DefUnion, ir.DefVariant) && res.Def.IsValid():
		t = l.adtOf(res.Def)
	case res.IsDef(ir.DefTyAlias) && res.Def.IsValid():
		t = l.c.semOfPath(pr.path)
	default:
		return nil, ir.Res{}, nil, errorAt(kv, "struct", "expected struct, variant or union type, found `%s`", s)
	}
	return pr.qpath(), res, t, nil
}

func (l *lowerer) structExpr(v, kv cue.Value) (ir.Expr, error) {
	e := &ir.StructExpr{ExprBase: l.base(v)}
	q, res, t, err := l.structPath(kv, e.ID)
	if err != nil {
		return nil, err
	}
	e.QPath = q
	l.tc.SetType(e.ID, t)
	fields, _ := l.fields(t, res)

	if fv, ok := lookup(v, "fields"); ok {
		iter, err := fv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			x, err := l.expr(iter.Value())
			if err != nil {
				return nil, err
			}
			f := &ir.ExprField{ID: l.c.crate.NewID(), Span: spanOf(iter.Value()), Name: iter.Label(), Expr: x}
			if i := fieldIndex(fields, f.Name); i >= 0 {
				l.tc.SetFieldIndex(f.ID, i)
			} else if fields != nil {
				return nil, errorAt(iter.Value(), "struct", "no field `%s` in `%s`", f.Name, t)
			}
			e.Fields = append(e.Fields, f)
		}
	}
	if bv, ok := lookup(v, "base"); ok {
		if e.Base, err = l.expr(bv); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (l *lowerer) match(v, kv cue.Value) (ir.Expr, error) {
	scrutinee, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	e := &ir.MatchExpr{ExprBase: l.base(v), Scrutinee: scrutinee}
	av, ok := lookup(v, "arms")
	if !ok {
		return nil, errorAt(v, "match", "match needs arms")
	}
	iter, err := av.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var t ir.Type = neverType
	for iter.Next() {
		arm, err := l.arm(iter.Value(), l.typeOf(scrutinee))
		if err != nil {
			return nil, err
		}
		if t == neverType {
			t = l.typeOf(arm.Body)
		}
		e.Arms = append(e.Arms, arm)
	}
	l.tc.SetType(e.ID, t)
	return e, nil
}

func (l *lowerer) arm(v cue.Value, scrutinee ir.Type) (*ir.Arm, error) {
	l.push()
	defer l.pop()
	pv, ok := lookup(v, "pat")
	if !ok {
		return nil, errorAt(v, "arms", "arm needs a pattern")
	}
	p, err := l.pat(pv, scrutinee)
	if err != nil {
		return nil, err
	}
	arm := &ir.Arm{ID: l.c.crate.NewID(), Pat: p}
	if gv, ok := lookup(v, "guard"); ok {
		if arm.Guard, err = l.expr(gv); err != nil {
			return nil, err
		}
	}
	if arm.Body, err = l.operand(v, "body"); err != nil {
		return nil, err
	}
	return arm, nil
}

func (l *lowerer) optionalElse(v cue.Value) (ir.Expr, error) {
	ev, ok := lookup(v, "else")
	if !ok {
		return nil, nil
	}
	return l.expr(ev)
}

func (l *lowerer) cond(v, kv cue.Value) (ir.Expr, error) {
	cond, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	tv, ok := lookup(v, "then")
	if !ok {
		return nil, errorAt(v, "cond", "cond needs a then branch")
	}
	then, err := l.block(tv)
	if err != nil {
		return nil, err
	}
	els, err := l.optionalElse(v)
	if err != nil {
		return nil, err
	}
	e := &ir.IfExpr{ExprBase: l.base(v), Cond: cond, Then: then, Else: els}
	l.tc.SetType(e.ID, l.typeOf(then.Tail))
	return e, nil
}

// ifLet lowers `{if_let: pat, init, then, else?}`; the bindings are only
// visible in the then branch.
func (l *lowerer) ifLet(v, kv cue.Value) (ir.Expr, error) {
	init, err := l.operand(v, "init")
	if err != nil {
		return nil, err
	}
	tv, ok := lookup(v, "then")
	if !ok {
		return nil, errorAt(v, "if_let", "if_let needs a then branch")
	}

	l.push()
	p, err := l.pat(kv, l.typeOf(init))
	if err != nil {
		l.pop()
		return nil, err
	}
	then, err := l.block(tv)
	l.pop()
	if err != nil {
		return nil, err
	}

	els, err := l.optionalElse(v)
	if err != nil {
		return nil, err
	}
	let := &ir.LetExpr{ExprBase: l.base(kv), Pat: p, Init: init}
	l.tc.SetType(let.ID, &ir.PrimType{Name: "bool"})
	e := &ir.IfExpr{ExprBase: l.base(v), Cond: let, Then: then, Else: els}
	l.tc.SetType(e.ID, l.typeOf(then.Tail))
	return e, nil
}

// while lowers `{while: cond, do}` to `loop { if cond { do } else { break } }`.
func (l *lowerer) while(v, kv cue.Value) (ir.Expr, error) {
	cond, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	dv, ok := lookup(v, "do")
	if !ok {
		return nil, errorAt(v, "while", "while needs a do block")
	}
	body, err := l.block(dv)
	if err != nil {
		return nil, err
	}
	brk := &ir.BreakExpr{ExprBase: l.base(v)}
	l.tc.SetType(brk.ID, neverType)
	exit := l.blockExpr(&ir.Block{Tail: brk}, spanOf(v))
	iff := &ir.IfExpr{ExprBase: l.base(v), Cond: cond, Then: body, Else: exit}
	l.tc.SetType(iff.ID, unitType)
	loop := &ir.LoopExpr{ExprBase: l.base(v), Body: &ir.Block{Tail: iff}}
	l.tc.SetType(loop.ID, unitType)
	return loop, nil
}

func (l *lowerer) closure(v, kv cue.Value) (ir.Expr, error) {
	l.push()
	defer l.pop()
	body := &ir.Body{}
	if pv, ok := lookup(v, "params"); ok {
		iter, err := pv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := l.c.typeString(l.ctx, iter.Value())
			if err != nil {
				return nil, err
			}
			p := &ir.BindingPat{PatBase: ir.PatBase{ID: l.c.crate.NewID(), Span: spanOf(iter.Value())}, Name: iter.Label()}
			l.bind(p, l.c.semType(t))
			body.Params = append(body.Params, p)
		}
	}
	x, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	body.Value = x
	e := &ir.ClosureExpr{ExprBase: l.base(v), Body: body}
	l.tc.SetType(e.ID, &ir.OtherType{Descr: "closure"})
	return e, nil
}

func (l *lowerer) repeat(v, kv cue.Value) (ir.Expr, error) {
	elem, err := l.expr(kv)
	if err != nil {
		return nil, err
	}
	cv, ok := lookup(v, "count")
	if !ok {
		return nil, errorAt(v, "repeat", "repeat needs a count")
	}
	count, err := l.c.anonConst(l.ctx, cv)
	if err != nil {
		return nil, err
	}
	e := &ir.RepeatExpr{ExprBase: l.base(v), Elem: elem, Count: count}
	l.tc.SetType(e.ID, &ir.OtherType{Descr: "array"})
	return e, nil
}

var patKeys = []string{"struct", "tuple_struct", "tuple", "or", "ref", "range", "slice", "bind", "lit"}

func (l *lowerer) patBase(v cue.Value) ir.PatBase {
	return ir.PatBase{ID: l.c.crate.NewID(), Span: spanOf(v)}
}

// pat lowers a pattern matched against a value of the expected type and
// binds its names in the innermost frame.
func (l *lowerer) pat(v cue.Value, expected ir.Type) (ir.Pat, error) {
	var p ir.Pat
	var err error
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		p, err = l.namePat(s, v, expected)
	case cue.IntKind, cue.FloatKind, cue.BoolKind:
		x, lerr := l.lit(v)
		if lerr != nil {
			return nil, lerr
		}
		p = &ir.LitPat{PatBase: l.patBase(v), X: x}
	case cue.StructKind:
		p, err = l.keyedPat(v, expected)
	default:
		return nil, errorAt(v, "pat", "unsupported pattern of kind %s", v.Kind())
	}
	if err != nil {
		return nil, err
	}
	if _, ok := l.tc.NodeType(p.PatID()); !ok {
		l.tc.SetType(p.PatID(), expected)
	}
	return p, nil
}

// namePat lowers `_`, a binding, or a path naming a constant or a unit
// constructor.
func (l *lowerer) namePat(s string, v cue.Value, expected ir.Type) (ir.Pat, error) {
	if s == "_" {
		return &ir.WildPat{PatBase: l.patBase(v)}, nil
	}
	if strings.Contains(s, "::") || l.namesConstant(s) {
		segs, err := parsePath(s)
		if err != nil {
			return nil, errorAt(v, "pat", "%v", err)
		}
		p := &ir.PathPat{PatBase: l.patBase(v)}
		pr, err := l.c.resolveSegs(l.ctx, segs, valueNS, v)
		if err != nil {
			return nil, err
		}
		if pr.relative != nil {
			l.tc.SetTypeDependentDef(p.ID, pr.target)
		}
		p.QPath = pr.qpath()
		return p, nil
	}
	if !isIdent(s) {
		return nil, errorAt(v, "pat", "invalid binding name %q", s)
	}
	p := &ir.BindingPat{PatBase: l.patBase(v), Name: s}
	l.bind(p, expected)
	return p, nil
}

// namesConstant reports whether a bare name in pattern position refers to
// a constant, a static or a unit constructor rather than a new binding.
func (l *lowerer) namesConstant(name string) bool {
	if name == selfTypeName {
		return l.ctx.impl.IsValid()
	}
	if id, ok := l.ctx.scope.lookup(valueNS, name); ok {
		switch l.c.crate.DefKind(id) {
		case ir.DefConst, ir.DefStatic, ir.DefCtorStruct, ir.DefCtorVariant:
			return true
		}
		return false
	}
	if e, ok := prelude[name]; ok {
		return e.kind == ir.DefCtorVariant || e.kind == ir.DefConst
	}
	return false
}

func (l *lowerer) patList(v cue.Value, types []ir.Type) ([]ir.Pat, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.Pat
	for i := 0; iter.Next(); i++ {
		t := unknown
		if i < len(types) && types[i] != nil {
			t = types[i]
		}
		p, err := l.pat(iter.Value(), t)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func fieldTypes(fields []*ir.Field) []ir.Type {
	out := make([]ir.Type, len(fields))
	for i, f := range fields {
		out[i] = f.Type
	}
	return out
}

func (l *lowerer) keyedPat(v cue.Value, expected ir.Type) (ir.Pat, error) {
	kind, kv, err := kindOf(v, "pat", patKeys)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "struct":
		p := &ir.StructPat{PatBase: l.patBase(v)}
		q, res, t, err := l.structPath(kv, p.ID)
		if err != nil {
			return nil, err
		}
		p.QPath = q
		l.tc.SetType(p.ID, t)
		if p.Rest, err = boolAt(v, "rest"); err != nil {
			return nil, err
		}
		fields, _ := l.fields(t, res)
		if fv, ok := lookup(v, "fields"); ok {
			iter, err := fv.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for iter.Next() {
				fp := &ir.PatField{ID: l.c.crate.NewID(), Span: spanOf(iter.Value()), Name: iter.Label()}
				ft := unknown
				if i := fieldIndex(fields, fp.Name); i >= 0 {
					l.tc.SetFieldIndex(fp.ID, i)
					ft = fields[i].Type
				} else if fields != nil {
					return nil, errorAt(iter.Value(), "struct", "no field `%s` in `%s`", fp.Name, t)
				}
				if fp.Pat, err = l.pat(iter.Value(), ft); err != nil {
					return nil, err
				}
				p.Fields = append(p.Fields, fp)
			}
		}
		return p, nil

	case "tuple_struct":
		s, err := kv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		segs, err := parsePath(s)
		if err != nil {
			return nil, errorAt(kv, "tuple_struct", "%v", err)
		}
		p := &ir.TupleStructPat{PatBase: l.patBase(v)}
		pr, err := l.c.resolveSegs(l.ctx, segs, valueNS, kv)
		if err != nil {
			return nil, err
		}
		if pr.relative != nil {
			l.tc.SetTypeDependentDef(p.ID, pr.target)
		}
		p.QPath = pr.qpath()
		t := l.returnType(pr.res())
		l.tc.SetType(p.ID, t)
		var types []ir.Type
		if fields, ok := l.fields(t, pr.res()); ok {
			types = fieldTypes(fields)
		}
		if ev, ok := lookup(v, "elems"); ok {
			if p.Elems, err = l.patList(ev, types); err != nil {
				return nil, err
			}
		}
		return p, nil

	case "tuple":
		var types []ir.Type
		if tt, ok := ir.PeelRefs(expected).(*ir.TupleType); ok {
			types = tt.Elems
		}
		elems, err := l.patList(kv, types)
		if err != nil {
			return nil, err
		}
		return &ir.TuplePat{PatBase: l.patBase(v), Elems: elems}, nil

	case "or":
		iter, err := kv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p := &ir.OrPat{PatBase: l.patBase(v)}
		for iter.Next() {
			alt, err := l.pat(iter.Value(), expected)
			if err != nil {
				return nil, err
			}
			p.Alts = append(p.Alts, alt)
		}
		return p, nil

	case "ref":
		elem := unknown
		if r, ok := expected.(*ir.RefType); ok {
			elem = r.Elem
		}
		sub, err := l.pat(kv, elem)
		if err != nil {
			return nil, err
		}
		return &ir.RefPat{PatBase: l.patBase(v), Elem: sub}, nil

	case "range":
		iter, err := kv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var ends []ir.Expr
		for iter.Next() {
			if iter.Value().Kind() == cue.NullKind {
				ends = append(ends, nil)
				continue
			}
			x, err := l.expr(iter.Value())
			if err != nil {
				return nil, err
			}
			ends = append(ends, x)
		}
		if len(ends) != 2 {
			return nil, errorAt(kv, "range", "range needs [lo, hi]")
		}
		return &ir.RangePat{PatBase: l.patBase(v), Lo: ends[0], Hi: ends[1]}, nil

	case "slice":
		elems, err := l.patList(kv, nil)
		if err != nil {
			return nil, err
		}
		return &ir.SlicePat{PatBase: l.patBase(v), Elems: elems}, nil

	case "bind":
		name, err := kv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p := &ir.BindingPat{PatBase: l.patBase(v), Name: name}
		if av, ok := lookup(v, "at"); ok {
			if p.Sub, err = l.pat(av, expected); err != nil {
				return nil, err
			}
		}
		l.bind(p, expected)
		return p, nil

	case "lit":
		x, err := l.lit(kv)
		if err != nil {
			return nil, err
		}
		return &ir.LitPat{PatBase: l.patBase(v), X: x}, nil
	}
	return nil, errorAt(v, "pat", "unsupported pattern %q", kind)
}
