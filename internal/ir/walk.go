package ir

import "slices"

// WalkPat calls fn for p and, while fn returns true, for each subpattern in
// pre-order.
func WalkPat(p Pat, fn func(Pat) bool) {
	if p == nil || !fn(p) {
		return
	}
	switch p := p.(type) {
	case *BindingPat:
		WalkPat(p.Sub, fn)
	case *StructPat:
		for _, f := range p.Fields {
			WalkPat(f.Pat, fn)
		}
	case *TupleStructPat:
		for _, e := range p.Elems {
			WalkPat(e, fn)
		}
	case *TuplePat:
		for _, e := range p.Elems {
			WalkPat(e, fn)
		}
	case *OrPat:
		for _, a := range p.Alts {
			WalkPat(a, fn)
		}
	case *RefPat:
		WalkPat(p.Elem, fn)
	case *SlicePat:
		for _, e := range p.Elems {
			WalkPat(e, fn)
		}
	}
}

// NecessaryVariants returns the variants (or variant constructors) that a
// value must be built from for p to match, sorted and deduplicated.
// Alternatives of an or-pattern are not necessary and are skipped.
func NecessaryVariants(p Pat) []ID {
	var ids []ID
	WalkPat(p, func(p Pat) bool {
		var q QPath
		switch p := p.(type) {
		case *OrPat:
			return false
		case *PathPat:
			q = p.QPath
		case *TupleStructPat:
			q = p.QPath
		case *StructPat:
			q = p.QPath
		default:
			return true
		}
		if rp, ok := q.(*ResolvedPath); ok && rp.Path != nil {
			res := rp.Path.Res
			if res.IsDef(DefVariant, DefCtorVariant) && res.Def.IsValid() {
				ids = append(ids, res.Def)
			}
		}
		return true
	})
	slices.Sort(ids)
	return slices.Compact(ids)
}

// StripFields returns the innermost base of a chain of field projections,
// so `a.b.c` yields `a`.
func StripFields(e Expr) Expr {
	for {
		f, ok := e.(*FieldExpr)
		if !ok {
			return e
		}
		e = f.Base
	}
}

// WalkExpr calls fn for e and, while fn returns true, for every expression
// nested in it, including closure bodies, statements, match arms and
// anonymous constants, in pre-order.
func WalkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	walkAll := func(es []Expr) {
		for _, x := range es {
			WalkExpr(x, fn)
		}
	}
	switch e := e.(type) {
	case *CallExpr:
		WalkExpr(e.Callee, fn)
		walkAll(e.Args)
	case *MethodCallExpr:
		WalkExpr(e.Receiver, fn)
		walkAll(e.Args)
	case *FieldExpr:
		WalkExpr(e.Base, fn)
	case *AssignExpr:
		WalkExpr(e.LHS, fn)
		WalkExpr(e.RHS, fn)
	case *AssignOpExpr:
		WalkExpr(e.LHS, fn)
		WalkExpr(e.RHS, fn)
	case *BinaryExpr:
		WalkExpr(e.X, fn)
		WalkExpr(e.Y, fn)
	case *UnaryExpr:
		WalkExpr(e.X, fn)
	case *StructExpr:
		for _, f := range e.Fields {
			WalkExpr(f.Expr, fn)
		}
		WalkExpr(e.Base, fn)
	case *TupleExpr:
		walkAll(e.Elems)
	case *ArrayExpr:
		walkAll(e.Elems)
	case *RepeatExpr:
		WalkExpr(e.Elem, fn)
		if e.Count != nil {
			WalkBody(e.Count.Body, fn)
		}
	case *IndexExpr:
		WalkExpr(e.X, fn)
		WalkExpr(e.Index, fn)
	case *CastExpr:
		WalkExpr(e.X, fn)
	case *RefExpr:
		WalkExpr(e.X, fn)
	case *BlockExpr:
		walkBlock(e.Block, fn)
	case *IfExpr:
		WalkExpr(e.Cond, fn)
		walkBlock(e.Then, fn)
		WalkExpr(e.Else, fn)
	case *LetExpr:
		WalkExpr(e.Init, fn)
	case *MatchExpr:
		WalkExpr(e.Scrutinee, fn)
		for _, a := range e.Arms {
			WalkExpr(a.Guard, fn)
			WalkExpr(a.Body, fn)
		}
	case *LoopExpr:
		walkBlock(e.Body, fn)
	case *ClosureExpr:
		WalkBody(e.Body, fn)
	case *ReturnExpr:
		WalkExpr(e.X, fn)
	case *BreakExpr:
		WalkExpr(e.X, fn)
	case *ConstBlockExpr:
		if e.Const != nil {
			WalkBody(e.Const.Body, fn)
		}
	}
}

// WalkBody walks the value of a body with WalkExpr.
func WalkBody(b *Body, fn func(Expr) bool) {
	if b != nil {
		WalkExpr(b.Value, fn)
	}
}

func walkBlock(b *Block, fn func(Expr) bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch s := s.(type) {
		case *LocalStmt:
			WalkExpr(s.Init, fn)
			walkBlock(s.Else, fn)
		case *ExprStmt:
			WalkExpr(s.X, fn)
		}
	}
	WalkExpr(b.Tail, fn)
}

// Bodies returns the bodies owned directly by a declaration, in source
// order: a function's code, a constant's initializer, a discriminant.
func Bodies(n Node) []*Body {
	var out []*Body
	add := func(b *Body) {
		if b != nil {
			out = append(out, b)
		}
	}
	switch n := n.(type) {
	case *Item:
		switch k := n.Kind.(type) {
		case *FnItem:
			add(k.Body)
		case *ConstItem:
			add(k.Body)
		case *StaticItem:
			add(k.Body)
		}
	case *ImplItem:
		switch k := n.Kind.(type) {
		case *ImplFn:
			add(k.Body)
		case *ImplConst:
			add(k.Body)
		}
	case *TraitItem:
		switch k := n.Kind.(type) {
		case *TraitFn:
			add(k.Body)
		case *TraitConst:
			add(k.Default)
		}
	case *Variant:
		if n.Disr != nil {
			add(n.Disr.Body)
		}
	case *AnonConst:
		add(n.Body)
	}
	return out
}
