package compiler

import (
	"fmt"
	"strings"
	"unicode"

	"cuelang.org/go/cue"

	"github.com/roach88/deadlint/internal/ir"
)

// Types are written as strings in the surface syntax:
//
//	i32  &Point  &mut [u8]  [T; 4]  [u8; LEN]  (A, B)  Vec<Point>
//	fn(i32) -> bool  impl Display + Send  dyn Draw  !  _
//
// parseType turns the string into a tyExpr; lowerTy resolves its paths.

type tyExprKind uint8

const (
	tyPath tyExprKind = iota
	tyRef
	tySlice
	tyArray
	tyTuple
	tyFnPtr
	tyImpl
	tyDyn
	tyNever
	tyInfer
)

type tySeg struct {
	name string
	args []*tyExpr
}

type tyExpr struct {
	kind   tyExprKind
	mut    bool
	path   []tySeg
	elems  []*tyExpr // ref, slice and array element; tuple elements; fn params
	ret    *tyExpr
	bounds [][]tySeg
	length string // array length: an integer or a path
}

type tyParser struct {
	src  string
	toks []string
	pos  int
}

func tokenizeType(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		r := rune(s[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			j := i
			for j < len(s) && (s[j] == '_' || unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case strings.HasPrefix(s[i:], "::"), strings.HasPrefix(s[i:], "->"):
			toks = append(toks, s[i:i+2])
			i += 2
		case strings.ContainsRune("&*[];(),!<>+", r):
			toks = append(toks, s[i:i+1])
			i++
		default:
			return nil, fmt.Errorf("unexpected %q in type %q", r, s)
		}
	}
	return toks, nil
}

func parseType(s string) (*tyExpr, error) {
	toks, err := tokenizeType(s)
	if err != nil {
		return nil, err
	}
	p := &tyParser{src: s, toks: toks}
	t, err := p.ty()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q in type %q", p.toks[p.pos], s)
	}
	return t, nil
}

// parsePath parses a value path such as `shapes::Circle` or
// `Vec::<u8>::new`.
func parsePath(s string) ([]tySeg, error) {
	toks, err := tokenizeType(s)
	if err != nil {
		return nil, err
	}
	p := &tyParser{src: s, toks: toks}
	segs, err := p.path()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q in path %q", p.toks[p.pos], s)
	}
	return segs, nil
}

func (p *tyParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *tyParser) next() string {
	t := p.peek()
	if t != "" {
		p.pos++
	}
	return t
}

func (p *tyParser) accept(tok string) bool {
	if p.peek() == tok {
		p.pos++
		return true
	}
	return false
}

func (p *tyParser) expect(tok string) error {
	if !p.accept(tok) {
		return fmt.Errorf("expected %q in type %q", tok, p.src)
	}
	return nil
}

func (p *tyParser) ty() (*tyExpr, error) {
	switch tok := p.peek(); tok {
	case "":
		return nil, fmt.Errorf("empty type in %q", p.src)
	case "&", "*":
		p.next()
		t := &tyExpr{kind: tyRef}
		if p.accept("mut") {
			t.mut = true
		} else if tok == "*" {
			p.accept("const")
		}
		elem, err := p.ty()
		if err != nil {
			return nil, err
		}
		t.elems = []*tyExpr{elem}
		return t, nil
	case "[":
		p.next()
		elem, err := p.ty()
		if err != nil {
			return nil, err
		}
		t := &tyExpr{kind: tySlice, elems: []*tyExpr{elem}}
		if p.accept(";") {
			t.kind = tyArray
			var parts []string
			for p.peek() != "]" && p.peek() != "" {
				parts = append(parts, p.next())
			}
			if len(parts) == 0 {
				return nil, fmt.Errorf("missing array length in %q", p.src)
			}
			t.length = strings.Join(parts, "")
		}
		return t, p.expect("]")
	case "(":
		p.next()
		t := &tyExpr{kind: tyTuple}
		for !p.accept(")") {
			elem, err := p.ty()
			if err != nil {
				return nil, err
			}
			t.elems = append(t.elems, elem)
			if !p.accept(",") {
				if err := p.expect(")"); err != nil {
					return nil, err
				}
				break
			}
		}
		return t, nil
	case "!":
		p.next()
		return &tyExpr{kind: tyNever}, nil
	case "_":
		p.next()
		return &tyExpr{kind: tyInfer}, nil
	case "fn":
		p.next()
		t := &tyExpr{kind: tyFnPtr}
		if err := p.expect("("); err != nil {
			return nil, err
		}
		for !p.accept(")") {
			param, err := p.ty()
			if err != nil {
				return nil, err
			}
			t.elems = append(t.elems, param)
			if !p.accept(",") {
				if err := p.expect(")"); err != nil {
					return nil, err
				}
				break
			}
		}
		if p.accept("->") {
			ret, err := p.ty()
			if err != nil {
				return nil, err
			}
			t.ret = ret
		}
		return t, nil
	case "impl", "dyn":
		p.next()
		t := &tyExpr{kind: tyImpl}
		if tok == "dyn" {
			t.kind = tyDyn
		}
		for {
			b, err := p.path()
			if err != nil {
				return nil, err
			}
			t.bounds = append(t.bounds, b)
			if !p.accept("+") {
				return t, nil
			}
		}
	default:
		segs, err := p.path()
		if err != nil {
			return nil, err
		}
		return &tyExpr{kind: tyPath, path: segs}, nil
	}
}

func (p *tyParser) path() ([]tySeg, error) {
	var segs []tySeg
	for {
		name := p.next()
		if !isIdent(name) {
			return nil, fmt.Errorf("expected identifier in %q, got %q", p.src, name)
		}
		seg := tySeg{name: name}
		// Generic args: `Vec<T>` in types, `Vec::<T>` in expressions.
		if p.peek() == "<" || (p.peek() == "::" && p.pos+1 < len(p.toks) && p.toks[p.pos+1] == "<") {
			p.accept("::")
			p.next()
			for !p.accept(">") {
				arg, err := p.ty()
				if err != nil {
					return nil, err
				}
				seg.args = append(seg.args, arg)
				if !p.accept(",") {
					if err := p.expect(">"); err != nil {
						return nil, err
					}
					break
				}
			}
		}
		segs = append(segs, seg)
		if !p.accept("::") {
			return segs, nil
		}
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func segNames(segs []tySeg) string {
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.name
	}
	return strings.Join(names, "::")
}

// typeString lowers a written type given as a CUE string.
func (c *compiler) typeString(ctx *declCtx, v cue.Value) (*ir.Ty, error) {
	s, err := v.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	te, err := parseType(s)
	if err != nil {
		return nil, errorAt(v, "type", "%v", err)
	}
	return c.lowerTy(ctx, te, v)
}

// optionalType lowers the type at key, or returns nil when absent.
func (c *compiler) optionalType(ctx *declCtx, v cue.Value, key string) (*ir.Ty, error) {
	tv, ok := lookup(v, key)
	if !ok {
		return nil, nil
	}
	return c.typeString(ctx, tv)
}

func (c *compiler) lowerTy(ctx *declCtx, te *tyExpr, at cue.Value) (*ir.Ty, error) {
	t := &ir.Ty{ID: c.crate.NewID(), Span: spanOf(at)}
	switch te.kind {
	case tyPath:
		pr, err := c.resolveSegs(ctx, te.path, typeNS, at)
		if err != nil {
			return nil, err
		}
		if pr.relative != nil {
			c.crate.Typeck.SetTypeDependentDef(t.ID, pr.target)
		}
		t.Kind = &ir.PathTy{QPath: pr.qpath()}
	case tyRef:
		elem, err := c.lowerTy(ctx, te.elems[0], at)
		if err != nil {
			return nil, err
		}
		t.Kind = &ir.RefTy{Elem: elem, Mut: te.mut}
	case tySlice:
		elem, err := c.lowerTy(ctx, te.elems[0], at)
		if err != nil {
			return nil, err
		}
		t.Kind = &ir.SliceTy{Elem: elem}
	case tyArray:
		elem, err := c.lowerTy(ctx, te.elems[0], at)
		if err != nil {
			return nil, err
		}
		n, err := c.arrayLen(ctx, te.length, at)
		if err != nil {
			return nil, err
		}
		t.Kind = &ir.ArrayTy{Elem: elem, Len: n}
	case tyTuple:
		k := &ir.TupleTy{}
		for _, e := range te.elems {
			elem, err := c.lowerTy(ctx, e, at)
			if err != nil {
				return nil, err
			}
			k.Elems = append(k.Elems, elem)
		}
		t.Kind = k
	case tyFnPtr:
		k := &ir.FnPtrTy{}
		for _, e := range te.elems {
			param, err := c.lowerTy(ctx, e, at)
			if err != nil {
				return nil, err
			}
			k.Params = append(k.Params, param)
		}
		if te.ret != nil {
			ret, err := c.lowerTy(ctx, te.ret, at)
			if err != nil {
				return nil, err
			}
			k.Ret = ret
		}
		t.Kind = k
	case tyDyn:
		bounds, err := c.lowerBounds(ctx, te.bounds, at)
		if err != nil {
			return nil, err
		}
		t.Kind = &ir.TraitObjectTy{Bounds: bounds}
	case tyImpl:
		id, err := c.opaque(ctx, te.bounds, at)
		if err != nil {
			return nil, err
		}
		t.Kind = &ir.OpaqueTy{Item: id}
	case tyNever:
		t.Kind = &ir.NeverTy{}
	case tyInfer:
		t.Kind = &ir.InferTy{}
	}
	return t, nil
}

func (c *compiler) lowerBounds(ctx *declCtx, bounds [][]tySeg, at cue.Value) ([]*ir.Path, error) {
	paths := make([]*ir.Path, 0, len(bounds))
	for _, b := range bounds {
		pr, err := c.resolveSegs(ctx, b, typeNS, at)
		if err != nil {
			return nil, err
		}
		if pr.path == nil {
			return nil, errorAt(at, "bound", "%s is not a trait", segNames(b))
		}
		paths = append(paths, pr.path)
	}
	return paths, nil
}

// opaque synthesizes the hidden item behind `impl Trait`, owned by the
// declaration whose signature names it.
func (c *compiler) opaque(ctx *declCtx, bounds [][]tySeg, at cue.Value) (ir.ID, error) {
	paths, err := c.lowerBounds(ctx, bounds, at)
	if err != nil {
		return ir.NoID, err
	}
	names := make([]string, len(bounds))
	for i, b := range bounds {
		names[i] = segNames(b)
	}
	it := &ir.Item{
		ID:   c.crate.NewID(),
		Name: "impl " + strings.Join(names, " + "),
		Span: spanOf(at),
		Kind: &ir.OpaqueTyItem{Bounds: paths},
	}
	if err := c.add(it, ctx.owner, at); err != nil {
		return ir.NoID, err
	}
	c.opaques[ctx.owner] = append(c.opaques[ctx.owner], it.ID)
	return it.ID, nil
}

// arrayLen lowers an array length to an anonymous constant whose body is
// the literal or the named constant.
func (c *compiler) arrayLen(ctx *declCtx, length string, at cue.Value) (*ir.AnonConst, error) {
	ac := &ir.AnonConst{ID: c.crate.NewID()}
	base := ir.ExprBase{ID: c.crate.NewID(), Span: spanOf(at)}
	if isIdent(length) || strings.Contains(length, "::") {
		segs, err := parsePath(length)
		if err != nil {
			return nil, errorAt(at, "type", "%v", err)
		}
		pr, err := c.resolveSegs(ctx, segs, valueNS, at)
		if err != nil {
			return nil, err
		}
		if pr.relative != nil {
			c.crate.Typeck.SetTypeDependentDef(base.ID, pr.target)
		}
		ac.Body = &ir.Body{Value: &ir.PathExpr{ExprBase: base, QPath: pr.qpath()}}
	} else {
		ac.Body = &ir.Body{Value: &ir.LitExpr{ExprBase: base, Value: length}}
		c.crate.Typeck.SetType(base.ID, &ir.PrimType{Name: "usize"})
	}
	if err := c.add(ac, ctx.owner, at); err != nil {
		return nil, err
	}
	return ac, nil
}

// semType computes the semantic type of a written type.
func (c *compiler) semType(t *ir.Ty) ir.Type {
	if t == nil {
		return &ir.TupleType{}
	}
	switch k := t.Kind.(type) {
	case *ir.PathTy:
		switch q := k.QPath.(type) {
		case *ir.ResolvedPath:
			return c.semOfPath(q.Path)
		case *ir.TypeRelativePath:
			if res, ok := c.crate.Typeck.TypeDependentDef(t.ID); ok {
				return c.semOfAssocTy(res)
			}
		}
	case *ir.RefTy:
		return &ir.RefType{Elem: c.semType(k.Elem), Mut: k.Mut}
	case *ir.TupleTy:
		tt := &ir.TupleType{}
		for _, e := range k.Elems {
			tt.Elems = append(tt.Elems, c.semType(e))
		}
		return tt
	case *ir.SliceTy:
		return &ir.OtherType{Descr: "[" + c.semType(k.Elem).String() + "]"}
	case *ir.ArrayTy:
		return &ir.OtherType{Descr: "[" + c.semType(k.Elem).String() + "; _]"}
	case *ir.FnPtrTy:
		return &ir.OtherType{Descr: "fn pointer"}
	case *ir.TraitObjectTy:
		return &ir.OtherType{Descr: "trait object"}
	case *ir.OpaqueTy:
		return &ir.OtherType{Descr: "opaque type"}
	case *ir.NeverTy:
		return &ir.OtherType{Descr: "!"}
	}
	return &ir.OtherType{Descr: "_"}
}

func (c *compiler) semOfPath(p *ir.Path) ir.Type {
	res := p.Res
	var args []ir.Type
	if n := len(p.Segments); n > 0 {
		for _, a := range p.Segments[n-1].Args {
			args = append(args, c.semType(a))
		}
	}
	switch res.Kind {
	case ir.ResPrimTy:
		return &ir.PrimType{Name: res.Prim}
	case ir.ResSelfTy:
		if res.Impl.IsValid() {
			if it, ok := c.crate.Item(res.Impl); ok {
				return c.semType(it.Kind.(*ir.ImplBlock).SelfTy)
			}
		}
		return &ir.OtherType{Descr: selfTypeName}
	case ir.ResDef:
	default:
		return &ir.OtherType{Descr: p.String()}
	}

	if !res.Def.IsValid() {
		if res.IsDef(ir.DefStruct, ir.DefEnum, ir.DefUnion) {
			return &ir.AdtType{Path: externPath(p), Args: args}
		}
		return &ir.OtherType{Descr: p.String()}
	}
	switch res.DefKind {
	case ir.DefStruct, ir.DefUnion, ir.DefEnum:
		return &ir.AdtType{Def: res.Def, Path: c.crate.DefPath(res.Def), Args: args}
	case ir.DefTyAlias:
		if c.aliasing[res.Def] {
			return &ir.OtherType{Descr: p.String()}
		}
		c.aliasing[res.Def] = true
		defer delete(c.aliasing, res.Def)
		if it, ok := c.crate.Item(res.Def); ok {
			return c.semType(it.Kind.(*ir.TyAliasItem).Ty)
		}
	case ir.DefAssocTy:
		return c.semOfAssocTy(res)
	}
	return &ir.OtherType{Descr: p.String()}
}

func (c *compiler) semOfAssocTy(res ir.Res) ir.Type {
	if n, ok := c.crate.Node(res.Def); ok {
		if ii, ok := n.(*ir.ImplItem); ok {
			if k, ok := ii.Kind.(*ir.ImplType); ok {
				return c.semType(k.Ty)
			}
		}
	}
	return &ir.OtherType{Descr: "associated type"}
}

// externPath renders a path outside the crate with its canonical prefix so
// marker types are recognizable.
func externPath(p *ir.Path) string {
	if len(p.Segments) == 1 {
		if e, ok := prelude[p.Segments[0].Name]; ok {
			return e.path
		}
	}
	return p.String()
}
