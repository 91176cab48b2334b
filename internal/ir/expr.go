package ir

// Body is the executable part of a function, constant or closure.
type Body struct {
	Params []Pat
	Value  Expr
}

// Expr is the sealed sum of expressions. Every expression carries an ID so
// the type checker can attach types and resolutions to it.
type Expr interface {
	ExprID() ID
	ExprSpan() Span
	expr()
}

// ExprBase carries the ID and span shared by all expressions.
type ExprBase struct {
	ID   ID
	Span Span
}

func (e *ExprBase) ExprID() ID     { return e.ID }
func (e *ExprBase) ExprSpan() Span { return e.Span }

type (
	// PathExpr is a value path: a local, a function, a constant, a unit
	// constructor.
	PathExpr struct {
		ExprBase
		QPath QPath
	}
	// LitExpr is a literal.
	LitExpr struct {
		ExprBase
		Value string
	}
	// CallExpr is `callee(args)`.
	CallExpr struct {
		ExprBase
		Callee Expr
		Args   []Expr
	}
	// MethodCallExpr is `recv.segment(args)`; the callee is type-dependent.
	MethodCallExpr struct {
		ExprBase
		Segment  *PathSegment
		Receiver Expr
		Args     []Expr
	}
	// FieldExpr is `base.name`; name is a decimal index for positional
	// fields.
	FieldExpr struct {
		ExprBase
		Base Expr
		Name string
	}
	// AssignExpr is `lhs = rhs`.
	AssignExpr struct {
		ExprBase
		LHS Expr
		RHS Expr
	}
	// AssignOpExpr is `lhs op= rhs`.
	AssignOpExpr struct {
		ExprBase
		Op  string
		LHS Expr
		RHS Expr
	}
	// BinaryExpr is `x op y`.
	BinaryExpr struct {
		ExprBase
		Op   string
		X, Y Expr
	}
	// UnaryExpr is `-x`, `!x` or `*x`.
	UnaryExpr struct {
		ExprBase
		Op string
		X  Expr
	}
	// StructExpr is `Path { fields, ..base }`.
	StructExpr struct {
		ExprBase
		QPath  QPath
		Fields []*ExprField
		Base   Expr // optional functional-update base
	}
	// TupleExpr is `(a, b)`.
	TupleExpr struct {
		ExprBase
		Elems []Expr
	}
	// ArrayExpr is `[a, b]`.
	ArrayExpr struct {
		ExprBase
		Elems []Expr
	}
	// RepeatExpr is `[elem; count]`.
	RepeatExpr struct {
		ExprBase
		Elem  Expr
		Count *AnonConst
	}
	// IndexExpr is `x[index]`.
	IndexExpr struct {
		ExprBase
		X     Expr
		Index Expr
	}
	// CastExpr is `x as T`.
	CastExpr struct {
		ExprBase
		X  Expr
		Ty *Ty
	}
	// RefExpr is `&x` or `&mut x`.
	RefExpr struct {
		ExprBase
		X   Expr
		Mut bool
	}
	// BlockExpr is `{ stmts; tail }`.
	BlockExpr struct {
		ExprBase
		Block *Block
	}
	// IfExpr is `if cond { then } else { else }`.
	IfExpr struct {
		ExprBase
		Cond Expr
		Then *Block
		Else Expr // optional
	}
	// LetExpr is the `let pat = init` condition of if-let and while-let.
	LetExpr struct {
		ExprBase
		Pat  Pat
		Init Expr
	}
	// MatchExpr is `match scrutinee { arms }`.
	MatchExpr struct {
		ExprBase
		Scrutinee Expr
		Arms      []*Arm
	}
	// LoopExpr is `loop { body }`; while loops lower to a loop with an if.
	LoopExpr struct {
		ExprBase
		Body *Block
	}
	// ClosureExpr is `|params| body`.
	ClosureExpr struct {
		ExprBase
		Body *Body
	}
	// ReturnExpr is `return [x]`.
	ReturnExpr struct {
		ExprBase
		X Expr // optional
	}
	// BreakExpr is `break [x]`.
	BreakExpr struct {
		ExprBase
		X Expr // optional
	}
	// ConstBlockExpr is `const { .. }`.
	ConstBlockExpr struct {
		ExprBase
		Const *AnonConst
	}
)

func (*PathExpr) expr()       {}
func (*LitExpr) expr()        {}
func (*CallExpr) expr()       {}
func (*MethodCallExpr) expr() {}
func (*FieldExpr) expr()      {}
func (*AssignExpr) expr()     {}
func (*AssignOpExpr) expr()   {}
func (*BinaryExpr) expr()     {}
func (*UnaryExpr) expr()      {}
func (*StructExpr) expr()     {}
func (*TupleExpr) expr()      {}
func (*ArrayExpr) expr()      {}
func (*RepeatExpr) expr()     {}
func (*IndexExpr) expr()      {}
func (*CastExpr) expr()       {}
func (*RefExpr) expr()        {}
func (*BlockExpr) expr()      {}
func (*IfExpr) expr()         {}
func (*LetExpr) expr()        {}
func (*MatchExpr) expr()      {}
func (*LoopExpr) expr()       {}
func (*ClosureExpr) expr()    {}
func (*ReturnExpr) expr()     {}
func (*BreakExpr) expr()      {}
func (*ConstBlockExpr) expr() {}

// ExprField is one `name: expr` initializer of a struct expression.
type ExprField struct {
	ID   ID
	Span Span
	Name string
	Expr Expr
}

// Arm is one arm of a match.
type Arm struct {
	ID    ID
	Pat   Pat
	Guard Expr // optional
	Body  Expr
}

// Block is a sequence of statements with an optional tail expression.
type Block struct {
	Stmts []Stmt
	Tail  Expr
}

// Stmt is the sealed sum of statements.
type Stmt interface {
	stmt()
}

type (
	// LocalStmt is `let pat: ty = init else { .. };`.
	LocalStmt struct {
		Pat  Pat
		Ty   *Ty
		Init Expr
		Else *Block
	}
	// ExprStmt is an expression in statement position.
	ExprStmt struct{ X Expr }
	// ItemStmt declares a nested item; the item itself lives in the crate
	// table.
	ItemStmt struct{ Item ID }
)

func (*LocalStmt) stmt() {}
func (*ExprStmt) stmt()  {}
func (*ItemStmt) stmt()  {}

// Pat is the sealed sum of patterns.
type Pat interface {
	PatID() ID
	PatSpan() Span
	pat()
}

// PatBase carries the ID and span shared by all patterns.
type PatBase struct {
	ID   ID
	Span Span
}

func (p *PatBase) PatID() ID     { return p.ID }
func (p *PatBase) PatSpan() Span { return p.Span }

type (
	// WildPat is `_`.
	WildPat struct{ PatBase }
	// BindingPat is `name` or `name @ sub`.
	BindingPat struct {
		PatBase
		Name string
		Sub  Pat // optional
	}
	// StructPat is `Path { fields, .. }`.
	StructPat struct {
		PatBase
		QPath  QPath
		Fields []*PatField
		Rest   bool
	}
	// TupleStructPat is `Path(elems)`.
	TupleStructPat struct {
		PatBase
		QPath QPath
		Elems []Pat
	}
	// PathPat is a unit constructor or a constant in pattern position.
	PathPat struct {
		PatBase
		QPath QPath
	}
	// TuplePat is `(a, b)`.
	TuplePat struct {
		PatBase
		Elems []Pat
	}
	// OrPat is `a | b`.
	OrPat struct {
		PatBase
		Alts []Pat
	}
	// RefPat is `&pat`.
	RefPat struct {
		PatBase
		Elem Pat
	}
	// LitPat matches a literal expression.
	LitPat struct {
		PatBase
		X Expr
	}
	// RangePat is `lo..=hi`; either end is optional.
	RangePat struct {
		PatBase
		Lo, Hi Expr
	}
	// SlicePat is `[a, b, ..]`.
	SlicePat struct {
		PatBase
		Elems []Pat
	}
)

func (*WildPat) pat()        {}
func (*BindingPat) pat()     {}
func (*StructPat) pat()      {}
func (*TupleStructPat) pat() {}
func (*PathPat) pat()        {}
func (*TuplePat) pat()       {}
func (*OrPat) pat()          {}
func (*RefPat) pat()         {}
func (*LitPat) pat()         {}
func (*RangePat) pat()       {}
func (*SlicePat) pat()       {}

// PatField is one `name: pat` of a struct pattern.
type PatField struct {
	ID   ID
	Span Span
	Name string
	Pat  Pat
}
