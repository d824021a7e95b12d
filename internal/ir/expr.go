package ir

// Kind tags every node type. It is the discriminator consumers switch on and
// the first field of every canonical header.
type Kind string

const (
	KindLiteral             Kind = "literal"
	KindFieldAccess         Kind = "field"
	KindBinaryOp            Kind = "binary"
	KindCompare             Kind = "compare"
	KindBoolOp              Kind = "boolop"
	KindUnaryOp             Kind = "unary"
	KindCall                Kind = "call"
	KindIndex               Kind = "index"
	KindSequence            Kind = "sequence"
	KindRootRef             Kind = "root"
	KindPredicateRef        Kind = "predicate"
	KindCallableRef         Kind = "callable"
	KindFunctionPlaceholder Kind = "function"
	KindFilter              Kind = "filter"
)

// Arena ids. The builder graph hands these out; the IR only stores them.
type (
	ViewID      uint32
	PredicateID uint32
	FuncID      uint32
)

// BinaryOperator is an arithmetic operator.
type BinaryOperator string

const (
	OpAdd BinaryOperator = "+"
	OpSub BinaryOperator = "-"
	OpMul BinaryOperator = "*"
	OpDiv BinaryOperator = "/"
	OpMod BinaryOperator = "%"
	OpPow BinaryOperator = "**"
)

// CompareOperator is a comparison operator.
type CompareOperator string

const (
	CmpEq CompareOperator = "=="
	CmpNe CompareOperator = "!="
	CmpLt CompareOperator = "<"
	CmpLe CompareOperator = "<="
	CmpGt CompareOperator = ">"
	CmpGe CompareOperator = ">="
)

// BoolOperator combines two or more boolean operands.
type BoolOperator string

const (
	BoolAnd BoolOperator = "&"
	BoolOr  BoolOperator = "|"
)

// UnaryOperator applies to a single operand.
type UnaryOperator string

const (
	UnaryInvert UnaryOperator = "~"
	UnaryNot    UnaryOperator = "!"
	UnaryNeg    UnaryOperator = "-"
)

// Expr is a node of the expression IR.
//
// This is a sealed interface - only types in this package implement it.
// The marker method enables exhaustive type switches in consumers:
//
//	switch n := e.(type) {
//	case *FieldAccess:
//	    // n.Base, n.Name
//	case *Filter:
//	    // n.Base, n.Predicate
//	}
//
// Children returns the ordered sub-expressions of the node. Leaves return nil.
// The slice must not be modified by callers.
type Expr interface {
	Kind() Kind
	Children() []Expr
	exprNode() // Marker method - seals interface to this package
}

// Literal is a constant scalar.
type Literal struct {
	Value Scalar
}

// FieldAccess reads a named field (column, branch, attribute) from Base.
type FieldAccess struct {
	Base Expr
	Name string
}

// BinaryOp is an arithmetic combination of two expressions.
type BinaryOp struct {
	Op    BinaryOperator
	Left  Expr
	Right Expr
}

// Compare is a boolean-valued comparison of two expressions.
type Compare struct {
	Op    CompareOperator
	Left  Expr
	Right Expr
}

// BoolOp combines two or more boolean expressions.
type BoolOp struct {
	Op       BoolOperator
	Operands []Expr
}

// UnaryOp applies Op to Operand.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Expr
}

// NamedArg is a keyword argument of a Call. Order is significant.
type NamedArg struct {
	Name  string
	Value Expr
}

// Call invokes Callee. The callee is a FieldAccess for method calls, a
// FunctionPlaceholder for user functions, or a CallableRef for deferred
// captured functions.
type Call struct {
	Callee Expr
	Args   []Expr
	Named  []NamedArg
}

// Index selects Key from Base.
type Index struct {
	Base Expr
	Key  Expr
}

// Sequence is a tuple (List false) or list (List true) of elements.
type Sequence struct {
	List     bool
	Elements []Expr
}

// RootRef refers to a view acting as a leaf. After rendering it only ever
// names a source (a view with no derivation).
type RootRef struct {
	View ViewID
}

// PredicateRef embeds a predicate inside another expression.
type PredicateRef struct {
	Predicate PredicateID
}

// CallableRef is a deferred captured function together with the view it was
// captured relative to. Expanding it is the job of the renderer's callable
// expander.
type CallableRef struct {
	Func    FuncID
	Name    string
	Arity   int
	Capture ViewID
}

// FunctionPlaceholder names a user function that the backend implements.
type FunctionPlaceholder struct {
	Func  FuncID
	Name  string
	Arity int
}

// Filter keeps the elements of Base for which Predicate holds.
type Filter struct {
	Base      Expr
	Predicate Expr
}

func (*Literal) Kind() Kind             { return KindLiteral }
func (*FieldAccess) Kind() Kind         { return KindFieldAccess }
func (*BinaryOp) Kind() Kind            { return KindBinaryOp }
func (*Compare) Kind() Kind             { return KindCompare }
func (*BoolOp) Kind() Kind              { return KindBoolOp }
func (*UnaryOp) Kind() Kind             { return KindUnaryOp }
func (*Call) Kind() Kind                { return KindCall }
func (*Index) Kind() Kind               { return KindIndex }
func (*Sequence) Kind() Kind            { return KindSequence }
func (*RootRef) Kind() Kind             { return KindRootRef }
func (*PredicateRef) Kind() Kind        { return KindPredicateRef }
func (*CallableRef) Kind() Kind         { return KindCallableRef }
func (*FunctionPlaceholder) Kind() Kind { return KindFunctionPlaceholder }
func (*Filter) Kind() Kind              { return KindFilter }

func (*Literal) exprNode()             {}
func (*FieldAccess) exprNode()         {}
func (*BinaryOp) exprNode()            {}
func (*Compare) exprNode()             {}
func (*BoolOp) exprNode()              {}
func (*UnaryOp) exprNode()             {}
func (*Call) exprNode()                {}
func (*Index) exprNode()               {}
func (*Sequence) exprNode()            {}
func (*RootRef) exprNode()             {}
func (*PredicateRef) exprNode()        {}
func (*CallableRef) exprNode()         {}
func (*FunctionPlaceholder) exprNode() {}
func (*Filter) exprNode()              {}

func (*Literal) Children() []Expr             { return nil }
func (*RootRef) Children() []Expr             { return nil }
func (*PredicateRef) Children() []Expr        { return nil }
func (*CallableRef) Children() []Expr         { return nil }
func (*FunctionPlaceholder) Children() []Expr { return nil }

func (n *FieldAccess) Children() []Expr { return []Expr{n.Base} }
func (n *BinaryOp) Children() []Expr    { return []Expr{n.Left, n.Right} }
func (n *Compare) Children() []Expr     { return []Expr{n.Left, n.Right} }
func (n *BoolOp) Children() []Expr      { return n.Operands }
func (n *UnaryOp) Children() []Expr     { return []Expr{n.Operand} }
func (n *Index) Children() []Expr       { return []Expr{n.Base, n.Key} }
func (n *Sequence) Children() []Expr    { return n.Elements }
func (n *Filter) Children() []Expr      { return []Expr{n.Base, n.Predicate} }

// Children of a Call are the callee, then positional arguments, then the
// values of the named arguments in order.
func (n *Call) Children() []Expr {
	out := make([]Expr, 0, 1+len(n.Args)+len(n.Named))
	out = append(out, n.Callee)
	out = append(out, n.Args...)
	for _, na := range n.Named {
		out = append(out, na.Value)
	}
	return out
}

// Lit builds a Literal from a scalar.
func Lit(s Scalar) *Literal {
	return &Literal{Value: s}
}
