package frame

import (
	"github.com/roach88/dfexpr/internal/ir"
)

// Predicate is a lazy boolean-valued expression. Its expression is always a
// comparison, a boolean combination, a negation or a call.
type Predicate struct {
	g    *Graph
	id   ir.PredicateID
	expr ir.Expr
}

// ID returns the arena id of the predicate.
func (p *Predicate) ID() ir.PredicateID { return p.id }

// Graph returns the session that owns the predicate.
func (p *Predicate) Graph() *Graph { return p.g }

// Expr returns the wrapped expression.
func (p *Predicate) Expr() ir.Expr { return p.expr }

// And combines p with other.
func (p *Predicate) And(other any) (*Predicate, error) {
	return p.g.And(p, other)
}

// Or combines p with other.
func (p *Predicate) Or(other any) (*Predicate, error) {
	return p.g.Or(p, other)
}

// Not negates p.
func (p *Predicate) Not() (*Predicate, error) {
	return p.g.Not(p)
}

// And builds the conjunction of two or more operands. Operands are
// Predicates or Views; each is embedded by reference.
func (g *Graph) And(operands ...any) (*Predicate, error) {
	return g.boolOp(ir.BoolAnd, operands)
}

// Or builds the disjunction of two or more operands.
func (g *Graph) Or(operands ...any) (*Predicate, error) {
	return g.boolOp(ir.BoolOr, operands)
}

// Not builds the logical negation of a Predicate or View.
func (g *Graph) Not(operand any) (*Predicate, error) {
	e, err := g.logicalTerm(operand)
	if err != nil {
		return nil, err
	}
	return g.newPredicate(&ir.UnaryOp{Op: ir.UnaryNot, Operand: e}), nil
}

func (g *Graph) boolOp(op ir.BoolOperator, operands []any) (*Predicate, error) {
	if len(operands) < 2 {
		return nil, &Error{
			Code:    ErrCodeTermKind,
			Message: "a boolean combination needs at least two operands",
		}
	}
	exprs := make([]ir.Expr, len(operands))
	for i, o := range operands {
		e, err := g.logicalTerm(o)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return g.newPredicate(&ir.BoolOp{Op: op, Operands: exprs}), nil
}

func (g *Graph) logicalTerm(v any) (ir.Expr, error) {
	switch v.(type) {
	case *View, *Predicate:
		return g.Term(v, nil)
	default:
		return nil, termKindError(v, "a logical operator")
	}
}

// predicateShaped reports whether e may be wrapped as a Predicate.
func predicateShaped(e ir.Expr) bool {
	switch e.(type) {
	case *ir.Compare, *ir.BoolOp, *ir.UnaryOp, *ir.Call:
		return true
	default:
		return false
	}
}
