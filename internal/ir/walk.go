package ir

import (
	"fmt"
	"slices"
)

// Visitor is the traversal contract consumed by dumpers and backends.
// Visit is called for each node; if it returns a non-nil visitor w, Walk
// visits the children of the node with w, followed by a call of
// w.Visit(nil).
type Visitor interface {
	Visit(e Expr) (w Visitor)
}

// Walk traverses an expression tree in depth-first order.
//
// Rendered trees are DAGs: a hash-consed node reachable along two paths is
// visited twice. Consumers that care about sharing track visited nodes with
// Same or by using the node as a map key.
func Walk(v Visitor, e Expr) {
	if e == nil {
		return
	}
	if v = v.Visit(e); v == nil {
		return
	}
	for _, c := range e.Children() {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(Expr) bool

func (f inspector) Visit(e Expr) Visitor {
	if f(e) {
		return f
	}
	return nil
}

// Inspect calls f for every node in depth-first order, descending into a
// node's children only while f returns true. f(nil) follows the children of
// a node.
func Inspect(e Expr, f func(Expr) bool) {
	Walk(inspector(f), e)
}

// Same reports whether a and b are the same node (reference equality).
// On renderer output this detects deduplicated subexpressions.
func Same(a, b Expr) bool {
	return a == b
}

// WithChildren returns a copy of e with its children replaced, in the order
// reported by Children. Leaves are returned unchanged.
// Panics if the number of children does not match.
func WithChildren(e Expr, kids []Expr) Expr {
	want := len(e.Children())
	if len(kids) != want {
		panic(fmt.Sprintf("ir.WithChildren: %s expects %d children, got %d", e.Kind(), want, len(kids)))
	}

	switch n := e.(type) {
	case *FieldAccess:
		return &FieldAccess{Base: kids[0], Name: n.Name}
	case *BinaryOp:
		return &BinaryOp{Op: n.Op, Left: kids[0], Right: kids[1]}
	case *Compare:
		return &Compare{Op: n.Op, Left: kids[0], Right: kids[1]}
	case *BoolOp:
		return &BoolOp{Op: n.Op, Operands: slices.Clone(kids)}
	case *UnaryOp:
		return &UnaryOp{Op: n.Op, Operand: kids[0]}
	case *Call:
		named := make([]NamedArg, len(n.Named))
		offset := 1 + len(n.Args)
		for i, na := range n.Named {
			named[i] = NamedArg{Name: na.Name, Value: kids[offset+i]}
		}
		return &Call{Callee: kids[0], Args: slices.Clone(kids[1:offset]), Named: named}
	case *Index:
		return &Index{Base: kids[0], Key: kids[1]}
	case *Sequence:
		return &Sequence{List: n.List, Elements: slices.Clone(kids)}
	case *Filter:
		return &Filter{Base: kids[0], Predicate: kids[1]}
	default:
		return e
	}
}

// Rewrite applies fn bottom-up to every node of e and returns the result.
//
// Rewriting is persistent: a node is copied only when one of its children was
// replaced, so every node off the rewritten paths is shared with the input.
// If fn returns its argument unchanged everywhere, Rewrite returns e itself.
func Rewrite(e Expr, fn func(Expr) (Expr, error)) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	kids := e.Children()
	var next []Expr
	for i, c := range kids {
		nc, err := Rewrite(c, fn)
		if err != nil {
			return nil, err
		}
		if nc != c {
			if next == nil {
				next = slices.Clone(kids)
			}
			next[i] = nc
		}
	}
	if next != nil {
		e = WithChildren(e, next)
	}
	return fn(e)
}
