// Package dump prints rendered IR as numbered assignments, one per distinct
// node:
//
//	v1 = Source()
//	v2 = v1.x
//	v3 = v2 / 1000
//
// Numbering follows node identity, so a subexpression the renderer shared is
// printed once and referred to by name afterwards. Literals are printed
// inline.
package dump

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/dfexpr/internal/ir"
)

// Dumper assigns names across several trees. Trees rendered in one context
// share nodes, and a single Dumper prints each shared node once.
type Dumper struct {
	names  map[ir.Expr]string
	inline map[ir.Expr]bool
	next   int
	lines  []string
	stack  []ir.Expr
}

// New creates a Dumper whose first variable is v1.
func New() *Dumper {
	return &Dumper{
		names:  make(map[ir.Expr]string),
		inline: make(map[ir.Expr]bool),
		next:   1,
	}
}

// Lines returns the assignments needed to define e that earlier calls have
// not already produced. The last line defines e itself unless e is a literal
// or was printed before.
func (d *Dumper) Lines(e ir.Expr) []string {
	d.lines = nil
	ir.Walk(d, e)
	out := d.lines
	d.lines = nil
	return out
}

// Name returns the variable or literal text standing for e.
func (d *Dumper) Name(e ir.Expr) string {
	if lit, ok := e.(*ir.Literal); ok {
		return literal(lit)
	}
	return d.names[e]
}

// Visit implements ir.Visitor.
func (d *Dumper) Visit(e ir.Expr) ir.Visitor {
	if e == nil {
		n := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		d.emit(n)
		return nil
	}
	if _, ok := e.(*ir.Literal); ok {
		return nil
	}
	if _, done := d.names[e]; done {
		return nil
	}
	// A callee is printed as part of its call, not on a line of its own.
	if c, ok := e.(*ir.Call); ok {
		switch c.Callee.(type) {
		case *ir.FieldAccess, *ir.FunctionPlaceholder, *ir.CallableRef:
			if _, named := d.names[c.Callee]; !named {
				d.inline[c.Callee] = true
			}
		}
	}
	d.stack = append(d.stack, e)
	return d
}

func (d *Dumper) emit(e ir.Expr) {
	if d.inline[e] {
		delete(d.inline, e)
		return
	}
	d.define(e, d.rhs(e))
}

func (d *Dumper) define(e ir.Expr, rhs string) {
	name := "v" + strconv.Itoa(d.next)
	d.next++
	d.names[e] = name
	d.lines = append(d.lines, name+" = "+rhs)
}

func (d *Dumper) rhs(e ir.Expr) string {
	switch n := e.(type) {
	case *ir.FieldAccess:
		return d.Name(n.Base) + "." + n.Name
	case *ir.BinaryOp:
		return d.Name(n.Left) + " " + string(n.Op) + " " + d.Name(n.Right)
	case *ir.Compare:
		return d.Name(n.Left) + " " + string(n.Op) + " " + d.Name(n.Right)
	case *ir.BoolOp:
		return d.join(n.Operands, " "+string(n.Op)+" ")
	case *ir.UnaryOp:
		return string(n.Op) + d.Name(n.Operand)
	case *ir.Call:
		args := make([]string, 0, len(n.Args)+len(n.Named))
		for _, a := range n.Args {
			args = append(args, d.Name(a))
		}
		for _, na := range n.Named {
			args = append(args, na.Name+"="+d.Name(na.Value))
		}
		return d.callee(n.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *ir.Index:
		return d.Name(n.Base) + "[" + d.Name(n.Key) + "]"
	case *ir.Filter:
		return d.Name(n.Base) + "[" + d.Name(n.Predicate) + "]"
	case *ir.Sequence:
		if n.List {
			return "[" + d.join(n.Elements, ", ") + "]"
		}
		if len(n.Elements) == 1 {
			return "(" + d.Name(n.Elements[0]) + ",)"
		}
		return "(" + d.join(n.Elements, ", ") + ")"
	default:
		return leaf(e)
	}
}

func (d *Dumper) callee(e ir.Expr) string {
	switch n := e.(type) {
	case *ir.FieldAccess:
		return d.Name(n.Base) + "." + n.Name
	case *ir.FunctionPlaceholder:
		return n.Name
	case *ir.CallableRef:
		return leaf(n)
	default:
		return d.Name(e)
	}
}

func (d *Dumper) join(es []ir.Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = d.Name(e)
	}
	return strings.Join(parts, sep)
}

// leaf describes a node without children.
func leaf(e ir.Expr) string {
	switch n := e.(type) {
	case *ir.RootRef:
		return "Source()"
	case *ir.CallableRef:
		return fmt.Sprintf("<%s/%d>", n.Name, n.Arity)
	case *ir.FunctionPlaceholder:
		return n.Name
	case *ir.PredicateRef:
		return fmt.Sprintf("Predicate(%d)", n.Predicate)
	case *ir.Literal:
		return literal(n)
	default:
		return string(e.Kind())
	}
}

func literal(l *ir.Literal) string {
	if s, ok := l.Value.(ir.String); ok {
		return "'" + strings.ReplaceAll(string(s), "'", `\'`) + "'"
	}
	return l.Value.String()
}

// Lines dumps a single tree with fresh numbering.
func Lines(e ir.Expr) []string {
	return New().Lines(e)
}

// Fprint writes the dump of e to w, one assignment per line.
func Fprint(w io.Writer, e ir.Expr) error {
	for _, l := range Lines(e) {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
