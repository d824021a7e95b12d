package scenario

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Velocidex/ordereddict"

	"github.com/roach88/dfexpr/internal/dump"
	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
	"github.com/roach88/dfexpr/internal/render"
)

// SelfName is the binding a lambda body sees its argument under.
const SelfName = "self"

// ErrBackendFunction is returned when a script's backend function placeholder
// is invoked directly. Those functions only exist on the execution side.
var ErrBackendFunction = errors.New("backend function cannot be invoked while building")

// Result is the outcome of running a script's steps.
type Result struct {
	Scenario *Scenario
	Graph    *frame.Graph
	bindings *scope
}

// Lookup returns the value bound to name: a *frame.View, *frame.Predicate or
// *frame.Func.
func (r *Result) Lookup(name string) (any, bool) {
	return r.bindings.lookup(name)
}

// Build runs the scenario's steps against g.
func (s *Scenario) Build(g *frame.Graph) (*Result, error) {
	b := &builder{g: g}
	sc := newScope(nil)
	if err := b.run(sc, "steps", s.Steps); err != nil {
		return nil, err
	}
	for _, target := range s.Render {
		v, ok := sc.lookup(target)
		if !ok {
			return nil, fmt.Errorf("render: %q is not bound", target)
		}
		switch v.(type) {
		case *frame.View, *frame.Predicate:
		default:
			return nil, fmt.Errorf("render: %q is a %T, not a view or predicate", target, v)
		}
	}
	return &Result{Scenario: s, Graph: g, bindings: sc}, nil
}

// Rendered is one flattened render target.
type Rendered struct {
	Name   string
	Expr   ir.Expr
	Digest string
	Lines  []string
}

// Render flattens every target in a single context, so subexpressions shared
// between targets come back as the same nodes. Each target's dump is
// numbered independently.
func (r *Result) Render(rd *render.Renderer, ctx *render.Context) ([]Rendered, error) {
	return r.RenderTargets(rd, ctx, r.Scenario.Render)
}

// RenderTargets is Render restricted to the named targets, in the given
// order. Every name must be one of the scenario's render targets.
func (r *Result) RenderTargets(rd *render.Renderer, ctx *render.Context, targets []string) ([]Rendered, error) {
	out := make([]Rendered, 0, len(targets))
	for _, target := range targets {
		if !slices.Contains(r.Scenario.Render, target) {
			return nil, fmt.Errorf("%q is not a render target of %s", target, r.Scenario.Name)
		}
		node, _ := r.bindings.lookup(target)
		e, err := rd.Render(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", target, err)
		}
		d, ok := ctx.Digest(e)
		if !ok {
			if d, err = ir.Digest(e); err != nil {
				return nil, fmt.Errorf("digest %s: %w", target, err)
			}
		}
		out = append(out, Rendered{Name: target, Expr: e, Digest: d, Lines: dump.Lines(e)})
	}
	return out, nil
}

// Check compares rendered dumps with the scenario's expectations and returns
// one message per mismatch.
func (r *Result) Check(rendered []Rendered) []string {
	var msgs []string
	for _, rt := range rendered {
		want, ok := r.Scenario.Expect[rt.Name]
		if !ok {
			continue
		}
		if len(want) != len(rt.Lines) {
			msgs = append(msgs, fmt.Sprintf("%s: expected %d lines, got %d", rt.Name, len(want), len(rt.Lines)))
			continue
		}
		for i := range want {
			if want[i] != rt.Lines[i] {
				msgs = append(msgs, fmt.Sprintf("%s: line %d: expected %q, got %q", rt.Name, i+1, want[i], rt.Lines[i]))
			}
		}
	}
	return msgs
}

// scope maps binding names to builder values. Lambda bodies run in a child
// scope so their bindings do not leak.
type scope struct {
	parent *scope
	vars   map[string]any
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]any)}
}

func (s *scope) lookup(name string) (any, bool) {
	for ; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

type builder struct {
	g *frame.Graph
}

func (b *builder) run(sc *scope, path string, steps []Step) error {
	for i, st := range steps {
		v, err := b.step(sc, st)
		if err != nil {
			return fmt.Errorf("%s[%d] (%s): %w", path, i, st.Op, err)
		}
		if st.Let != "" {
			sc.vars[st.Let] = v
		}
	}
	return nil
}

func (b *builder) step(sc *scope, st Step) (any, error) {
	switch st.Op {
	case "root":
		return b.g.Root(), nil
	case "lambda":
		return b.lambda(sc, st), nil
	case "func":
		return b.g.NewFunc(st.Name, st.Arity, func(...any) (any, error) {
			return nil, fmt.Errorf("%s: %w", st.Name, ErrBackendFunction)
		}), nil
	case "apply":
		f, err := lookupAs[*frame.Func](sc, st.Func)
		if err != nil {
			return nil, err
		}
		args, kwargs, err := b.arguments(sc, st)
		if err != nil {
			return nil, err
		}
		return b.g.Apply(f, args, kwargs)
	case "alias":
		f, err := lookupAs[*frame.Func](sc, st.Func)
		if err != nil {
			return nil, err
		}
		return b.g.DefineAlias(st.Pattern, st.Name, frame.FuncGenerator(f))
	case "and", "or":
		ops := make([]any, len(st.Operands))
		for i, o := range st.Operands {
			v, err := b.operand(sc, o)
			if err != nil {
				return nil, err
			}
			ops[i] = v
		}
		if st.Op == "and" {
			return b.g.And(ops...)
		}
		return b.g.Or(ops...)
	case "not":
		v, err := b.operand(sc, *st.Value)
		if err != nil {
			return nil, err
		}
		return b.g.Not(v)
	}

	of, err := lookupAs[*frame.View](sc, st.Of)
	if err != nil {
		return nil, err
	}
	switch st.Op {
	case "field":
		return of.Field(st.Name)
	case "wrap":
		return b.g.Wrap(of), nil
	case "unary":
		op, err := unaryOperator(st.Operator)
		if err != nil {
			return nil, err
		}
		return of.Unary(op), nil
	case "call":
		args, kwargs, err := b.arguments(sc, st)
		if err != nil {
			return nil, err
		}
		return of.Call(args, kwargs)
	}

	val, err := b.operand(sc, *st.Value)
	if err != nil {
		return nil, err
	}
	switch st.Op {
	case "binary":
		op, err := binaryOperator(st.Operator)
		if err != nil {
			return nil, err
		}
		return of.Binary(op, val)
	case "compare":
		op, err := compareOperator(st.Operator)
		if err != nil {
			return nil, err
		}
		return of.Compare(op, val)
	case "index":
		return of.Index(val)
	case "filter":
		return of.FilterBy(val)
	case "set":
		return nil, of.SetOverride(st.Name, val)
	}
	return nil, fmt.Errorf("unknown op %q", st.Op)
}

// lambda builds a one-parameter function whose body is replayed on every
// invocation, with the argument bound to SelfName.
func (b *builder) lambda(sc *scope, st Step) *frame.Func {
	return b.g.Lambda(st.Name, func(self *frame.View) (any, error) {
		inner := newScope(sc)
		inner.vars[SelfName] = self
		if err := b.run(inner, st.Name, st.Body); err != nil {
			return nil, err
		}
		v, ok := inner.lookup(st.Result)
		if !ok {
			return nil, fmt.Errorf("%s: result %q is not bound", st.Name, st.Result)
		}
		return v, nil
	})
}

func (b *builder) arguments(sc *scope, st Step) ([]any, *ordereddict.Dict, error) {
	args := make([]any, len(st.Args))
	for i, a := range st.Args {
		v, err := b.operand(sc, a)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	if len(st.Kwargs) == 0 {
		return args, nil, nil
	}
	kwargs := ordereddict.NewDict()
	for _, kw := range st.Kwargs {
		v, err := b.operand(sc, kw.Value)
		if err != nil {
			return nil, nil, err
		}
		kwargs.Set(kw.Name, v)
	}
	return args, kwargs, nil
}

func (b *builder) operand(sc *scope, o Operand) (any, error) {
	switch {
	case o.Ref != "":
		v, ok := sc.lookup(o.Ref)
		if !ok {
			return nil, fmt.Errorf("%q is not bound", o.Ref)
		}
		return v, nil
	case o.Lit != nil:
		return o.Lit, nil
	case o.Tuple != nil:
		items, err := b.operands(sc, o.Tuple)
		return frame.Tuple(items), err
	case o.List != nil:
		return b.operands(sc, o.List)
	}
	return nil, fmt.Errorf("operand has no ref, lit, tuple or list")
}

func (b *builder) operands(sc *scope, os []Operand) ([]any, error) {
	out := make([]any, len(os))
	for i, o := range os {
		v, err := b.operand(sc, o)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func lookupAs[T any](sc *scope, name string) (T, error) {
	var zero T
	v, ok := sc.lookup(name)
	if !ok {
		return zero, fmt.Errorf("%q is not bound", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%q is a %T, want %T", name, v, zero)
	}
	return t, nil
}

func binaryOperator(s string) (ir.BinaryOperator, error) {
	switch op := ir.BinaryOperator(s); op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpPow:
		return op, nil
	}
	return "", fmt.Errorf("unknown binary operator %q", s)
}

func compareOperator(s string) (ir.CompareOperator, error) {
	switch op := ir.CompareOperator(s); op {
	case ir.CmpEq, ir.CmpNe, ir.CmpLt, ir.CmpLe, ir.CmpGt, ir.CmpGe:
		return op, nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}

func unaryOperator(s string) (ir.UnaryOperator, error) {
	switch op := ir.UnaryOperator(s); op {
	case ir.UnaryInvert, ir.UnaryNot, ir.UnaryNeg:
		return op, nil
	}
	return "", fmt.Errorf("unknown unary operator %q", s)
}
