package frame

import (
	"github.com/Velocidex/ordereddict"

	"github.com/roach88/dfexpr/internal/ir"
)

// FuncBody is the Go implementation behind a captured function. It receives
// Views, Predicates or plain values and returns a View, a Predicate or a
// plain value.
type FuncBody func(args ...any) (any, error)

// Func is a captured function value. It is either deferred (CallableRef,
// expanded later by the renderer) or a placeholder for a backend function
// (FunctionPlaceholder).
type Func struct {
	g     *Graph
	id    ir.FuncID
	name  string
	arity int
	body  FuncBody
}

// NewFunc registers a function with the graph.
func (g *Graph) NewFunc(name string, arity int, body FuncBody) *Func {
	f := &Func{
		g:     g,
		id:    ir.FuncID(len(g.funcs)),
		name:  name,
		arity: arity,
		body:  body,
	}
	g.funcs = append(g.funcs, f)
	return f
}

// Lambda registers a one-parameter function over views.
func (g *Graph) Lambda(name string, fn func(v *View) (any, error)) *Func {
	return g.NewFunc(name, 1, func(args ...any) (any, error) {
		v, ok := args[0].(*View)
		if !ok {
			return nil, termKindError(args[0], "a view lambda argument")
		}
		return fn(v)
	})
}

// ID returns the arena id of the function.
func (f *Func) ID() ir.FuncID { return f.id }

// Name returns the function name.
func (f *Func) Name() string { return f.name }

// Arity returns the declared parameter count.
func (f *Func) Arity() int { return f.arity }

// Invoke calls the function body.
// The argument count is checked before the body runs. The result must be a
// View, a Predicate or a value with a literal form.
func (f *Func) Invoke(args ...any) (any, error) {
	if len(args) != f.arity {
		return nil, NewArityError(f.name, f.arity, len(args))
	}
	out, err := f.body(args...)
	if err != nil {
		return nil, err
	}
	switch out.(type) {
	case *View, *Predicate:
		return out, nil
	}
	if _, ok := ir.ScalarOf(out); ok {
		return out, nil
	}
	return nil, termKindError(out, "the result of "+f.name)
}

func (f *Func) ref(capture *View) *ir.CallableRef {
	return &ir.CallableRef{Func: f.id, Name: f.name, Arity: f.arity, Capture: capture.id}
}

func (f *Func) placeholder() *ir.FunctionPlaceholder {
	return &ir.FunctionPlaceholder{Func: f.id, Name: f.name, Arity: f.arity}
}

// Apply calls a backend function on the given arguments. The call is built,
// not executed: the result is a view whose derivation is
// Call(FunctionPlaceholder(f), args, kwargs). The argument count is checked
// against the declared arity immediately.
func (g *Graph) Apply(f *Func, args []any, kwargs *ordereddict.Dict) (*View, error) {
	got := len(args)
	if kwargs != nil {
		got += kwargs.Len()
	}
	if got != f.arity {
		return nil, NewArityError(f.name, f.arity, got)
	}

	callee, err := g.Term(f, nil)
	if err != nil {
		return nil, err
	}
	call, err := g.buildCall(callee, args, kwargs, nil, nil)
	if err != nil {
		return nil, err
	}
	return g.newView(call, nil), nil
}

// buildCall converts positional and keyword arguments relative to their
// capture views.
func (g *Graph) buildCall(callee ir.Expr, args []any, kwargs *ordereddict.Dict, argCapture, kwCapture *View) (*ir.Call, error) {
	call := &ir.Call{Callee: callee, Args: make([]ir.Expr, len(args))}
	for i, a := range args {
		e, err := g.Term(a, argCapture)
		if err != nil {
			return nil, err
		}
		call.Args[i] = e
	}
	if kwargs == nil {
		return call, nil
	}
	for _, k := range kwargs.Keys() {
		v, _ := kwargs.Get(k)
		e, err := g.Term(v, kwCapture)
		if err != nil {
			return nil, err
		}
		call.Named = append(call.Named, ir.NamedArg{Name: k, Value: e})
	}
	return call, nil
}
