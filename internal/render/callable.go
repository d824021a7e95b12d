package render

import (
	"fmt"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
)

// CaptureOf returns the view a CallableRef was captured relative to.
func (r *Renderer) CaptureOf(ref *ir.CallableRef) *frame.View {
	return r.g.MustView(ref.Capture)
}

// RenderCallable invokes the function behind ref with args and renders what
// it returns.
//
// The argument count is checked before the function runs. The result is
// rendered in a context derived from ctx, which is returned so callers that
// expand repeatedly can chain contexts; ctx itself is never modified.
func (r *Renderer) RenderCallable(ctx *Context, ref *ir.CallableRef, args ...any) (ir.Expr, *Context, error) {
	f := r.g.MustFunc(ref.Func)
	if len(args) != f.Arity() {
		err := frame.NewArityError(f.Name(), f.Arity(), len(args))
		r.metrics.observeExpansion(err)
		return nil, nil, err
	}

	derived := ctx.Derive()
	r.logger.Debug("expanding captured function",
		"func", f.Name(),
		"arity", f.Arity(),
		"generation", derived.Generation())

	out, err := f.Invoke(args...)
	if err != nil {
		r.metrics.observeExpansion(err)
		return nil, nil, fmt.Errorf("expand %s: %w", f.Name(), err)
	}
	e, err := r.Render(derived, out)
	r.metrics.observeExpansion(err)
	if err != nil {
		return nil, nil, fmt.Errorf("expand %s: %w", f.Name(), err)
	}
	return e, derived, nil
}

// Expansion is one captured function expanded against its capture view.
type Expansion struct {
	Ref  *ir.CallableRef
	Expr ir.Expr
}

// ExpandAll expands every CallableRef reachable from e, including those that
// appear inside earlier expansions, by calling each function with its capture
// view. Each distinct reference is expanded once; functions that take other
// than one argument are skipped. Contexts are chained, so
// the returned context has seen every expansion; ctx is left untouched.
func (r *Renderer) ExpandAll(ctx *Context, e ir.Expr) ([]Expansion, *Context, error) {
	var (
		out     []Expansion
		pending []*ir.CallableRef
		seen    = make(map[ir.Expr]bool)
	)
	collect := func(root ir.Expr) {
		ir.Inspect(root, func(n ir.Expr) bool {
			if ref, ok := n.(*ir.CallableRef); ok && !seen[ref] {
				seen[ref] = true
				pending = append(pending, ref)
			}
			return n != nil
		})
	}
	collect(e)

	cur := ctx
	for len(pending) > 0 {
		if len(out) >= r.g.MaxDepth() {
			return nil, nil, &frame.Error{
				Code:    frame.ErrCodeDepthExceeded,
				Message: fmt.Sprintf("more than %d callable expansions", r.g.MaxDepth()),
			}
		}
		ref := pending[0]
		pending = pending[1:]
		if ref.Arity != 1 {
			r.logger.Debug("skipping captured function", "func", ref.Name, "arity", ref.Arity)
			continue
		}

		x, next, err := r.RenderCallable(cur, ref, r.CaptureOf(ref))
		if err != nil {
			return nil, nil, err
		}
		cur = next
		out = append(out, Expansion{Ref: ref, Expr: x})
		collect(x)
	}
	if cur == ctx {
		cur = ctx.Derive()
	}
	return out, cur, nil
}
