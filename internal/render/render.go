package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
)

// ErrGraphMismatch is returned when a Context is reused with a different
// Graph than the one it was first bound to.
var ErrGraphMismatch = errors.New("render: context belongs to a different graph")

// Renderer flattens nodes of one Graph.
type Renderer struct {
	g       *frame.Graph
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger for expansion debug records.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithMetrics records renderer activity in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// New creates a renderer for g.
func New(g *frame.Graph, opts ...Option) *Renderer {
	r := &Renderer{g: g}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Render flattens node in a fresh context and returns the context so further
// renders in the same session share its tables.
func Render(g *frame.Graph, node any) (ir.Expr, *Context, error) {
	ctx := NewContext()
	e, err := New(g).Render(ctx, node)
	if err != nil {
		return nil, nil, err
	}
	return e, ctx, nil
}

// Render flattens node into ctx. node is a *frame.View, a *frame.Predicate
// or a value with a literal form.
func (r *Renderer) Render(ctx *Context, node any) (ir.Expr, error) {
	if ctx.graph == nil {
		ctx.graph = r.g
	} else if ctx.graph != r.g {
		return nil, ErrGraphMismatch
	}
	r.metrics.observeRender()

	switch n := node.(type) {
	case *frame.View:
		if n.Graph() != r.g {
			return nil, ErrGraphMismatch
		}
		return r.view(ctx, n, 0)
	case *frame.Predicate:
		if n.Graph() != r.g {
			return nil, ErrGraphMismatch
		}
		return r.predicate(ctx, n, 0)
	}
	if s, ok := ir.ScalarOf(node); ok {
		return r.intern(ctx, ir.Lit(s))
	}
	return nil, &frame.Error{
		Code:    frame.ErrCodeTermKind,
		Message: fmt.Sprintf("cannot render a %T", node),
	}
}

// depth counts lineage steps: it grows by one per View or Predicate
// descended into, and stays the same across the nodes of one derivation.
func (r *Renderer) view(ctx *Context, v *frame.View, depth int) (ir.Expr, error) {
	if e, ok := ctx.views[v.ID()]; ok {
		return e, nil
	}
	if err := r.checkDepth(depth); err != nil {
		return nil, err
	}

	if v.IsRoot() {
		e, ok := ctx.roots[v.ID()]
		if !ok {
			var err error
			if e, err = r.intern(ctx, &ir.RootRef{View: v.ID()}); err != nil {
				return nil, err
			}
			ctx.roots[v.ID()] = e
		}
		ctx.views[v.ID()] = e
		return e, nil
	}

	e, err := r.expr(ctx, v.Derivation(), depth)
	if err != nil {
		return nil, err
	}

	if f := v.Filter(); f != nil {
		pred, err := r.predicate(ctx, f, depth+1)
		if err != nil {
			return nil, err
		}
		// A filter directly on a filtered view narrows the same base:
		// base[a][b] is base[a & b].
		if _, pass := v.PassThrough(); pass {
			if inner, ok := e.(*ir.Filter); ok {
				both, err := r.intern(ctx, &ir.BoolOp{
					Op:       ir.BoolAnd,
					Operands: []ir.Expr{inner.Predicate, pred},
				})
				if err != nil {
					return nil, err
				}
				e, pred = inner.Base, both
			}
		}
		if e, err = r.intern(ctx, &ir.Filter{Base: e, Predicate: pred}); err != nil {
			return nil, err
		}
	}

	ctx.views[v.ID()] = e
	return e, nil
}

func (r *Renderer) predicate(ctx *Context, p *frame.Predicate, depth int) (ir.Expr, error) {
	if e, ok := ctx.preds[p.ID()]; ok {
		return e, nil
	}
	if err := r.checkDepth(depth); err != nil {
		return nil, err
	}
	e, err := r.expr(ctx, p.Expr(), depth)
	if err != nil {
		return nil, err
	}
	ctx.preds[p.ID()] = e
	return e, nil
}

func (r *Renderer) expr(ctx *Context, e ir.Expr, depth int) (ir.Expr, error) {
	switch n := e.(type) {
	case *ir.RootRef:
		return r.view(ctx, r.g.MustView(n.View), depth+1)
	case *ir.PredicateRef:
		return r.predicate(ctx, r.g.MustPredicate(n.Predicate), depth+1)
	}

	kids := e.Children()
	if len(kids) == 0 {
		return r.intern(ctx, e)
	}
	out := make([]ir.Expr, len(kids))
	for i, k := range kids {
		rk, err := r.expr(ctx, k, depth)
		if err != nil {
			return nil, err
		}
		out[i] = rk
	}
	return r.intern(ctx, ir.WithChildren(e, out))
}

func (r *Renderer) intern(ctx *Context, e ir.Expr) (ir.Expr, error) {
	out, hit, err := ctx.intern(e)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	r.metrics.observeIntern(hit)
	return out, nil
}

func (r *Renderer) checkDepth(depth int) error {
	if limit := r.g.MaxDepth(); depth > limit {
		return &frame.Error{
			Code:    frame.ErrCodeDepthExceeded,
			Message: fmt.Sprintf("render depth exceeds %d", limit),
			Details: map[string]string{"max_depth": fmt.Sprint(limit)},
		}
	}
	return nil
}
