package render

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-test/deep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
)

func TestRenderCallable_ExpandsInDerivedContext(t *testing.T) {
	g := newTestGraph()
	view := must[*frame.View](t)
	r := g.Root()
	jets := view(r.Field("jets"))
	pt := view(jets.Field("pt"))
	twice := g.Lambda("twice", func(v *frame.View) (any, error) {
		p, err := v.Field("pt")
		if err != nil {
			return nil, err
		}
		return p.Binary(ir.OpMul, 2)
	})
	require.NoError(t, jets.SetOverride("twice", twice))

	rd := newTestRenderer(g)
	ctx := NewContext()
	outer, err := rd.Render(ctx, view(jets.Field("twice")))
	require.NoError(t, err)
	ptIR, err := rd.Render(ctx, pt)
	require.NoError(t, err)
	before := ctx.Len()

	ref := outer.(*ir.Call).Callee.(*ir.CallableRef)
	e, derived, err := rd.RenderCallable(ctx, ref, rd.CaptureOf(ref))
	require.NoError(t, err)

	assert.Equal(t, before, ctx.Len(), "caller's context is not modified")
	assert.Equal(t, 1, derived.Generation())
	assert.Equal(t, ctx.Session(), derived.Session())

	bin := e.(*ir.BinaryOp)
	assert.True(t, ir.Same(ptIR, bin.Left), "derived context starts warm")
	assert.Nil(t, deep.Equal(&ir.BinaryOp{
		Op:    ir.OpMul,
		Left:  fa(fa(&ir.RootRef{View: r.ID()}, "jets"), "pt"),
		Right: ir.Lit(ir.Int(2)),
	}, e))
}

func TestRenderCallable_ChainsContexts(t *testing.T) {
	g := newTestGraph()
	view := must[*frame.View](t)
	r := g.Root()
	jets := view(r.Field("jets"))
	scale := g.NewFunc("scale", 2, func(args ...any) (any, error) {
		v := args[0].(*frame.View)
		return v.Binary(ir.OpMul, args[1])
	})
	ref := &ir.CallableRef{Func: scale.ID(), Name: scale.Name(), Arity: 2, Capture: jets.ID()}

	rd := newTestRenderer(g)
	ctx := NewContext()
	first, c1, err := rd.RenderCallable(ctx, ref, jets, 2)
	require.NoError(t, err)
	second, c2, err := rd.RenderCallable(c1, ref, jets, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, c2.Generation())
	assert.True(t, ir.Equal(first, second))
	// Distinct Views, same structure: c2 inherited c1's table.
	assert.True(t, ir.Same(first, second))
	assert.Equal(t, 0, ctx.Len())
}

func TestRenderCallable_ArityCheckedBeforeInvocation(t *testing.T) {
	g := newTestGraph()
	called := false
	f := g.NewFunc("pair", 2, func(args ...any) (any, error) {
		called = true
		return args[0], nil
	})
	r := g.Root()
	ref := &ir.CallableRef{Func: f.ID(), Name: f.Name(), Arity: 2, Capture: r.ID()}

	m := NewMetrics(prometheus.NewRegistry())
	_, _, err := newTestRenderer(g, WithMetrics(m)).RenderCallable(NewContext(), ref, r)
	require.True(t, frame.IsArityMismatch(err))
	assert.False(t, called)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expansions.WithLabelValues("error")))
}

func TestRenderCallable_ResultKinds(t *testing.T) {
	g := newTestGraph()
	view := must[*frame.View](t)
	r := g.Root()
	x := view(r.Field("x"))
	boom := errors.New("boom")

	tests := []struct {
		name    string
		body    frame.FuncBody
		want    ir.Kind
		wantErr bool
	}{
		{"view", func(args ...any) (any, error) { return x, nil }, ir.KindFieldAccess, false},
		{"predicate", func(args ...any) (any, error) { return x.Compare(ir.CmpGt, 1) }, ir.KindCompare, false},
		{"literal", func(args ...any) (any, error) { return 3.5, nil }, ir.KindLiteral, false},
		{"bad kind", func(args ...any) (any, error) { return struct{}{}, nil }, "", true},
		{"error", func(args ...any) (any, error) { return nil, boom }, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := g.NewFunc(tt.name, 1, tt.body)
			ref := &ir.CallableRef{Func: f.ID(), Name: f.Name(), Arity: 1, Capture: r.ID()}
			e, _, err := newTestRenderer(g).RenderCallable(NewContext(), ref, r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Kind())
		})
	}
}

func TestRenderCallable_LogsExpansion(t *testing.T) {
	g := newTestGraph()
	r := g.Root()
	f := g.Lambda("ident", func(v *frame.View) (any, error) { return v, nil })
	ref := &ir.CallableRef{Func: f.ID(), Name: f.Name(), Arity: 1, Capture: r.ID()}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, _, err := New(g, WithLogger(logger)).RenderCallable(NewContext(), ref, r)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "expanding captured function")
	assert.Contains(t, buf.String(), "func=ident")
	assert.Contains(t, buf.String(), "generation=1")
}

func TestExpandAll_FollowsNestedCallables(t *testing.T) {
	g := newTestGraph()
	view := must[*frame.View](t)
	r := g.Root()
	jets := view(r.Field("jets"))

	inner := g.Lambda("inner", func(v *frame.View) (any, error) { return v.Field("pt") })
	outer := g.Lambda("outer", func(v *frame.View) (any, error) {
		if err := v.SetOverride("inner", inner); err != nil {
			return nil, err
		}
		return v.Field("inner")
	})
	require.NoError(t, jets.SetOverride("outer", outer))
	skipped := g.NewFunc("pair", 2, nil)
	mapped := view(view(jets.Field("map")).Call([]any{skipped}, nil))

	rd := newTestRenderer(g)
	ctx := NewContext()
	e, err := rd.Render(ctx, view(jets.Field("outer")))
	require.NoError(t, err)
	_, err = rd.Render(ctx, mapped)
	require.NoError(t, err)

	got, last, err := rd.ExpandAll(ctx, e)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "outer", got[0].Ref.Name)
	assert.Equal(t, "inner", got[1].Ref.Name)
	assert.Equal(t, ir.KindFieldAccess, got[1].Expr.Kind())
	assert.Equal(t, 2, last.Generation())

	none, same, err := rd.ExpandAll(ctx, mapped.Derivation())
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 1, same.Generation())
}
