package frame

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dfexpr/internal/ir"
)

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewGraph(opts...)
}

// newLoggedGraph returns a graph whose warnings are captured in the buffer.
func newLoggedGraph(t *testing.T) (*Graph, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewGraph(WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))), &buf
}

func field(t *testing.T, v *View, names ...string) *View {
	t.Helper()
	for _, n := range names {
		next, err := v.Field(n)
		require.NoError(t, err)
		v = next
	}
	return v
}

func compare(t *testing.T, v *View, op ir.CompareOperator, rhs any) *Predicate {
	t.Helper()
	p, err := v.Compare(op, rhs)
	require.NoError(t, err)
	return p
}

func filterBy(t *testing.T, v *View, arg any) *View {
	t.Helper()
	out, err := v.FilterBy(arg)
	require.NoError(t, err)
	return out
}

// parentOf follows a RootRef-valued expression back to its view.
func parentOf(t *testing.T, g *Graph, e ir.Expr) *View {
	t.Helper()
	ref, ok := e.(*ir.RootRef)
	require.True(t, ok, "expected RootRef, got %T", e)
	return g.MustView(ref.View)
}
