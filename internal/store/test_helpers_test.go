package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
	"github.com/roach88/dfexpr/internal/render"
	"github.com/roach88/dfexpr/internal/testutil"
)

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestStore creates a new store in a temp directory. Its clock starts
// at testEpoch and advances one second per saved plan.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewStepClock(testEpoch, time.Second).Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPlan renders root.<column> / 1000 and describes it for storage.
func createTestPlan(t *testing.T, column string) Plan {
	t.Helper()
	g := frame.NewGraph()
	f, err := g.Root().Field(column)
	if err != nil {
		t.Fatalf("Field() failed: %v", err)
	}
	v, err := f.Binary(ir.OpDiv, 1000)
	if err != nil {
		t.Fatalf("Binary() failed: %v", err)
	}
	e, ctx, err := render.Render(g, v)
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	p, err := NewPlan(column, e, ctx, nil)
	if err != nil {
		t.Fatalf("NewPlan() failed: %v", err)
	}
	return p
}
