package scenario

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/render"
)

// Snapshot formats rendered targets as text: a "# name" header followed by
// the target's dump, with a blank line between targets.
func Snapshot(rendered []Rendered) []byte {
	var buf bytes.Buffer
	for i, rt := range rendered {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString("# " + rt.Name + "\n")
		for _, l := range rt.Lines {
			buf.WriteString(l + "\n")
		}
	}
	return buf.Bytes()
}

// Run builds a scenario on a fresh graph and renders its targets in one
// context.
func Run(s *Scenario, opts ...frame.Option) ([]Rendered, *Result, error) {
	res, err := s.Build(frame.NewGraph(opts...))
	if err != nil {
		return nil, nil, err
	}
	rendered, err := res.Render(render.New(res.Graph), render.NewContext())
	if err != nil {
		return nil, nil, err
	}
	return rendered, res, nil
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. Pinned expectations in the script
// are checked as well.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	rendered, res, err := Run(s, frame.WithLogger(discard))
	if err != nil {
		return err
	}
	if msgs := res.Check(rendered); len(msgs) > 0 {
		t.Errorf("scenario %s:\n%s", s.Name, strings.Join(msgs, "\n"))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, Snapshot(rendered))
	return nil
}
