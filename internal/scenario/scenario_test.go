package scenario

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
	"github.com/roach88/dfexpr/internal/render"
)

// ============================================================================
// Golden scripts
// ============================================================================

func TestScripts_Golden(t *testing.T) {
	var paths []string
	for _, pattern := range []string{"testdata/*.yaml", "testdata/*.cue"} {
		matches, err := filepath.Glob(pattern)
		require.NoError(t, err)
		paths = append(paths, matches...)
	}
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := Load(path)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, sc))
		})
	}
}

func TestLoad_YAMLAndCUEBuildTheSameTree(t *testing.T) {
	fromYAML, err := Load("testdata/reroot.yaml")
	require.NoError(t, err)
	fromCUE, err := Load("testdata/reroot_cue.cue")
	require.NoError(t, err)

	a, _, err := Run(fromYAML)
	require.NoError(t, err)
	b, _, err := Run(fromCUE)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].Lines, b[0].Lines)
	assert.Equal(t, a[0].Digest, b[0].Digest)
}

// ============================================================================
// Parsing
// ============================================================================

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{
			name:    "missing name",
			script:  "steps: [{let: r, op: root}]\nrender: [r]\n",
			wantErr: "name is required",
		},
		{
			name:    "no steps",
			script:  "name: x\nrender: [r]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no render targets",
			script:  "name: x\nsteps: [{let: r, op: root}]\n",
			wantErr: "render list is required",
		},
		{
			name:    "unknown op",
			script:  "name: x\nsteps: [{let: r, op: source}]\nrender: [r]\n",
			wantErr: `steps[0]: unknown op "source"`,
		},
		{
			name:    "missing let",
			script:  "name: x\nsteps: [{op: root}]\nrender: [r]\n",
			wantErr: "root needs a let binding",
		},
		{
			name:    "field without of",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: f, op: field, name: x}]\nrender: [f]\n",
			wantErr: "steps[1]: field needs of",
		},
		{
			name:    "binary without operator",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: f, op: binary, of: r, value: {lit: 1}}]\nrender: [f]\n",
			wantErr: "binary needs operator",
		},
		{
			name:    "filter without value",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: f, op: filter, of: r}]\nrender: [f]\n",
			wantErr: "filter needs value",
		},
		{
			name:    "lambda without result",
			script:  "name: x\nsteps: [{let: f, op: lambda, name: f, body: []}]\nrender: [f]\n",
			wantErr: "lambda needs result",
		},
		{
			name:    "bad step inside lambda body",
			script:  "name: x\nsteps: [{let: f, op: lambda, name: f, result: y, body: [{let: y, op: field}]}]\nrender: [f]\n",
			wantErr: "steps[0].body[0]: field needs of",
		},
		{
			name:    "expectation for a non-target",
			script:  "name: x\nsteps: [{let: r, op: root}]\nrender: [r]\nexpect: {s: [v1 = Source()]}\n",
			wantErr: `expect: "s" is not a render target`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.script), FormatYAML)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	_, err := Load("testdata/invalid/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operater")
}

func TestParse_CUEMustBeConcrete(t *testing.T) {
	_, err := Parse([]byte(`name: string
steps: [{"let": "r", op: "root"}]
render: ["r"]
`), FormatCUE)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not concrete")
}

func TestParse_CUECompileError(t *testing.T) {
	_, err := Parse([]byte(`name: {`), FormatCUE)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile CUE")
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"b.cue":  FormatCUE,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("c.json")
	assert.ErrorContains(t, err, `unknown script extension ".json"`)
}

// ============================================================================
// Building
// ============================================================================

func parseYAML(t *testing.T, script string) *Scenario {
	t.Helper()
	sc, err := Parse([]byte(script), FormatYAML)
	require.NoError(t, err)
	return sc
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{
			name:    "unbound of",
			script:  "name: x\nsteps: [{let: f, op: field, of: nope, name: a}]\nrender: [f]\n",
			wantErr: `steps[0] (field): "nope" is not bound`,
		},
		{
			name:    "of is a predicate",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: p, op: compare, of: r, operator: '>', value: {lit: 1}}, {let: f, op: field, of: p, name: a}]\nrender: [f]\n",
			wantErr: `"p" is a *frame.Predicate, want *frame.View`,
		},
		{
			name:    "unknown operator",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: f, op: binary, of: r, operator: '//', value: {lit: 1}}]\nrender: [f]\n",
			wantErr: `unknown binary operator "//"`,
		},
		{
			name:    "render target is a function",
			script:  "name: x\nsteps: [{let: f, op: func, name: F, arity: 1}]\nrender: [f]\n",
			wantErr: `render: "f" is a *frame.Func`,
		},
		{
			name:    "render target unbound",
			script:  "name: x\nsteps: [{let: r, op: root}]\nrender: [q]\n",
			wantErr: `render: "q" is not bound`,
		},
		{
			name:    "empty operand",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: f, op: index, of: r, value: {}}]\nrender: [f]\n",
			wantErr: "operand has no ref, lit, tuple or list",
		},
		{
			name:    "lambda result unbound",
			script:  "name: x\nsteps: [{let: r, op: root}, {let: f, op: lambda, name: f, result: nope, body: []}, {let: v, op: filter, of: r, value: {ref: f}}]\nrender: [v]\n",
			wantErr: `f: result "nope" is not bound`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseYAML(t, tt.script).Build(frame.NewGraph())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild_BackendFunctionIsNotInvoked(t *testing.T) {
	sc := parseYAML(t, `name: x
steps:
  - {let: r, op: root}
  - {let: keep, op: func, name: keep, arity: 1}
  - {let: v, op: filter, of: r, value: {ref: keep}}
render: [v]
`)
	_, err := sc.Build(frame.NewGraph())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendFunction))
}

func TestBuild_FrameErrorsSurface(t *testing.T) {
	sc := parseYAML(t, `name: x
steps:
  - {let: r, op: root}
  - {let: a, op: field, of: r, name: a}
  - {op: set, of: r, name: a, value: {ref: a}}
render: [a]
`)
	_, err := sc.Build(frame.NewGraph())
	require.Error(t, err)
	assert.True(t, frame.IsColumnRedefinition(err))
}

func TestBuild_LambdaBindingsDoNotLeak(t *testing.T) {
	sc := parseYAML(t, `name: x
steps:
  - {let: r, op: root}
  - let: f
    op: lambda
    name: f
    result: inner
    body:
      - {let: inner, op: field, of: self, name: a}
  - {op: set, of: r, name: b, value: {ref: f}}
  - {let: b, op: field, of: r, name: b}
render: [b]
`)
	res, err := sc.Build(frame.NewGraph())
	require.NoError(t, err)

	_, ok := res.Lookup("inner")
	assert.False(t, ok)
	_, ok = res.Lookup(SelfName)
	assert.False(t, ok)
	v, ok := res.Lookup("b")
	require.True(t, ok)
	assert.IsType(t, &frame.View{}, v)
}

func TestBuild_SequencesAndIndex(t *testing.T) {
	sc := parseYAML(t, `name: x
steps:
  - {let: r, op: root}
  - {let: jets, op: field, of: r, name: jets}
  - {let: first, op: index, of: jets, value: {lit: 0}}
  - {let: pick, op: func, name: pick, arity: 2}
  - {let: p, op: apply, func: pick, args: [{list: [{ref: first}]}, {tuple: [{lit: 1}, {lit: a}]}]}
render: [p]
`)
	rendered, _, err := Run(sc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"v1 = Source()",
		"v2 = v1.jets",
		"v3 = v2[0]",
		"v4 = [v3]",
		"v5 = (1, 'a')",
		"v6 = pick(v4, v5)",
	}, rendered[0].Lines)
}

// ============================================================================
// Rendering
// ============================================================================

func TestRender_TargetsShareOneContext(t *testing.T) {
	sc, err := Load("testdata/filters.yaml")
	require.NoError(t, err)
	res, err := sc.Build(frame.NewGraph())
	require.NoError(t, err)

	ctx := render.NewContext()
	rendered, err := res.Render(render.New(res.Graph), ctx)
	require.NoError(t, err)
	require.Len(t, rendered, 2)

	filtered := rendered[0].Expr.(*ir.Filter)
	negated := rendered[1].Expr.(*ir.UnaryOp)
	assert.True(t, ir.Same(filtered.Predicate, negated.Operand))

	d, ok := ctx.Digest(rendered[0].Expr)
	require.True(t, ok)
	assert.Equal(t, d, rendered[0].Digest)
}

func TestCheck_ReportsMismatches(t *testing.T) {
	sc := parseYAML(t, `name: x
steps:
  - {let: r, op: root}
  - {let: a, op: field, of: r, name: a}
  - {let: b, op: field, of: r, name: b}
render: [a, b]
expect:
  a: [v1 = Source(), v2 = v1.z]
  b: [v1 = Source()]
`)
	rendered, res, err := Run(sc)
	require.NoError(t, err)

	msgs := res.Check(rendered)
	require.Len(t, msgs, 2)
	assert.Equal(t, `a: line 2: expected "v2 = v1.z", got "v2 = v1.a"`, msgs[0])
	assert.Equal(t, "b: expected 1 lines, got 2", msgs[1])
}

func TestSnapshot(t *testing.T) {
	got := Snapshot([]Rendered{
		{Name: "a", Lines: []string{"v1 = Source()"}},
		{Name: "b", Lines: []string{"v1 = Source()", "v2 = v1.b"}},
	})
	assert.Equal(t, strings.Join([]string{
		"# a",
		"v1 = Source()",
		"",
		"# b",
		"v1 = Source()",
		"v2 = v1.b",
		"",
	}, "\n"), string(got))
}

func TestRenderTargets_Subset(t *testing.T) {
	sc, err := Load("testdata/filters.yaml")
	require.NoError(t, err)
	res, err := sc.Build(frame.NewGraph())
	require.NoError(t, err)

	rd := render.New(res.Graph)
	got, err := res.RenderTargets(rd, render.NewContext(), []string{"outside"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "outside", got[0].Name)

	_, err = res.RenderTargets(rd, render.NewContext(), []string{"lo"})
	assert.ErrorContains(t, err, `"lo" is not a render target of filters`)
}
