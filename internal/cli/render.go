package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/render"
	"github.com/roach88/dfexpr/internal/scenario"
	"github.com/roach88/dfexpr/internal/store"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Targets     []string
	Store       string
	Expand      bool
	MaxDepth    int
	MetricsFile string
}

// RenderOutput is the JSON payload of the render command.
type RenderOutput struct {
	Scenario string       `json:"scenario"`
	Plans    []store.Plan `json:"plans"`
	Saved    int          `json:"saved,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <script>",
		Short: "Build a script and print its flattened targets",
		Long: `Build the graph described by a YAML or CUE script and flatten its render
targets in one shared context.

Example:
  dfexpr render reroot.yaml
  dfexpr render --expand --store plans.db analysis.cue
  dfexpr render --target ptgev --format json reroot.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "render only these targets (default: all)")
	cmd.Flags().StringVar(&opts.Store, "store", "", "save plans to this SQLite database")
	cmd.Flags().BoolVar(&opts.Expand, "expand", false, "expand captured one-argument functions")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", frame.DefaultMaxDepth, "resolution and render depth limit")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write render metrics in Prometheus text format")

	return cmd
}

func runRender(ctx context.Context, opts *RenderOptions, path string, w io.Writer) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: w}
	logger := opts.Logger()

	sc, err := loadScript(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, scriptErrorCode(err), err, nil)
	}
	logger.Debug("script loaded", "name", sc.Name, "steps", len(sc.Steps), "targets", len(sc.Render))

	g := frame.NewGraph(frame.WithLogger(logger), frame.WithMaxDepth(opts.MaxDepth))
	res, err := sc.Build(g)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeBuild, err, nil)
	}

	reg := prometheus.NewRegistry()
	rd := render.New(g, render.WithLogger(logger), render.WithMetrics(render.NewMetrics(reg)))
	rctx := render.NewContext()

	targets := opts.Targets
	if len(targets) == 0 {
		targets = sc.Render
	}
	rendered, err := res.RenderTargets(rd, rctx, targets)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRender, err, nil)
	}

	plans := make([]store.Plan, 0, len(rendered))
	for _, rt := range rendered {
		var xs []render.Expansion
		if opts.Expand {
			if xs, _, err = rd.ExpandAll(rctx, rt.Expr); err != nil {
				return formatter.Fail(ExitFailure, ErrCodeRender, fmt.Errorf("expand %s: %w", rt.Name, err), nil)
			}
		}
		p, err := store.NewPlan(rt.Name, rt.Expr, rctx, xs)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeRender, err, nil)
		}
		plans = append(plans, p)
	}
	out := RenderOutput{Scenario: sc.Name, Plans: plans}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("write metrics: %w", err), nil)
		}
	}

	if opts.Store != "" {
		saved, err := savePlans(ctx, opts, plans)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err, nil)
		}
		out.Saved = saved
		logger.Info("plans saved", "db", opts.Store, "new", saved, "total", len(plans))
	}

	if msgs := res.Check(rendered); len(msgs) > 0 {
		return formatter.Fail(ExitFailure, ErrCodeExpect,
			fmt.Errorf("%d expectation(s) not met:\n  %s", len(msgs), strings.Join(msgs, "\n  ")),
			map[string]any{"mismatches": msgs, "output": out})
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	writePlans(w, plans)
	return nil
}

func savePlans(ctx context.Context, opts *RenderOptions, plans []store.Plan) (int, error) {
	st, err := store.Open(opts.Store)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing database", "error", closeErr)
		}
	}()

	saved := 0
	for _, p := range plans {
		inserted, err := st.SavePlan(ctx, p)
		if err != nil {
			return saved, err
		}
		if inserted {
			saved++
		}
	}
	return saved, nil
}

// writePlans prints each plan's dump under a "# name" header, followed by
// its expansions.
func writePlans(w io.Writer, plans []store.Plan) {
	for i, p := range plans {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s\n", p.Name)
		for _, l := range p.Dump {
			fmt.Fprintln(w, l)
		}
		for _, x := range p.Expansions {
			fmt.Fprintf(w, "## <%s/%d>\n", x.Func, x.Arity)
			for _, l := range x.Dump {
				fmt.Fprintln(w, l)
			}
		}
	}
}

func loadScript(path string) (*scenario.Scenario, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", errScriptNotFound, path)
	}
	return scenario.Load(path)
}

var errScriptNotFound = errors.New("script not found")

func scriptErrorCode(err error) string {
	if errors.Is(err, errScriptNotFound) {
		return ErrCodeNotFound
	}
	return ErrCodeParse
}
