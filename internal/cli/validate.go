package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/render"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Name    string `json:"name,omitempty"`
	Steps   int    `json:"steps"`
	Targets int    `json:"targets"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script>",
		Short: "Check that a script builds and renders",
		Long: `Parse a YAML or CUE script, run its steps and flatten every render target
without printing the trees. Pinned expectations are not checked; use render
for that.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd.OutOrStdout())
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, w io.Writer) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: w}
	logger := opts.Logger()

	sc, err := loadScript(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, scriptErrorCode(err), err, ValidationResult{})
	}
	result := ValidationResult{Name: sc.Name, Steps: len(sc.Steps), Targets: len(sc.Render)}

	g := frame.NewGraph(frame.WithLogger(logger))
	res, err := sc.Build(g)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeBuild, err, result)
	}
	if _, err := res.Render(render.New(g, render.WithLogger(logger)), render.NewContext()); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRender, err, result)
	}

	result.Valid = true
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(w, "✓ %s valid (%d steps, %d targets)\n", sc.Name, result.Steps, result.Targets)
	return nil
}
