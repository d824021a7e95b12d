package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/dfexpr/internal/store"
)

// PlansOptions holds flags for the plans command.
type PlansOptions struct {
	*RootOptions
	Name string

	// Now is the reference time for relative ages (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time
}

// NewPlansCommand creates the plans command.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plans <db> [plan-id]",
		Short: "List or show stored plans",
		Long: `List the plans saved by "render --store", oldest first, or show one plan's
dump and expansions.

Example:
  dfexpr plans plans.db
  dfexpr plans --name ptgev plans.db
  dfexpr plans plans.db 3f2a...`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runPlans(cmd.Context(), opts, args[0], id, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "only list plans for this render target")

	return cmd
}

func runPlans(ctx context.Context, opts *PlansOptions, dbPath, id string, w io.Writer) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: w}

	// Open would create an empty database; a missing path is a typo.
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("database not found: %s", dbPath), nil)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err, nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing database", "error", closeErr)
		}
	}()

	if id != "" {
		p, err := st.Plan(ctx, id)
		if errors.Is(err, store.ErrPlanNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err, nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err, nil)
		}
		if formatter.JSON() {
			return formatter.Success(p)
		}
		writePlans(w, []store.Plan{p})
		return nil
	}

	plans, err := st.Plans(ctx, opts.Name)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err, nil)
	}
	if formatter.JSON() {
		if plans == nil {
			plans = []store.Plan{}
		}
		return formatter.Success(plans)
	}

	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans stored")
		return nil
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Seq", "Plan", "Name", "Lines", "Size", "Created"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, p := range plans {
		table.Append([]string{
			strconv.FormatInt(p.Seq, 10),
			shortID(p.ID),
			p.Name,
			strconv.Itoa(len(p.Dump)),
			humanize.Bytes(uint64(len(p.Expr))),
			humanize.RelTime(p.CreatedAt, now(), "ago", "from now"),
		})
	}
	table.Render()
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
