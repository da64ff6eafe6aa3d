package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pnl/internal/core"
	"pnl/internal/services"
)

const dateLayout = "2006-01-02"

// rangeFlags are the --from/--to pair shared by the report commands.
type rangeFlags struct {
	from string
	to   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.from, "from", "", "First day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&r.to, "to", "", "Last day, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (r *rangeFlags) parse() (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, r.from, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", r.from)
	}
	to, err := time.ParseInLocation(dateLayout, r.to, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", r.to)
	}
	return from, to, nil
}

// parseDimension accepts key=value; empty means no dimension.
func parseDimension(raw string) (*core.Dimension, error) {
	if raw == "" {
		return nil, nil
	}
	key, value, ok := strings.Cut(raw, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return nil, fmt.Errorf("invalid --dimension %q: expected key=value", raw)
	}
	return &core.Dimension{Key: key, Value: value}, nil
}

func newPeriodCmd(opts *options) *cobra.Command {
	var (
		rng       rangeFlags
		dimension string
	)
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Compute one report over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireCompany(); err != nil {
				return err
			}
			from, to, err := rng.parse()
			if err != nil {
				return err
			}
			dim, err := parseDimension(dimension)
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()
			engine, err := opts.engine(ctx, cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			report, err := engine.Calculator.Calculate(ctx, opts.company, services.AggregatePeriod(from, to), dim)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
				if err := renderReport(w, report); err != nil {
					return err
				}
				return renderWarnings(cmd.ErrOrStderr(), report.Warnings)
			})
		},
	}
	rng.register(cmd)
	cmd.Flags().StringVar(&dimension, "dimension", "", "Narrow facts by key=value, e.g. store=S1")
	return cmd
}

func newGridCmd(opts *options) *cobra.Command {
	var (
		rng       rangeFlags
		grouping  string
		dimension string
	)
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Compute one report per day, week or month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireCompany(); err != nil {
				return err
			}
			from, to, err := rng.parse()
			if err != nil {
				return err
			}
			dim, err := parseDimension(dimension)
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()
			engine, err := opts.engine(ctx, cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			grid, err := engine.Grid.Build(ctx, opts.company, from, to, core.Grouping(grouping), dim)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), grid, func(w io.Writer) error {
				if err := renderGrid(w, grid); err != nil {
					return err
				}
				return renderWarnings(cmd.ErrOrStderr(), grid.Warnings)
			})
		},
	}
	rng.register(cmd)
	cmd.Flags().StringVar(&grouping, "grouping", string(core.GroupByMonth), "Slice by day, week or month")
	cmd.Flags().StringVar(&dimension, "dimension", "", "Narrow facts by key=value, e.g. store=S1")
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	var (
		rng    rangeFlags
		by     string
		values []string
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare dimension values side by side with a total",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireCompany(); err != nil {
				return err
			}
			from, to, err := rng.parse()
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()
			engine, err := opts.engine(ctx, cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			cmp, err := engine.Compare.Build(ctx, opts.company, from, to, values, by)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), cmp, func(w io.Writer) error {
				if err := renderComparison(w, cmp); err != nil {
					return err
				}
				return renderWarnings(cmd.ErrOrStderr(), cmp.Warnings)
			})
		},
	}
	rng.register(cmd)
	cmd.Flags().StringVar(&by, "by", "", "Dimension key to compare on (required)")
	cmd.Flags().StringSliceVar(&values, "values", nil, "Dimension values, comma separated (required)")
	_ = cmd.MarkFlagRequired("by")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newDiagnoseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check category definitions without reading facts",
		Long: `Diagnose reports duplicate ids and codes, formulas on the wrong category
type, syntax errors, unknown codes and dependency cycles.

Exits non-zero when any problem is found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireCompany(); err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()
			engine, err := opts.engine(ctx, cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			warnings, err := engine.Calculator.Diagnose(ctx, opts.company)
			if err != nil {
				return err
			}
			payload := struct {
				Company  string   `json:"company"`
				Warnings []string `json:"warnings"`
			}{opts.company, warnings}
			if err := opts.emit(cmd.OutOrStdout(), payload, func(w io.Writer) error {
				if len(warnings) == 0 {
					_, err := fmt.Fprintf(w, "%s: no problems found\n", opts.company)
					return err
				}
				return renderWarnings(w, warnings)
			}); err != nil {
				return err
			}
			if len(warnings) > 0 {
				return fmt.Errorf("%d problem(s) found", len(warnings))
			}
			return nil
		},
	}
}
