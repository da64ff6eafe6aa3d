package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"pnl/internal/core"
)

// GridBuilder computes one report per period of a sliced date range and
// merges them into a single table.
type GridBuilder struct {
	calc        *Calculator
	parallelism int
}

// NewGridBuilder returns a builder running up to parallelism calculations
// at once. Values below 1 mean sequential.
func NewGridBuilder(calc *Calculator, parallelism int) *GridBuilder {
	return &GridBuilder{calc: calc, parallelism: max(parallelism, 1)}
}

func (b *GridBuilder) Build(ctx context.Context, company string, from, to time.Time, grouping core.Grouping, dim *core.Dimension) (*core.Grid, error) {
	periods, err := SlicePeriods(from, to, grouping)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reports, err := calculateAll(ctx, b.parallelism, len(periods), func(ctx context.Context, i int) (*core.Report, error) {
		return b.calc.Calculate(ctx, company, periods[i], dim)
	})
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(periods))
	for i, p := range periods {
		columns[i] = p.ID
	}
	rows, warnings := mergeReports(columns, reports)

	slog.InfoContext(ctx, "Grid built",
		"company", company,
		"grouping", string(grouping),
		"periods", len(periods),
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds())

	return &core.Grid{
		Grouping: grouping,
		Periods:  periods,
		Rows:     rows,
		Warnings: warnings,
	}, nil
}

// calculateAll runs n calculations with bounded parallelism and returns the
// reports in index order. The first error cancels the rest.
func calculateAll(ctx context.Context, parallelism, n int, calc func(context.Context, int) (*core.Report, error)) ([]*core.Report, error) {
	reports := make([]*core.Report, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r, err := calc(gctx, i)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// mergeReports indexes rows by category id, one column per report. Row order
// follows first appearance; warnings are accumulated in report order.
func mergeReports(columns []string, reports []*core.Report) ([]core.TableRow, []string) {
	if len(columns) != len(reports) {
		panic(fmt.Sprintf("merge: %d columns for %d reports", len(columns), len(reports)))
	}

	var (
		rows     []core.TableRow
		index    = make(map[string]int)
		warnings core.Warnings
	)
	for i, report := range reports {
		col := columns[i]
		for _, r := range report.Rows {
			pos, ok := index[r.ID]
			if !ok {
				pos = len(rows)
				index[r.ID] = pos
				rows = append(rows, core.TableRow{
					RowHeader: r.Header(),
					Values:    make(map[string]string, len(columns)),
					RawValues: make(map[string]float64, len(columns)),
				})
			}
			rows[pos].Values[col] = r.Formatted
			rows[pos].RawValues[col] = r.RawValue
		}
		warnings.AddAll(report.Warnings)
	}
	if rows == nil {
		rows = []core.TableRow{}
	}
	return rows, warnings.List()
}
