package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pnl/internal/core"
)

// CompareBuilder computes one report per value of a dimension over a single
// aggregate period and adds a total column.
type CompareBuilder struct {
	calc        *Calculator
	parallelism int
}

func NewCompareBuilder(calc *Calculator, parallelism int) *CompareBuilder {
	return &CompareBuilder{calc: calc, parallelism: max(parallelism, 1)}
}

// Build fails with core.ErrDimensionUnsupported before any calculation when
// the facts source cannot narrow by dimension. Repeated values are compared
// once.
func (b *CompareBuilder) Build(ctx context.Context, company string, from, to time.Time, values []string, dimension string) (*core.Comparison, error) {
	if !b.calc.SupportsDimension() {
		return nil, fmt.Errorf("compare by %s: %w", dimension, core.ErrDimensionUnsupported)
	}
	if dimension == "" {
		return nil, fmt.Errorf("compare: empty dimension key")
	}

	columns := dedupe(values)
	if len(columns) > core.MaxCompareValues {
		return nil, fmt.Errorf("%w: %d values, at most %d allowed", core.ErrRangeTooLarge, len(columns), core.MaxCompareValues)
	}
	period := AggregatePeriod(from, to)

	start := time.Now()
	reports, err := calculateAll(ctx, b.parallelism, len(columns), func(ctx context.Context, i int) (*core.Report, error) {
		return b.calc.Calculate(ctx, company, period, &core.Dimension{Key: dimension, Value: columns[i]})
	})
	if err != nil {
		return nil, err
	}

	rows, warnings := mergeReports(columns, reports)
	for i := range rows {
		addTotal(&rows[i], columns)
	}

	slog.InfoContext(ctx, "Comparison built",
		"company", company,
		"dimension", dimension,
		"values", len(columns),
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds())

	return &core.Comparison{
		Period:    period,
		Dimension: dimension,
		Columns:   append(columns, core.TotalColumn),
		Rows:      rows,
		Warnings:  warnings,
	}, nil
}

// addTotal sums the row's raw values in sorted column order so the result
// is the same whatever order the caller listed the values in.
func addTotal(row *core.TableRow, columns []string) {
	sorted := slices.Clone(columns)
	slices.Sort(sorted)
	var total float64
	for _, col := range sorted {
		total += row.RawValues[col]
	}
	format := row.Format
	if format == "" {
		format = core.FormatNumber
	}
	row.RawValues[core.TotalColumn] = total
	row.Values[core.TotalColumn] = core.FormatValue(total, format)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
