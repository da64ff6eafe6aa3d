package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"pnl/internal/core"
)

func reportDefs() fakeCategories {
	return fakeCategories{defs: map[string][]core.CategoryDefinition{"acme": {
		{ID: "gp", Code: "GP", Name: "Gross profit", Type: core.Subtotal, Format: core.FormatMoney},
		leaf("rev", "REVENUE", "gp", 1),
		{ID: "cogs", Code: "COGS", Name: "cogs", ParentID: "gp", SortOrder: 2, Type: core.LeafInput, WeightInParent: weight(-1)},
		kpi("margin", "MARGIN", "GP / REVENUE", 3),
		{ID: "plain", Code: "PLAIN", Name: "plain", SortOrder: 4, Type: core.KPI, Formula: "REVENUE / 3"},
	}}}
}

func TestGridBuilder_Days(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		facts := &fakeFacts{values: map[string]float64{"REVENUE": 100, "COGS": 40}}
		grid, err := NewGridBuilder(NewCalculator(reportDefs(), facts), parallelism).
			Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 31), core.GroupByDay, nil)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if len(grid.Periods) != 31 {
			t.Fatalf("periods = %d, want 31", len(grid.Periods))
		}
		if len(grid.Rows) != 5 {
			t.Fatalf("rows = %d, want 5", len(grid.Rows))
		}
		gp := grid.Rows[0]
		if gp.ID != "gp" {
			t.Fatalf("first row = %s", gp.ID)
		}
		for _, p := range grid.Periods {
			if gp.RawValues[p.ID] != 60 || gp.Values[p.ID] != "60.00" {
				t.Errorf("parallelism %d: %s = %v (%q)", parallelism, p.ID, gp.RawValues[p.ID], gp.Values[p.ID])
			}
		}
		if len(facts.queries) != 31*2 {
			t.Errorf("facts queried %d times, want 62", len(facts.queries))
		}
	}
}

func TestGridBuilder_MergesWarnings(t *testing.T) {
	cats := fakeCategories{defs: map[string][]core.CategoryDefinition{"acme": {kpi("k", "K", "FOO", 0)}}}
	grid, err := NewGridBuilder(NewCalculator(cats, &fakeFacts{}), 1).
		Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 3), core.GroupByDay, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(grid.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", grid.Warnings)
	}
}

func TestGridBuilder_Errors(t *testing.T) {
	b := NewGridBuilder(NewCalculator(reportDefs(), &fakeFacts{}), 1)
	if _, err := b.Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 2), "year", nil); !errors.Is(err, core.ErrInvalidGrouping) {
		t.Errorf("err = %v, want ErrInvalidGrouping", err)
	}
	_, err := b.Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 2), core.GroupByDay, &core.Dimension{Key: "store", Value: "S1"})
	if !errors.Is(err, core.ErrDimensionUnsupported) {
		t.Errorf("err = %v, want ErrDimensionUnsupported", err)
	}
}

func compareFacts() *fakeFacts {
	return &fakeFacts{
		dimensions: true,
		values: map[string]float64{
			"REVENUE|S1": 100.1, "COGS|S1": 40,
			"REVENUE|S2": 200.2, "COGS|S2": 50,
			"REVENUE|S3": 300.3, "COGS|S3": 60,
		},
	}
}

func TestCompareBuilder_Total(t *testing.T) {
	b := NewCompareBuilder(NewCalculator(reportDefs(), compareFacts()), 2)
	cmp, err := b.Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 31), []string{"S1", "S2", "S3"}, "store")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := []string{"S1", "S2", "S3", core.TotalColumn}; !reflect.DeepEqual(cmp.Columns, want) {
		t.Fatalf("columns = %v, want %v", cmp.Columns, want)
	}
	for _, row := range cmp.Rows {
		sum := row.RawValues["S1"] + row.RawValues["S2"] + row.RawValues["S3"]
		if diff := row.RawValues[core.TotalColumn] - sum; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: total %v, sum %v", row.ID, row.RawValues[core.TotalColumn], sum)
		}
	}
	if got := cmp.Rows[0].Values[core.TotalColumn]; got != "450.60" {
		t.Errorf("gp total = %q, want 450.60", got)
	}
	if cmp.Period.ID != "2026-03-01_2026-03-31" {
		t.Errorf("period id = %q", cmp.Period.ID)
	}
}

func TestCompareBuilder_TotalIndependentOfOrder(t *testing.T) {
	orders := [][]string{{"S1", "S2", "S3"}, {"S3", "S1", "S2"}, {"S2", "S3", "S1", "S2"}}
	var totals []map[string]float64
	for _, values := range orders {
		b := NewCompareBuilder(NewCalculator(reportDefs(), compareFacts()), 1)
		cmp, err := b.Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 31), values, "store")
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		got := make(map[string]float64)
		for _, row := range cmp.Rows {
			got[row.ID] = row.RawValues[core.TotalColumn]
		}
		totals = append(totals, got)
	}
	for i := 1; i < len(totals); i++ {
		if !reflect.DeepEqual(totals[0], totals[i]) {
			t.Fatalf("totals differ for order %v: %v vs %v", orders[i], totals[0], totals[i])
		}
	}
}

func TestCompareBuilder_DefaultFormat(t *testing.T) {
	b := NewCompareBuilder(NewCalculator(reportDefs(), compareFacts()), 1)
	cmp, err := b.Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 31), []string{"S1"}, "store")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	plain := cmp.Rows[len(cmp.Rows)-1]
	if plain.ID != "plain" {
		t.Fatalf("last row = %s", plain.ID)
	}
	if got := plain.Values[core.TotalColumn]; got != core.FormatValue(100.1/3, core.FormatNumber) {
		t.Errorf("total = %q", got)
	}
}

func TestCompareBuilder_UnsupportedDimension(t *testing.T) {
	facts := &fakeFacts{}
	b := NewCompareBuilder(NewCalculator(reportDefs(), facts), 1)
	_, err := b.Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 31), []string{"S1"}, "store")
	if !errors.Is(err, core.ErrDimensionUnsupported) {
		t.Fatalf("err = %v, want ErrDimensionUnsupported", err)
	}
	if len(facts.queries) != 0 {
		t.Fatalf("facts queried before failing: %d", len(facts.queries))
	}
}

func TestCompareBuilder_TooManyValues(t *testing.T) {
	facts := compareFacts()
	values := make([]string, core.MaxCompareValues+1)
	for i := range values {
		values[i] = fmt.Sprintf("S%d", i)
	}
	_, err := NewCompareBuilder(NewCalculator(reportDefs(), facts), 1).
		Build(context.Background(), "acme", date(2026, 3, 1), date(2026, 3, 31), values, "store")
	if !errors.Is(err, core.ErrRangeTooLarge) {
		t.Fatalf("err = %v, want ErrRangeTooLarge", err)
	}
	if len(facts.queries) != 0 {
		t.Fatalf("facts queried before failing: %d", len(facts.queries))
	}
}

func TestGridBuilder_RangeTooLarge(t *testing.T) {
	facts := &fakeFacts{}
	_, err := NewGridBuilder(NewCalculator(reportDefs(), facts), 1).
		Build(context.Background(), "acme", date(1, 1, 1), date(9999, 12, 31), core.GroupByDay, nil)
	if !errors.Is(err, core.ErrRangeTooLarge) {
		t.Fatalf("err = %v, want ErrRangeTooLarge", err)
	}
	if len(facts.queries) != 0 {
		t.Fatalf("facts queried before failing: %d", len(facts.queries))
	}
}
