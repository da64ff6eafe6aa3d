package google

import (
	"testing"
	"time"

	"pnl/internal/core"
)

func TestParseFacts(t *testing.T) {
	values := [][]any{
		{"Company", "Date", "Code", "Amount", "Store", ""},
		{"acme", "2026-03-01", "REVENUE", "1.234,50", "S1"},
		{"acme", "15/03/2026", "REVENUE", 100.5, "S2"},
		{"acme", "2026-03-20", "COGS", "600"},
		{},
		{"acme", "not a date", "COGS", "1"},
		{"acme", "2026-03-21", "COGS", "abc"},
		{"", "2026-03-21", "COGS", "1"},
	}
	rows, skipped, err := parseFacts(values)
	if err != nil {
		t.Fatalf("parseFacts: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if len(skipped) != 3 {
		t.Fatalf("skipped = %v, want 3", skipped)
	}
	if rows[0].Amount != 1234.5 || rows[0].Dimensions["store"] != "S1" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Date != time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) || rows[1].Amount != 100.5 {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2].Dimensions != nil {
		t.Errorf("row 2 dimensions = %v", rows[2].Dimensions)
	}
}

func TestParseFacts_MissingHeader(t *testing.T) {
	_, _, err := parseFacts([][]any{{"Company", "Date", "Amount"}})
	if err == nil {
		t.Fatal("expected header error")
	}
}

func TestParseCategories(t *testing.T) {
	values := [][]any{
		{"Company", "ID", "Code", "Name", "Level", "SortOrder", "Parent", "Type", "Formula", "Weight", "Format"},
		{"acme", "gp", "GP", "Gross profit", "0", "1", "", "subtotal", "", "", "money"},
		{"acme", "rev", "REVENUE", "Revenue", "1", "1", "gp", "LEAF_INPUT"},
		{"acme", "cogs", "COGS", "COGS", "1", "2", "gp", "LEAF_INPUT", "", "-1"},
		{"acme", "margin", "MARGIN", "Margin", "0", "2", "", "KPI", "GP / REVENUE", "", "PERCENT"},
		{"globex", "x", "X", "X", "0", "1", "", "LEAF_INPUT"},
		{"acme", "bad", "BAD", "Bad", "one", "1", "", "KPI"},
	}
	got, skipped, err := parseCategories(values)
	if err != nil {
		t.Fatalf("parseCategories: %v", err)
	}
	if len(skipped) != 1 {
		t.Errorf("skipped = %v", skipped)
	}
	acme := got["acme"]
	if len(acme) != 4 || len(got["globex"]) != 1 {
		t.Fatalf("acme = %d, globex = %d", len(acme), len(got["globex"]))
	}
	if acme[0].Type != core.Subtotal || acme[0].Format != core.FormatMoney || acme[0].WeightInParent != nil {
		t.Errorf("gp = %+v", acme[0])
	}
	if acme[2].Weight() != -1 || acme[2].ParentID != "gp" {
		t.Errorf("cogs = %+v", acme[2])
	}
	if acme[3].Formula != "GP / REVENUE" || acme[3].Format != core.FormatPercent {
		t.Errorf("margin = %+v", acme[3])
	}
}

func TestSumFacts(t *testing.T) {
	rows, _, err := parseFacts([][]any{
		{"Company", "Date", "Code", "Amount", "Store"},
		{"acme", "2026-03-01", "REVENUE", "100", "S1"},
		{"acme", "2026-03-31", "REVENUE", "50", "S2"},
		{"acme", "2026-04-01", "REVENUE", "25", "S1"},
		{"globex", "2026-03-05", "REVENUE", "7", "S1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	march := core.Period{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC),
	}

	tests := []struct {
		name string
		q    core.FactQuery
		want float64
	}{
		{"month", core.FactQuery{Company: "acme", Code: "REVENUE", Period: march}, 150},
		{"dimension key is case-insensitive", core.FactQuery{Company: "acme", Code: "REVENUE", Period: march, Dimension: &core.Dimension{Key: "Store", Value: "S1"}}, 100},
		{"unknown code", core.FactQuery{Company: "acme", Code: "COGS", Period: march}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sumFacts(rows, tt.q); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
