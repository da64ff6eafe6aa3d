//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"pnl/internal/core"
)

// Run with: go test -tags=integration ./internal/sources/google

func TestIntegration_ReadReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	company := os.Getenv("PNL_INTEGRATION_COMPANY")
	if spreadsheetID == "" || company == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID or PNL_INTEGRATION_COMPANY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Options{SpreadsheetID: spreadsheetID, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defs, err := client.Categories(ctx, company)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(defs) == 0 {
		t.Fatalf("no categories for %s", company)
	}

	now := time.Now().UTC()
	q := core.FactQuery{
		Company: company,
		Period:  core.Period{From: now.AddDate(-1, 0, 0), To: now},
	}
	for _, d := range defs {
		if d.Type != core.LeafInput || d.Code == "" {
			continue
		}
		q.Code = d.Code
		if _, err := client.Value(ctx, q); err != nil {
			t.Fatalf("Value(%s): %v", d.Code, err)
		}
	}
}
