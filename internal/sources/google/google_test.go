package google

import (
	"context"
	"testing"
	"time"

	"pnl/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := New(context.Background(), Options{SpreadsheetID: "sheet"}); err == nil {
		t.Fatal("expected credentials error")
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", factsSheet: "Facts", categoriesSheet: "Categories"}
	if _, err := c.Categories(context.Background(), "acme"); err == nil {
		t.Error("expected error from Categories with nil service")
	}
	if _, err := c.Value(context.Background(), core.FactQuery{Company: "acme", Code: "A"}); err == nil {
		t.Error("expected error from Value with nil service")
	}
}

func TestClient_FactsCache(t *testing.T) {
	c := &Client{cacheValidDuration: time.Minute}
	c.facts = []factRow{{Company: "acme", Code: "A", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Amount: 5}}
	c.cacheExpiresAt = time.Now().Add(time.Minute)

	q := core.FactQuery{
		Company: "acme",
		Code:    "A",
		Period:  core.Period{From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)},
	}
	v, err := c.Value(context.Background(), q)
	if err != nil || v != 5 {
		t.Fatalf("Value = %v, %v", v, err)
	}

	c.InvalidateFactsCache()
	if _, err := c.Value(context.Background(), q); err == nil {
		t.Fatal("expected a sheet read after invalidation")
	}
}
