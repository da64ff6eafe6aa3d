package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pnl/internal/config"
	"pnl/internal/core"
	"pnl/internal/sources"
)

const seed = `
[[company]]
name = "acme"

  [[company.category]]
  id = "rev"
  code = "REVENUE"
  name = "Revenue"
  type = "LEAF_INPUT"

  [[company.fact]]
  code = "REVENUE"
  date = "2026-03-02"
  amount = 12.5
`

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("excel").IsValid() {
		t.Error("excel should not be valid")
	}
	if got := GetBackendTypeStrings(); len(got) != 4 || got[2] != "postgres" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Error("expected error for invalid backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", FactsCacheSize: 10, FactsCacheTTL: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.FactsCacheSize != 10 {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	cfg, err = FromAppConfig(&config.Config{DataBackend: "memory", FactsCacheSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FactsCacheSize != 0 {
		t.Errorf("cache should be disabled without a TTL: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "excel"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		SeedFile:       path,
		FactsCacheSize: 10,
		FactsCacheTTL:  time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if _, ok := res.Facts.(*sources.CachedFacts); !ok {
		t.Errorf("facts should be cached, got %T", res.Facts)
	}
	if err := res.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
	defs, err := res.Categories.Categories(context.Background(), "acme")
	if err != nil || len(defs) != 1 {
		t.Fatalf("Categories = %v, %v", defs, err)
	}
	v, err := res.Facts.Value(context.Background(), core.FactQuery{
		Company: "acme",
		Code:    "REVENUE",
		Period:  core.Period{From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil || v != 12.5 {
		t.Fatalf("Value = %v, %v", v, err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "pnl.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if err := res.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
	if !res.Facts.SupportsDimension() {
		t.Error("sqlite facts should support dimensions")
	}
}

func TestCreateBackend_MissingSeed(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: "/no/such/seed.toml"})
	if err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
