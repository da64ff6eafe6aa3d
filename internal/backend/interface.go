package backend

import (
	"context"
	"time"

	"pnl/internal/sources"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result bundles the two ports the calculator needs from a backend.
type Result struct {
	Categories sources.CategoryReader
	Facts      sources.FactsProvider
	// Ready reports whether the backing store is reachable.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	SeedFile string

	// SQLite
	SQLiteDBPath string

	// Postgres
	DatabaseURL string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleFactsSheetName      string
	GoogleCategoriesSheetName string

	// Facts burst cache; disabled when size or TTL is zero.
	FactsCacheSize int
	FactsCacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
