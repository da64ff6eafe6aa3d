package backend

import (
	"context"
	"fmt"
	"log/slog"

	"pnl/internal/sources"
	gsheet "pnl/internal/sources/google"
	"pnl/internal/sources/memory"
	"pnl/internal/storage"
	"pnl/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the configured store and wraps its facts with the
// burst cache when enabled.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *Result
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.FactsCacheSize > 0 && config.FactsCacheTTL > 0 {
		result.Facts = sources.NewCachedFacts(result.Facts, config.FactsCacheSize, config.FactsCacheTTL)
		f.logger.Info("Facts cache enabled", "size", config.FactsCacheSize, "ttl", config.FactsCacheTTL)
	}
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store := memory.New()
	if config.SeedFile != "" {
		seeded, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		store = seeded
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, "companies", len(store.Companies()))
	return &Result{
		Categories: store,
		Facts:      store,
		Ready:      func(context.Context) error { return nil },
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Categories: repo,
		Facts:      repo,
		Ready:      repo.Ping,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := postgres.New(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")
	return &Result{
		Categories: repo,
		Facts:      repo,
		Ready:      repo.Ping,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		FactsSheet:      config.GoogleFactsSheetName,
		CategoriesSheet: config.GoogleCategoriesSheetName,
		CacheTTL:        config.FactsCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{
		Categories: cli,
		Facts:      cli,
		Ready:      func(context.Context) error { return nil },
	}, nil
}
