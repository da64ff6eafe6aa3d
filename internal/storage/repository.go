package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pnl/internal/core"
	"pnl/internal/sources"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository stores category definitions and facts in SQLite and
// serves them to the calculator.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ sources.CategoryReader = (*SQLiteRepository)(nil)
	_ sources.FactsProvider  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Categories implements sources.CategoryReader.
func (r *SQLiteRepository) Categories(ctx context.Context, company string) ([]core.CategoryDefinition, error) {
	rows, err := r.db.QueryContext(ctx, selectCategories, company)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var defs []core.CategoryDefinition
	for rows.Next() {
		var (
			d           core.CategoryDefinition
			typ, format string
			weight      sql.NullFloat64
		)
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.Level, &d.SortOrder, &d.ParentID, &typ, &d.Formula, &weight, &format); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		d.Type = core.CategoryType(typ)
		d.Format = core.ParseFormat(format)
		if weight.Valid {
			w := weight.Float64
			d.WeightInParent = &w
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return defs, nil
}

// Value implements sources.FactsProvider.
func (r *SQLiteRepository) Value(ctx context.Context, q core.FactQuery) (float64, error) {
	from, to := q.Period.From.Format(dateLayout), q.Period.To.Format(dateLayout)

	var (
		sum sql.NullFloat64
		err error
	)
	if q.Dimension == nil {
		err = r.db.QueryRowContext(ctx, sumFacts, q.Company, q.Code, from, to).Scan(&sum)
	} else {
		err = r.db.QueryRowContext(ctx, sumFactsByDimension, q.Company, q.Code, from, to, q.Dimension.Key, q.Dimension.Value).Scan(&sum)
	}
	if err != nil {
		return 0, fmt.Errorf("sum facts for %s: %w", q.Code, err)
	}
	return sum.Float64, nil
}

func (r *SQLiteRepository) SupportsDimension() bool { return true }

// ReplaceCategories swaps a company's definitions for defs in one
// transaction. It backs the import tooling; the calculator never writes.
func (r *SQLiteRepository) ReplaceCategories(ctx context.Context, company string, defs []core.CategoryDefinition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteCategories, company); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	for i, d := range defs {
		var weight sql.NullFloat64
		if d.WeightInParent != nil {
			weight = sql.NullFloat64{Float64: *d.WeightInParent, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insertCategory,
			company, d.ID, i, d.Code, d.Name, d.Level, d.SortOrder, d.ParentID,
			string(d.Type), d.Formula, weight, string(core.ParseFormat(string(d.Format))),
		); err != nil {
			return fmt.Errorf("insert category %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit categories: %w", err)
	}

	slog.InfoContext(ctx, "Categories replaced", "company", company, "count", len(defs))
	return nil
}

// AddFacts inserts facts and their dimension values in one transaction.
func (r *SQLiteRepository) AddFacts(ctx context.Context, facts []core.Fact) error {
	start := time.Now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range facts {
		res, err := tx.ExecContext(ctx, insertFact, f.Company, f.Code, f.Date.Format(dateLayout), f.Amount)
		if err != nil {
			return fmt.Errorf("insert fact %s: %w", f.Code, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("fact id: %w", err)
		}
		for k, v := range f.Dimensions {
			if _, err := tx.ExecContext(ctx, insertFactDimension, id, k, v); err != nil {
				return fmt.Errorf("insert dimension %s: %w", k, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit facts: %w", err)
	}

	slog.InfoContext(ctx, "Facts imported", "count", len(facts), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
