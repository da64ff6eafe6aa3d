package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pnl/internal/core"
	"pnl/internal/sources"
)

// Repository serves definitions and facts from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ sources.CategoryReader = (*Repository)(nil)
	_ sources.FactsProvider  = (*Repository)(nil)
)

// New migrates the schema and opens a connection pool.
func New(ctx context.Context, url string) (*Repository, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if err := RunMigrations(url); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Categories(ctx context.Context, company string) ([]core.CategoryDefinition, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, code, name, level, sort_order, parent_id, type, formula, weight, format
FROM categories
WHERE company = $1
ORDER BY position`, company)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}

	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryDefinition, error) {
		var (
			d           core.CategoryDefinition
			typ, format string
		)
		err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Level, &d.SortOrder, &d.ParentID, &typ, &d.Formula, &d.WeightInParent, &format)
		d.Type = core.CategoryType(typ)
		d.Format = core.ParseFormat(format)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return defs, nil
}

func (r *Repository) Value(ctx context.Context, q core.FactQuery) (float64, error) {
	var (
		sum float64
		err error
	)
	from, to := q.Period.From.Format("2006-01-02"), q.Period.To.Format("2006-01-02")
	if q.Dimension == nil {
		err = r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0)::float8
FROM facts
WHERE company = $1 AND code = $2 AND fact_date BETWEEN $3::date AND $4::date`,
			q.Company, q.Code, from, to).Scan(&sum)
	} else {
		err = r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0)::float8
FROM facts
WHERE company = $1 AND code = $2 AND fact_date BETWEEN $3::date AND $4::date
  AND dimensions ->> $5 = $6`,
			q.Company, q.Code, from, to, q.Dimension.Key, q.Dimension.Value).Scan(&sum)
	}
	if err != nil {
		return 0, fmt.Errorf("sum facts for %s: %w", q.Code, err)
	}
	return sum, nil
}

func (r *Repository) SupportsDimension() bool { return true }

// ReplaceCategories swaps a company's definitions in one transaction.
func (r *Repository) ReplaceCategories(ctx context.Context, company string, defs []core.CategoryDefinition) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE company = $1`, company); err != nil {
			return fmt.Errorf("delete categories: %w", err)
		}
		batch := &pgx.Batch{}
		for i, d := range defs {
			batch.Queue(`
INSERT INTO categories (company, id, position, code, name, level, sort_order, parent_id, type, formula, weight, format)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				company, d.ID, i, d.Code, d.Name, d.Level, d.SortOrder, d.ParentID,
				string(d.Type), d.Formula, d.WeightInParent, string(core.ParseFormat(string(d.Format))))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert categories: %w", err)
		}
		slog.InfoContext(ctx, "Categories replaced", "company", company, "count", len(defs))
		return nil
	})
}

// AddFacts bulk-loads facts with COPY.
func (r *Repository) AddFacts(ctx context.Context, facts []core.Fact) error {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		dims, err := json.Marshal(dimensionsOrEmpty(f.Dimensions))
		if err != nil {
			return fmt.Errorf("encode dimensions: %w", err)
		}
		rows = append(rows, []any{f.Company, f.Code, f.Date, f.Amount, string(dims)})
	}
	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"facts"},
		[]string{"company", "code", "fact_date", "amount", "dimensions"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy facts: %w", err)
	}
	slog.InfoContext(ctx, "Facts imported", "count", n)
	return nil
}

func dimensionsOrEmpty(d map[string]string) map[string]string {
	if d == nil {
		return map[string]string{}
	}
	return d
}
