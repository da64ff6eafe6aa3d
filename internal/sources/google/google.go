package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pnl/internal/core"
	"pnl/internal/sources"
)

// Client reads category definitions and facts from a spreadsheet.
// Definitions are read on every call; the facts sheet is kept for
// cacheValidDuration because a single report asks for many codes.
type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	factsSheet      string
	categoriesSheet string

	mu                 sync.Mutex
	facts              []factRow
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var (
	_ sources.CategoryReader = (*Client)(nil)
	_ sources.FactsProvider  = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	SpreadsheetID   string
	FactsSheet      string
	CategoriesSheet string
	// CacheTTL bounds how long the facts sheet is reused; 0 reads it on every lookup.
	CacheTTL time.Duration
}

// New creates a client authenticated with service account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if opts.FactsSheet == "" {
		opts.FactsSheet = "Facts"
	}
	if opts.CategoriesSheet == "" {
		opts.CategoriesSheet = "Categories"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      opts.SpreadsheetID,
		factsSheet:         opts.FactsSheet,
		categoriesSheet:    opts.CategoriesSheet,
		cacheValidDuration: opts.CacheTTL,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsReadonlyScope)
	return svc, nil
}

func (c *Client) Categories(ctx context.Context, company string) ([]core.CategoryDefinition, error) {
	values, err := c.readSheet(ctx, c.categoriesSheet)
	if err != nil {
		return nil, err
	}
	byCompany, skipped, err := parseCategories(values)
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, c.categoriesSheet, skipped)
	return byCompany[company], nil
}

func (c *Client) Value(ctx context.Context, q core.FactQuery) (float64, error) {
	rows, err := c.factRows(ctx)
	if err != nil {
		return 0, err
	}
	return sumFacts(rows, q), nil
}

// SupportsDimension is true: extra facts sheet columns are dimension keys.
func (c *Client) SupportsDimension() bool { return true }

// InvalidateFactsCache forces the next lookup to re-read the facts sheet.
func (c *Client) InvalidateFactsCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts = nil
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) factRows(ctx context.Context) ([]factRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.facts != nil && time.Now().Before(c.cacheExpiresAt) {
		return c.facts, nil
	}

	values, err := c.readSheet(ctx, c.factsSheet)
	if err != nil {
		return nil, err
	}
	rows, skipped, err := parseFacts(values)
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, c.factsSheet, skipped)
	if rows == nil {
		rows = []factRow{}
	}
	c.facts = rows
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	return rows, nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return resp.Values, nil
}

func logSkipped(ctx context.Context, sheet string, skipped []error) {
	for _, err := range skipped {
		slog.WarnContext(ctx, "Skipping sheet row", "sheet", sheet, "error", err)
	}
}
