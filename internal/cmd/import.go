package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pnl/internal/config"
	"pnl/internal/core"
	applog "pnl/internal/log"
	"pnl/internal/sources/memory"
	"pnl/internal/storage"
	"pnl/internal/storage/postgres"
)

// importer is a writable store a seed file can be loaded into.
type importer interface {
	ReplaceCategories(ctx context.Context, company string, defs []core.CategoryDefinition) error
	AddFacts(ctx context.Context, facts []core.Fact) error
	Close() error
}

// importSummary is what the import command prints per company.
type importSummary struct {
	Company    string `json:"company"`
	Categories int    `json:"categories"`
	Facts      int    `json:"facts"`
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load a TOML seed file into sqlite or postgres",
		Long: `Import reads the seed file (--seed or SEED_FILE) and writes every company it
contains into the backend chosen by --backend or DATA_BACKEND.

Categories of an imported company are replaced. Facts are appended.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd, cfg)

			ctx, cancel := opts.context(cmd)
			defer cancel()

			seed, err := memory.NewFromFile(cfg.SeedFile)
			if err != nil {
				return err
			}
			target, err := openImporter(ctx, cfg)
			if err != nil {
				return err
			}
			defer target.Close()

			summaries, err := importSeed(ctx, seed, target, opts.company)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				logger.InfoContext(ctx, "Company imported",
					applog.FieldCompany, s.Company,
					applog.FieldOperation, applog.OpImport,
					applog.FieldBackend, cfg.DataBackend,
					applog.FieldRows, s.Facts)
			}
			return opts.emit(cmd.OutOrStdout(), summaries, func(w io.Writer) error {
				tw := newTable(w)
				fmt.Fprintf(tw, "COMPANY\tCATEGORIES\tFACTS\t\n")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%s\t%d\t%d\t\n", s.Company, s.Categories, s.Facts)
				}
				return tw.Flush()
			})
		},
	}
}

func openImporter(ctx context.Context, cfg *config.Config) (importer, error) {
	switch cfg.DataBackend {
	case "sqlite":
		return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("import needs a sqlite or postgres backend, got %q", cfg.DataBackend)
	}
}

// importSeed copies every company of seed, or only company when set.
func importSeed(ctx context.Context, seed *memory.Store, target importer, company string) ([]importSummary, error) {
	byCompany := make(map[string][]core.Fact)
	for _, f := range seed.Facts() {
		byCompany[f.Company] = append(byCompany[f.Company], f)
	}

	var summaries []importSummary
	for _, name := range seed.Companies() {
		if company != "" && name != company {
			continue
		}
		defs, err := seed.Categories(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := target.ReplaceCategories(ctx, name, defs); err != nil {
			return nil, fmt.Errorf("import categories of %s: %w", name, err)
		}
		facts := byCompany[name]
		if len(facts) > 0 {
			if err := target.AddFacts(ctx, facts); err != nil {
				return nil, fmt.Errorf("import facts of %s: %w", name, err)
			}
		}
		summaries = append(summaries, importSummary{Company: name, Categories: len(defs), Facts: len(facts)})
	}
	if company != "" && len(summaries) == 0 {
		return nil, fmt.Errorf("company %q not found in seed", company)
	}
	return summaries, nil
}
