// Package cmd implements the pnlctl command tree.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pnl/internal/cli"
	"pnl/internal/config"
	applog "pnl/internal/log"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	company string
	output  string
	backend string
	seed    string
	dbPath  string
	timeout time.Duration
}

// Execute runs pnlctl with os.Args.
func Execute() {
	cli.LoadEnvFile()
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "pnlctl",
		Short: "Compute P&L reports from the command line",
		Long: `pnlctl computes P&L reports against the configured data backend.

The backend is chosen by DATA_BACKEND (memory, sqlite, postgres, sheets) and
can be overridden with --backend. Reports print as a table or as JSON.

Examples:
  pnlctl period --company acme --from 2026-03-01 --to 2026-03-31
  pnlctl grid --company acme --from 2026-01-01 --to 2026-03-31 --grouping week
  pnlctl compare --company acme --from 2026-03-01 --to 2026-03-31 --by store --values S1,S2
  pnlctl diagnose --company acme
  pnlctl import --seed data/seed.toml --backend sqlite --db ./data/pnl.db`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("invalid --output %q: must be %s or %s", opts.output, outputTable, outputJSON)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.company, "company", "c", "", "Company whose categories and facts are used")
	flags.StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
	flags.StringVar(&opts.backend, "backend", "", "Override DATA_BACKEND")
	flags.StringVar(&opts.seed, "seed", "", "Override SEED_FILE")
	flags.StringVar(&opts.dbPath, "db", "", "Override SQLITE_DB_PATH")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Abort the command after this long")

	root.AddCommand(
		newPeriodCmd(opts),
		newGridCmd(opts),
		newCompareCmd(opts),
		newDiagnoseCmd(opts),
		newImportCmd(opts),
		newSubmitCmd(opts),
	)
	return root
}

// loadConfig reads the environment and applies flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if o.backend != "" {
		cfg.DataBackend = o.backend
	}
	if o.seed != "" {
		cfg.SeedFile = o.seed
	}
	if o.dbPath != "" {
		cfg.SQLiteDBPath = o.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger writes to stderr so JSON output on stdout stays parseable.
func (o *options) logger(cmd *cobra.Command, cfg *config.Config) *applog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	return applog.New(applog.Config{Level: level, Component: applog.ComponentCLI, Output: cmd.ErrOrStderr()})
}

// engine opens the backend for one command. Callers must Close it.
func (o *options) engine(ctx context.Context, cmd *cobra.Command) (*cli.Engine, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewEngine(ctx, o.logger(cmd, cfg), cfg)
}

func (o *options) requireCompany() error {
	if o.company == "" {
		return fmt.Errorf("--company is required")
	}
	return nil
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

// emit prints v as JSON, or with render as a table.
func (o *options) emit(w io.Writer, v any, render func(io.Writer) error) error {
	if o.output == outputJSON {
		return writeJSON(w, v)
	}
	return render(w)
}
