// Package cli provides common initialization shared by cmd/pnl,
// cmd/pnl-worker and cmd/pnlctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pnl/internal/backend"
	"pnl/internal/cache"
	"pnl/internal/config"
	applog "pnl/internal/log"
	"pnl/internal/services"
	"pnl/internal/sources"
)

// SetupLogger builds the component logger at LOG_LEVEL and installs it as
// the slog default. An invalid level falls back to info with a warning.
func SetupLogger(level, component string) *applog.Logger {
	lvl, err := config.ParseLogLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", applog.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Engine holds the report services built on one backend.
type Engine struct {
	Backend    *backend.Result
	Calculator *services.Calculator
	Grid       *services.GridBuilder
	Compare    *services.CompareBuilder
}

// NewEngine opens the configured backend and wires the report services.
func NewEngine(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*Engine, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	calc := services.NewCalculator(res.Categories, res.Facts)
	return &Engine{
		Backend:    res,
		Calculator: calc,
		Grid:       services.NewGridBuilder(calc, cfg.ReportParallelism),
		Compare:    services.NewCompareBuilder(calc, cfg.ReportParallelism),
	}, nil
}

// MustEngine is NewEngine that exits the process on failure.
func MustEngine(ctx context.Context, logger *applog.Logger, cfg *config.Config) *Engine {
	engine, err := NewEngine(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return engine
}

// CacheStats returns the facts cache counters, or nil when the backend is
// not cached.
func (e *Engine) CacheStats() func() cache.Stats {
	cached, ok := e.Backend.Facts.(*sources.CachedFacts)
	if !ok {
		return nil
	}
	return cached.Cache().Stats
}

// StartCacheJanitor evicts expired facts until ctx is done. It returns nil
// when the backend is not cached.
func (e *Engine) StartCacheJanitor(ctx context.Context, interval time.Duration) *cache.Janitor {
	cached, ok := e.Backend.Facts.(*sources.CachedFacts)
	if !ok {
		return nil
	}
	j := cache.NewJanitor(cached.Cache())
	j.Start(ctx, interval)
	return j
}

func (e *Engine) Close() error {
	return e.Backend.Close()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs err and exits.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any(applog.FieldError, err))
	os.Exit(1)
}
