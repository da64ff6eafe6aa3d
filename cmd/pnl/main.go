package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pnl/internal/cli"
	apphttp "pnl/internal/http"
	applog "pnl/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	engine := cli.MustEngine(context.Background(), logger, cfg)
	defer engine.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Calculator:     engine.Calculator,
		Grid:           engine.Grid,
		Compare:        engine.Compare,
		Ready:          engine.Backend.Ready,
		Logger:         logger,
		RateLimitRPM:   cfg.RateLimitRPM,
		RequestTimeout: 30 * time.Second,
		CacheStats:     engine.CacheStats(),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	if janitor := engine.StartCacheJanitor(ctx, time.Minute); janitor != nil {
		defer janitor.Wait()
	}

	logger.Info("Starting pnl server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
