package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pnl/internal/amqp"
	"pnl/internal/cli"
	applog "pnl/internal/log"
	"pnl/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting pnl-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	engine := cli.MustEngine(context.Background(), logger, cfg)
	defer engine.Close()

	client, err := amqp.NewClient(amqp.Config{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		RequestQueue: cfg.AMQPQueue,
		ResultQueue:  cfg.AMQPResultQueue,
		Prefetch:     cfg.ReportParallelism,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if janitor := engine.StartCacheJanitor(ctx, time.Minute); janitor != nil {
		defer janitor.Wait()
	}

	w := worker.NewReportWorker(engine.Calculator, engine.Grid, engine.Compare, client, 2*time.Minute)
	if err := client.ConsumeReportRequests(ctx, w.HandleReportRequest); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
