package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	applog "bilancio/internal/log"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting bilancio-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		logger.Error("The worker needs the shared sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	params := cli.LoadLayout(logger, cfg.LayoutFile)

	store, err := cli.OpenStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open budget store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	w := worker.NewSnapshotWorker(store, worker.Options{
		Params: params,
		Width:  cfg.SnapshotWidth,
		Height: cfg.SnapshotHeight,
		Logger: logger,
	})

	ctx := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, ctx := errgroup.WithContext(ctx)

	// On startup, render anything saved while the worker was down.
	if n, err := w.ProcessStale(ctx); err != nil {
		logger.Error("Startup snapshot sweep failed", applog.FieldError, err)
	} else {
		logger.Info("Startup snapshot sweep complete", "saved", n)
	}

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeBudgetChanged(ctx, w.HandleBudgetChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on the periodic sweep", "interval", cfg.SnapshotSweep)
	}

	g.Go(func() error {
		return w.RunSweep(ctx, cfg.SnapshotSweep)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
