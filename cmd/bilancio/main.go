package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	params := cli.LoadLayout(logger, cfg.LayoutFile)

	store, err := cli.OpenStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open budget store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	opts := apphttp.Options{
		Store:              store,
		Params:             params,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MetricsEnabled:     cfg.MetricsEnabled,
		SessionTTL:         cfg.SessionTTL,
		SessionMax:         cfg.SessionMax,
		CanvasWidth:        cfg.SnapshotWidth,
		CanvasHeight:       cfg.SnapshotHeight,
	}
	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		opts.Ready = p.Ping
	}

	// Budget changed events are optional: without a broker the worker's
	// periodic sweep still picks up every saved budget.
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, budget events disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			opts.Publisher = client
			logger.Info("Publishing budget events", "exchange", cfg.AMQPExchange)
		}
	}

	if cfg.SheetsEnabled() {
		var src sheets.EntrySource
		src, err = google.New(context.Background(), cli.SheetsConfig(cfg))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		opts.Importer = src
	}

	srv := apphttp.NewServer(":"+cfg.Port, opts)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bilancio server", "port", cfg.Port, "backend", cfg.DataBackend,
			"amqp", opts.Publisher != nil, "sheets", opts.Importer != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
