package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-data-bufr/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-data-bufr/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-bufr/internal/config"
	"github.com/couchcryptid/storm-data-bufr/internal/engine"
	"github.com/couchcryptid/storm-data-bufr/internal/observability"
	"github.com/couchcryptid/storm-data-bufr/internal/param"
	"github.com/couchcryptid/storm-data-bufr/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry := param.NewDefaultRegistry()
	if cfg.ParamsFile != "" {
		if err := registry.LoadYAMLFile(cfg.ParamsFile); err != nil {
			logger.Error("failed to load parameter definitions", "path", cfg.ParamsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("parameter definitions loaded", "path", cfg.ParamsFile)
	}

	eng, err := engine.New(engine.Request{
		Columns:        cfg.Columns,
		Required:       cfg.Required,
		Filters:        cfg.Filters,
		RankedKeys:     cfg.RankedKeys,
		RaiseOnMissing: cfg.RaiseOnMissing,
	}, engine.WithRegistry(registry), engine.WithLogger(logger), engine.WithMetrics(metrics))
	if err != nil {
		logger.Error("invalid extraction request", "error", err)
		os.Exit(1)
	}
	logger.Info("structure engine ready", "columns", cfg.Columns, "include", eng.Include())

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(eng, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, eng.ShapeCache(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
