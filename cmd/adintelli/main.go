package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/analytics"
	"github.com/radiusdt/adintelli/internal/assistant"
	"github.com/radiusdt/adintelli/internal/config"
	"github.com/radiusdt/adintelli/internal/database"
	"github.com/radiusdt/adintelli/internal/httpserver"
	"github.com/radiusdt/adintelli/internal/integrations"
	"github.com/radiusdt/adintelli/internal/metrics"
	"github.com/radiusdt/adintelli/internal/middleware"
	"github.com/radiusdt/adintelli/internal/refresh"
	"github.com/radiusdt/adintelli/internal/storage"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("ADINTELLI_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFormat := cfg.Log.Format
	if cfg.IsDevelopment() && os.Getenv("ADINTELLI_LOG_FORMAT") == "" {
		logFormat = "console"
	}
	logger, err := middleware.NewLogger(cfg.Log.Level, logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting adintelli",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("source", cfg.Source.Kind),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace, nil)
	}

	source, closeSource := openSource(ctx, cfg, logger)
	defer closeSource()

	store, closeStore := openIntegrationStore(ctx, cfg, logger)
	defer closeStore()

	refresher := refresh.New(source, logger, m, cfg.Refresh.Interval, cfg.Refresh.Timeout)
	integrationSvc := integrations.NewService(cfg.Integrations, store, logger, m)
	projection := analytics.NewProjectionModel(cfg.Projection)

	server := httpserver.NewServer(&httpserver.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Source:       source,
		Refresher:    refresher,
		Integrations: integrationSvc,
		Assistant:    assistant.New(refresher, projection, integrationSvc, logger),
		Projection:   projection,
	})

	refresher.Start(ctx)
	go server.RunMaintenance(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openSource builds the configured record source. When a database is not
// reachable the service falls back to the seeded in-memory source.
func openSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.RecordSource, func()) {
	noop := func() {}

	switch cfg.Source.Kind {
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("PostgreSQL not available, using in-memory records", zap.Error(err))
			break
		}
		src := storage.NewPostgresSource(pool)
		if err := src.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create schema", zap.Error(err))
		}
		if cfg.Source.CSVPath != "" {
			importCSV(ctx, src, cfg.Source.CSVPath, logger)
		}
		return src, pool.Close

	case "clickhouse":
		conn, err := database.OpenClickHouse(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse not available, using in-memory records", zap.Error(err))
			break
		}
		src, err := storage.NewClickHouseSource(conn, cfg.ClickHouse.Table)
		if err != nil {
			conn.Close()
			logger.Error("invalid ClickHouse source", zap.Error(err))
			break
		}
		return src, func() { conn.Close() }

	case "http":
		logger.Info("reading records from upstream", zap.String("url", cfg.Upstream.URL))
		return storage.NewHTTPSource(cfg.Upstream.URL, cfg.Upstream.Timeout), noop
	}

	return memorySource(cfg, logger), noop
}

func memorySource(cfg *config.Config, logger *zap.Logger) *storage.MemorySource {
	if cfg.Source.CSVPath != "" {
		records, err := storage.LoadCSVFile(cfg.Source.CSVPath)
		if err == nil {
			logger.Info("loaded records from CSV",
				zap.String("path", cfg.Source.CSVPath),
				zap.Int("records", len(records)),
			)
			return storage.NewMemorySource(records)
		}
		logger.Warn("failed to load CSV, using seed records", zap.Error(err))
	}
	return storage.NewMemorySource(storage.SeedRecords())
}

func importCSV(ctx context.Context, src *storage.PostgresSource, path string, logger *zap.Logger) {
	records, err := storage.LoadCSVFile(path)
	if err != nil {
		logger.Error("failed to load CSV", zap.String("path", path), zap.Error(err))
		return
	}
	n, err := src.InsertRecords(ctx, records)
	if err != nil {
		logger.Error("failed to import CSV", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("imported CSV", zap.String("path", path), zap.Int64("records", n))
}

func openIntegrationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (integrations.Store, func()) {
	if cfg.Integrations.Store == "redis" {
		client, err := database.OpenRedis(ctx, cfg.Redis, logger)
		if err == nil {
			return integrations.NewRedisStore(client), func() { client.Close() }
		}
		logger.Warn("Redis not available, integration state kept in memory", zap.Error(err))
	}
	return integrations.NewMemoryStore(), func() {}
}
