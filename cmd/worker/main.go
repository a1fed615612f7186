package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/product-catalog/catalog/internal/app"
	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/categories"
	jobmetrics "github.com/product-catalog/catalog/internal/jobs"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/platform/cache"
	"github.com/product-catalog/catalog/internal/platform/db"
	"github.com/product-catalog/catalog/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "catalog-worker")

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(cfg.RedisOptions())
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	categoryService := categories.NewService(categories.NewRepository(pool), categories.ServiceConfig{
		Builder: tree.NewBuilder(tree.WithLogger(logger), tree.WithLocale(cfg.Locale())),
		Cache:   cache.NewVersioned(redisClient, "catalog:categories", cfg.TreeCacheTTL),
		Metrics: metrics,
		Logger:  logger,
	})

	pathsJob := jobs.NewCategoryPathsJob(categoryService, logger, jobMetrics)
	warmupJob := &jobs.TreeWarmupJob{Categories: categoryService, Logger: logger, Metrics: jobMetrics}

	rebuildTask, err := jobs.NewCategoryPathsRebuildTask("cron")
	if err != nil {
		logger.Error("build rebuild task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.QueueRedis(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCategoryPathsRebuild, Handler: pathsJob.Handle},
			{Type: jobs.TaskCategoryTreeWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: rebuildTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "5 3 * * *", Task: jobs.NewCategoryTreeWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
