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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/product-catalog/catalog/internal/app"
	"github.com/product-catalog/catalog/internal/auth"
	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/platform/cache"
	"github.com/product-catalog/catalog/internal/platform/db"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "catalog-api")

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.DBMigrate {
		if err := db.Migrate(ctx, dbpool, logger); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient := redis.NewClient(cfg.RedisOptions())
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens := auth.NewTokenStore(redisClient, cfg.APITokenTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, logger)
	if cfg.AdminPassword != "" {
		if err := authService.EnsureUser(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			logger.Error("ensure admin user", slog.Any("error", err))
			os.Exit(1)
		}
	}
	authHandler := auth.NewHandler(logger, authService)

	treeCache := cache.NewVersioned(redisClient, "catalog:categories", cfg.TreeCacheTTL)
	if err := treeCache.Listen(ctx, logger); err != nil {
		logger.Warn("category cache invalidation listener", slog.Any("error", err))
	}
	categoryService := categories.NewService(categories.NewRepository(dbpool), categories.ServiceConfig{
		Builder: tree.NewBuilder(tree.WithLogger(logger), tree.WithLocale(cfg.Locale())),
		Cache:   treeCache,
		Metrics: metrics,
		Logger:  logger,
	})
	categoriesHandler := categories.NewHandler(logger, categoryService)

	productService := products.NewService(products.NewRepository(dbpool), logger)
	productsHandler := products.NewHandler(logger, productService)

	inspector := asynq.NewInspector(cfg.QueueRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewAPIRouter(app.APIRouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthService:       authService,
		AuthHandler:       authHandler,
		CategoriesHandler: categoriesHandler,
		ProductsHandler:   productsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
