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

	"github.com/product-catalog/catalog/internal/admin"
	"github.com/product-catalog/catalog/internal/app"
	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/platform/cache"
	"github.com/product-catalog/catalog/internal/shared"
	"github.com/product-catalog/catalog/internal/view"
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
	if err := cfg.RequireSessionSecrets(); err != nil {
		slog.Default().Error("admin config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "catalog-admin")

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "catalog_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	apiClient := catalogapi.New(catalogapi.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		RetryCount: 2,
		Metrics:    metrics,
		Logger:     logger,
	})
	defer func() {
		if err := apiClient.Close(); err != nil {
			logger.Warn("api client close", slog.Any("error", err))
		}
	}()

	adminHandler := admin.NewHandler(admin.HandlerParams{
		Logger:    logger,
		API:       apiClient,
		Templates: templates,
		Sessions:  sessionManager,
		CSRF:      csrfManager,
		Builder:   tree.NewBuilder(tree.WithLogger(logger), tree.WithLocale(cfg.Locale())),
	})

	router := app.NewAdminRouter(app.AdminRouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AdminHandler:   adminHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting admin server", slog.String("addr", cfg.AdminAddr), slog.String("api", cfg.APIBaseURL))
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
