package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/product-catalog/catalog/internal/admin"
	"github.com/product-catalog/catalog/internal/auth"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
	"github.com/product-catalog/catalog/jobs"
	"github.com/product-catalog/catalog/web"
)

// APIRouterParams groups dependencies for the REST API router.
type APIRouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthService       *auth.Service
	AuthHandler       *auth.Handler
	CategoriesHandler *categories.Handler
	ProductsHandler   *products.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewAPIRouter constructs the catalog API router. Everything below /api
// except login requires a bearer token.
func NewAPIRouter(params APIRouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range APIMiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	mountHealth(r, params.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireToken(params.AuthService, params.Logger))
			r.Route("/categories", params.CategoriesHandler.MountRoutes)
			r.Route("/products", params.ProductsHandler.MountRoutes)
		})
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}

// AdminRouterParams groups dependencies for the admin frontend router.
type AdminRouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AdminHandler   *admin.Handler
	Metrics        *observability.Metrics
}

// NewAdminRouter constructs the admin frontend router.
func NewAdminRouter(params AdminRouterParams) http.Handler {
	r := chi.NewRouter()

	// Static files are served outside the session, CSRF and rate limit chain.
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}
	mountHealth(r, params.Metrics)

	r.Group(func(r chi.Router) {
		for _, mw := range AdminMiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)
		params.AdminHandler.MountRoutes(r)
	})
	return r
}

func mountHealth(r chi.Router, metrics *observability.Metrics) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
