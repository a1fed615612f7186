// Package admin serves the server-rendered catalog back office. Every read and
// write goes through the catalog API with the bearer token kept in the
// signed-in user's session.
package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"

	"github.com/product-catalog/catalog/internal/auth"
	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
	"github.com/product-catalog/catalog/internal/view"
)

// API is the subset of the catalog API client the admin pages use.
type API interface {
	Login(ctx context.Context, username, password string) (auth.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	Categories(ctx context.Context, token string) ([]categories.Category, error)
	Category(ctx context.Context, token string, id int64) (categories.Category, error)
	CreateCategory(ctx context.Context, token string, in categories.Input) (categories.Category, error)
	UpdateCategory(ctx context.Context, token string, id int64, in categories.Input) (categories.Category, error)
	DeleteCategory(ctx context.Context, token string, id int64) error
	Products(ctx context.Context, token string, f products.Filter) (shared.Page[products.Product], error)
	Product(ctx context.Context, token string, id int64) (products.Product, error)
	CreateProduct(ctx context.Context, token string, in products.Input) (products.Product, error)
	UpdateProduct(ctx context.Context, token string, id int64, in products.Input) (products.Product, error)
	DeleteProduct(ctx context.Context, token string, id int64) error
	ExportProducts(ctx context.Context, token string, f products.Filter) ([]byte, error)
}

var _ API = (*catalogapi.Client)(nil)

// Handler wires the admin pages.
type Handler struct {
	logger    *slog.Logger
	api       API
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	builder   *tree.Builder
	forms     *form.Decoder
	validator *validator.Validate
}

// HandlerParams groups the Handler dependencies.
type HandlerParams struct {
	Logger    *slog.Logger
	API       API
	Templates *view.Engine
	Sessions  *shared.SessionManager
	CSRF      *shared.CSRFManager
	Builder   *tree.Builder
}

// NewHandler constructs a Handler.
func NewHandler(p HandlerParams) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	builder := p.Builder
	if builder == nil {
		builder = tree.NewBuilder(tree.WithLogger(logger))
	}
	return &Handler{
		logger:    logger,
		api:       p.API,
		templates: p.Templates,
		sessions:  p.Sessions,
		csrf:      p.CSRF,
		builder:   builder,
		forms:     form.NewDecoder(),
		validator: shared.NewValidator(),
	}
}

// MountRoutes registers the admin pages.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireLogin)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/products", http.StatusSeeOther)
		})

		r.Get("/products", h.listProducts)
		r.Get("/products/export", h.exportProducts)
		r.Get("/products/new", h.newProduct)
		r.Post("/products/new", h.createProduct)
		r.Get("/products/{id}/edit", h.editProduct)
		r.Post("/products/{id}/edit", h.updateProduct)
		r.Post("/products/{id}/delete", h.deleteProduct)

		r.Get("/categories", h.listCategories)
		r.Get("/categories/new", h.newCategory)
		r.Post("/categories/new", h.createCategory)
		r.Get("/categories/{id}/edit", h.editCategory)
		r.Post("/categories/{id}/edit", h.updateCategory)
		r.Post("/categories/{id}/delete", h.deleteCategory)
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		User:        sess.User(),
		Data:        data,
	}
	if err := h.templates.Render(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

type errorView struct {
	Status  int
	Message string
}

// fail handles an API error on a page that cannot be shown without the data.
// A rejected token signs the user out.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, catalogapi.ErrUnauthorized):
		h.expireLogin(w, r)
	case errors.Is(err, catalogapi.ErrNotFound):
		h.render(w, r, "pages/error.html", "Not found", errorView{Status: http.StatusNotFound, Message: shared.UserSafeMessage(err)}, http.StatusNotFound)
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		h.render(w, r, "pages/error.html", "Error", errorView{Status: http.StatusBadGateway, Message: shared.UserSafeMessage(err)}, http.StatusBadGateway)
	}
}

func (h *Handler) expireLogin(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SignOut()
	}
	h.redirectWithFlash(w, r, loginURL(r), "warning", "Your session has expired, please sign in again")
}

func (h *Handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess.APIToken() == "" {
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func token(r *http.Request) string {
	return shared.SessionFromContext(r.Context()).APIToken()
}

func loginURL(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Path == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(r.URL.RequestURI())
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/products"
	}
	return next
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// buildForest turns the flat category list into the display forest.
func (h *Handler) buildForest(cats []categories.Category) (*tree.Forest, error) {
	records := make([]tree.Category, len(cats))
	for i, c := range cats {
		records[i] = c.Record()
	}
	return h.builder.Build(records)
}

func (h *Handler) forest(ctx context.Context, token string) (*tree.Forest, error) {
	cats, err := h.api.Categories(ctx, token)
	if err != nil {
		return nil, err
	}
	return h.buildForest(cats)
}
