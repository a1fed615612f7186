package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/product-catalog/catalog/internal/admin"
	"github.com/product-catalog/catalog/internal/auth"
	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/platform/httpx"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
	"github.com/product-catalog/catalog/internal/view"
	"github.com/product-catalog/catalog/jobs"
)

func testConfig() *Config {
	return &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 1000}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// fakeCatalogAPI serves the endpoints the admin pages need on sign-in.
func fakeCatalogAPI(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, auth.LoginResponse{Token: "tok-1", Message: "Login successful"})
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if auth.BearerToken(r) != "tok-1" {
					httpx.RespondError(w, auth.ErrTokenInvalid)
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/api/categories", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, []categories.Category{{ID: 1, Name: "Books", Path: "Books"}})
		})
		r.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, shared.NewPage[products.Product](nil, 0, 10, 0))
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newAdminRouter(t *testing.T) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)

	sessions := shared.NewSessionManager(newRedis(t), "catalog_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	client := catalogapi.New(catalogapi.Config{BaseURL: fakeCatalogAPI(t).URL, Timeout: 2 * time.Second})
	t.Cleanup(func() { _ = client.Close() })

	return NewAdminRouter(AdminRouterParams{
		Logger:         discardLogger(),
		Config:         testConfig(),
		SessionManager: sessions,
		CSRFManager:    csrf,
		AdminHandler: admin.NewHandler(admin.HandlerParams{
			API:       client,
			Templates: engine,
			Sessions:  sessions,
			CSRF:      csrf,
		}),
		Metrics: observability.NewMetrics(),
	})
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "catalog_session" {
			return c
		}
	}
	t.Fatalf("session cookie missing")
	return nil
}

func TestAdminLoginFlowRequiresCSRF(t *testing.T) {
	router := newAdminRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	cookie := sessionCookie(t, rr)
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)
	token := doc.Find(`form[action="/login"] input[name="csrf_token"]`).AttrOr("value", "")
	require.NotEmpty(t, token)

	login := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr = login(url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = login(url.Values{"username": {"admin"}, "password": {"secret"}, "csrf_token": {token}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/products", rr.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No products match")
	assert.Contains(t, rr.Body.String(), "Welcome back, admin")
}

func TestAdminStaticAssets(t *testing.T) {
	router := newAdminRouter(t)

	for _, path := range []string{"/static/css/app.css", "/static/js/menu.js"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
		assert.Empty(t, rr.Result().Cookies(), path)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

type stubUsers struct {
	hash string
}

func (s stubUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	if username != "admin" {
		return nil, auth.ErrUserNotFound
	}
	return &auth.User{ID: 1, Username: "admin", PasswordHash: s.hash, IsActive: true}, nil
}

func (s stubUsers) UpsertUser(context.Context, string, string) (*auth.User, error) {
	return nil, nil
}

// listOnlyCategories serves List and panics on anything else.
type listOnlyCategories struct {
	categories.Repository
}

func (listOnlyCategories) List(context.Context) ([]categories.Category, error) {
	return []categories.Category{{ID: 1, Name: "Books", Path: "Books"}}, nil
}

func newAPIRouter(t *testing.T) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	logger := discardLogger()
	authService := auth.NewService(stubUsers{hash: string(hash)}, auth.NewTokenStore(newRedis(t), time.Hour), logger)
	return NewAPIRouter(APIRouterParams{
		Logger:            logger,
		Config:            testConfig(),
		AuthService:       authService,
		AuthHandler:       auth.NewHandler(logger, authService),
		CategoriesHandler: categories.NewHandler(logger, categories.NewService(listOnlyCategories{}, categories.ServiceConfig{Logger: logger})),
		ProductsHandler:   products.NewHandler(logger, products.NewService(nil, logger)),
		JobHandler:        jobs.NewHandler(nil, logger),
		Metrics:           observability.NewMetrics(),
	})
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router := newAPIRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")

	body := strings.NewReader(`{"username":"admin","password":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var login auth.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Books","parentCategoryId":null,"path":"Books","createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}]`, rr.Body.String())
}

func TestAPIHealthAndJobs(t *testing.T) {
	router := newAPIRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"default"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "catalog_http_requests_total")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
