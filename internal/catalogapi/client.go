// Package catalogapi is the HTTP client the admin frontend and catalogctl use
// to talk to the catalog API.
package catalogapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/product-catalog/catalog/internal/auth"
	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/observability"
	"github.com/product-catalog/catalog/internal/platform/httpx"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
)

// Config controls the client transport.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Client calls the catalog REST API.
type Client struct {
	http    *resty.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New constructs a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "catalog-admin").
		SetLogger(restyLogger{logger: logger})
	return &Client{http: client, metrics: cfg.Metrics, logger: logger}
}

// restyLogger sends the transport's own messages (retries, debug dumps)
// through slog instead of resty's stderr logger.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (auth.LoginResponse, error) {
	var out auth.LoginResponse
	err := c.do(ctx, "login", "", http.MethodPost, "/api/auth/login", func(r *resty.Request) {
		r.SetBody(auth.Credentials{Username: username, Password: password})
	}, &out)
	return out, err
}

// Logout revokes the token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, "logout", token, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Categories lists every category.
func (c *Client) Categories(ctx context.Context, token string) ([]categories.Category, error) {
	var out []categories.Category
	err := c.do(ctx, "categories.list", token, http.MethodGet, "/api/categories", nil, &out)
	return out, err
}

// CategoryTree fetches the server-built category forest.
func (c *Client) CategoryTree(ctx context.Context, token string) ([]*tree.Node, error) {
	var out []*tree.Node
	err := c.do(ctx, "categories.tree", token, http.MethodGet, "/api/categories/tree", nil, &out)
	return out, err
}

// Category fetches one category.
func (c *Client) Category(ctx context.Context, token string, id int64) (categories.Category, error) {
	var out categories.Category
	err := c.do(ctx, "categories.get", token, http.MethodGet, "/api/categories/{id}", withID(id), &out)
	return out, err
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, token string, in categories.Input) (categories.Category, error) {
	var out categories.Category
	err := c.do(ctx, "categories.create", token, http.MethodPost, "/api/categories", func(r *resty.Request) {
		r.SetBody(in)
	}, &out)
	return out, err
}

// UpdateCategory renames or moves a category.
func (c *Client) UpdateCategory(ctx context.Context, token string, id int64, in categories.Input) (categories.Category, error) {
	var out categories.Category
	err := c.do(ctx, "categories.update", token, http.MethodPut, "/api/categories/{id}", func(r *resty.Request) {
		withID(id)(r)
		r.SetBody(in)
	}, &out)
	return out, err
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, token string, id int64) error {
	return c.do(ctx, "categories.delete", token, http.MethodDelete, "/api/categories/{id}", withID(id), nil)
}

// Products lists one page of products.
func (c *Client) Products(ctx context.Context, token string, f products.Filter) (shared.Page[products.Product], error) {
	var out shared.Page[products.Product]
	err := c.do(ctx, "products.list", token, http.MethodGet, "/api/products", func(r *resty.Request) {
		r.SetQueryParamsFromValues(f.Values())
	}, &out)
	return out, err
}

// Product fetches one product.
func (c *Client) Product(ctx context.Context, token string, id int64) (products.Product, error) {
	var out products.Product
	err := c.do(ctx, "products.get", token, http.MethodGet, "/api/products/{id}", withID(id), &out)
	return out, err
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, token string, in products.Input) (products.Product, error) {
	var out products.Product
	err := c.do(ctx, "products.create", token, http.MethodPost, "/api/products", func(r *resty.Request) {
		r.SetBody(in)
	}, &out)
	return out, err
}

// UpdateProduct overwrites a product.
func (c *Client) UpdateProduct(ctx context.Context, token string, id int64, in products.Input) (products.Product, error) {
	var out products.Product
	err := c.do(ctx, "products.update", token, http.MethodPut, "/api/products/{id}", func(r *resty.Request) {
		withID(id)(r)
		r.SetBody(in)
	}, &out)
	return out, err
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, token string, id int64) error {
	return c.do(ctx, "products.delete", token, http.MethodDelete, "/api/products/{id}", withID(id), nil)
}

// ExportProducts downloads the XLSX export for the filter.
func (c *Client) ExportProducts(ctx context.Context, token string, f products.Filter) ([]byte, error) {
	var body []byte
	err := c.send(ctx, "products.export", token, http.MethodGet, "/api/products/export", func(r *resty.Request) {
		r.SetQueryParamsFromValues(f.Values())
		r.SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/problem+json")
	}, nil, func(res *resty.Response) {
		body = res.Bytes()
	})
	return body, err
}

func withID(id int64) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(id, 10))
	}
}

func (c *Client) do(ctx context.Context, op, token, method, path string, build func(*resty.Request), result any) error {
	return c.send(ctx, op, token, method, path, build, result, nil)
}

func (c *Client) send(ctx context.Context, op, token, method, path string, build func(*resty.Request), result any, onSuccess func(*resty.Response)) (err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveAPICall(op, time.Since(start), err) }()

	req := c.http.R().SetContext(ctx).SetError(&httpx.ProblemDetail{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if result != nil {
		req.SetResult(result)
	}
	if build != nil {
		build(req)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("catalog api call", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	if res.IsError() {
		apiErr := &APIError{Status: res.StatusCode(), Title: http.StatusText(res.StatusCode())}
		if problem, ok := res.Error().(*httpx.ProblemDetail); ok && problem != nil && problem.Title != "" {
			apiErr.Title = problem.Title
			apiErr.Detail = problem.Detail
		}
		return apiErr
	}
	if onSuccess != nil {
		onSuccess(res)
	}
	return nil
}
