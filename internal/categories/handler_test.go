package categories

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/product-catalog/catalog/internal/catalog/tree"
)

func newTestRouter(repo *mockRepository) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/categories", NewHandler(nil, NewService(repo, ServiceConfig{})).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerListAndGet(t *testing.T) {
	h := newTestRouter(seededRepo())

	rr := do(t, h, http.MethodGet, "/api/categories/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cats []Category
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	assert.Len(t, cats, 4)

	rr = do(t, h, http.MethodGet, "/api/categories/2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"parentCategoryId":1`)

	rr = do(t, h, http.MethodGet, "/api/categories/99", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/categories/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerTree(t *testing.T) {
	h := newTestRouter(seededRepo())

	rr := do(t, h, http.MethodGet, "/api/categories/tree", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var roots []*tree.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &roots))
	require.Len(t, roots, 2)
	assert.Equal(t, "Books", roots[0].Path)
	assert.Equal(t, "Phones", roots[1].Children[0].Name)
}

func TestHandlerCreateUpdateDelete(t *testing.T) {
	repo := seededRepo()
	h := newTestRouter(repo)

	rr := do(t, h, http.MethodPost, "/api/categories/", `{"name":"iOS","parentCategoryId":2}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Category
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Electronics > Phones > iOS", created.Path)

	rr = do(t, h, http.MethodPut, "/api/categories/1", `{"name":"Tech"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Tech > Phones > iOS", repo.rows[created.ID].Path)

	rr = do(t, h, http.MethodDelete, "/api/categories/1", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/categories/4", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandlerRejectsBadPayloads(t *testing.T) {
	h := newTestRouter(seededRepo())

	rr := do(t, h, http.MethodPost, "/api/categories/", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = do(t, h, http.MethodPost, "/api/categories/", `{"name":"x","color":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/categories/1", `{"name":"Electronics","parentCategoryId":3}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
