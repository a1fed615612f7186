package categories

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/product-catalog/catalog/internal/platform/cache"
	"github.com/product-catalog/catalog/internal/platform/httpx"
)

func seededRepo() *mockRepository {
	repo := newMockRepository()
	electronics := repo.seed("Electronics", nil, "Electronics")
	phones := repo.seed("Phones", ptr(electronics), "Electronics > Phones")
	repo.seed("Android", ptr(phones), "Electronics > Phones > Android")
	repo.seed("Books", nil, "Books")
	return repo
}

func TestServiceCreateComputesPathFromParent(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, ServiceConfig{})

	c, err := svc.Create(context.Background(), Input{Name: "  iOS ", ParentID: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, "iOS", c.Name)
	assert.Equal(t, "Electronics > Phones > iOS", c.Path)

	root, err := svc.Create(context.Background(), Input{Name: "Garden"})
	require.NoError(t, err)
	assert.Equal(t, "Garden", root.Path)
	assert.Nil(t, root.ParentID)
}

func TestServiceCreateValidation(t *testing.T) {
	svc := NewService(seededRepo(), ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "   "})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, Input{Name: strings.Repeat("x", 256)})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, Input{Name: "A > B"})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, Input{Name: "Orphan", ParentID: ptr(99)})
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestServiceUpdateRenameCascadesToDescendants(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, ServiceConfig{})

	c, err := svc.Update(context.Background(), 2, Input{Name: "Mobile", ParentID: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Electronics > Mobile", c.Path)
	assert.Equal(t, "Electronics > Mobile > Android", repo.rows[3].Path)
}

func TestServiceUpdateMoveSubtree(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, ServiceConfig{})

	c, err := svc.Update(context.Background(), 2, Input{Name: "Phones", ParentID: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, "Books > Phones", c.Path)
	assert.Equal(t, "Books > Phones > Android", repo.rows[3].Path)

	promoted, err := svc.Update(context.Background(), 2, Input{Name: "Phones"})
	require.NoError(t, err)
	assert.Equal(t, "Phones", promoted.Path)
}

func TestServiceUpdateRejectsCycles(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, Input{Name: "Electronics", ParentID: ptr(1)})
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = svc.Update(ctx, 1, Input{Name: "Electronics", ParentID: ptr(3)})
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = svc.Update(ctx, 1, Input{Name: "Electronics", ParentID: ptr(42)})
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = svc.Update(ctx, 77, Input{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "Electronics > Phones > Android", repo.rows[3].Path)
}

func TestServiceDeleteGuards(t *testing.T) {
	repo := seededRepo()
	repo.products[3] = 2
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, 1), ErrHasChildren)
	assert.ErrorIs(t, svc.Delete(ctx, 3), ErrHasProducts)
	assert.ErrorIs(t, svc.Delete(ctx, 3), httpx.ErrConflict)
	assert.ErrorIs(t, svc.Delete(ctx, 99), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 4))
	_, ok := repo.rows[4]
	assert.False(t, ok)
}

func TestServiceRebuildPathsRepairsDrift(t *testing.T) {
	repo := seededRepo()
	repo.rows[3].Path = "stale"
	repo.rows[4].Path = ""
	svc := NewService(repo, ServiceConfig{})

	n, err := svc.RebuildPaths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Electronics > Phones > Android", repo.rows[3].Path)
	assert.Equal(t, "Books", repo.rows[4].Path)

	n, err = svc.RebuildPaths(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServiceTreeIsSortedForest(t *testing.T) {
	svc := NewService(seededRepo(), ServiceConfig{})

	roots, err := svc.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "Books", roots[0].Name)
	assert.Equal(t, "Electronics", roots[1].Name)
	assert.Equal(t, "Electronics > Phones > Android", roots[1].Children[0].Children[0].Path)
}

func TestServiceTreeCachedUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := seededRepo()
	svc := NewService(repo, ServiceConfig{Cache: cache.NewVersioned(client, "catalog:categories", time.Minute)})
	ctx := context.Background()

	first, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Reads after the first one come from the cache even when the store fails.
	repo.listError = errors.New("db down")
	cached, err := svc.Tree(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	repo.listError = nil
	_, err = svc.Create(ctx, Input{Name: "Garden"})
	require.NoError(t, err)

	fresh, err := svc.Tree(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestServiceListPropagatesErrors(t *testing.T) {
	repo := seededRepo()
	repo.listError = errors.New("db down")
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.List(context.Background())
	assert.Error(t, err)
	_, err = svc.Tree(context.Background())
	assert.Error(t, err)
}
