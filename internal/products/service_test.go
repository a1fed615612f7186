package products

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/product-catalog/catalog/internal/platform/httpx"
)

func validInput() Input {
	return Input{
		Name:          " Pixel 9 ",
		Description:   "Android phone",
		Price:         decimal.RequireFromString("799.00"),
		CategoryID:    3,
		StockQuantity: 4,
		SKU:           "PX-9",
	}
}

func TestServiceCreateNormalizesAndJoinsPath(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "Pixel 9", p.Name)
	assert.Equal(t, "Electronics > Phones > Android", p.CategoryPath)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("799")))
	assert.True(t, p.InStock())
}

func TestServiceCreateValidation(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	ctx := context.Background()

	cases := map[string]func(*Input){
		"blank name":      func(in *Input) { in.Name = "  " },
		"long name":       func(in *Input) { in.Name = strings.Repeat("x", 256) },
		"zero price":      func(in *Input) { in.Price = decimal.Zero },
		"negative price":  func(in *Input) { in.Price = decimal.RequireFromString("-1") },
		"fractional cent": func(in *Input) { in.Price = decimal.RequireFromString("1.005") },
		"huge price":      func(in *Input) { in.Price = decimal.RequireFromString("10000000000") },
		"no category":     func(in *Input) { in.CategoryID = 0 },
		"negative stock":  func(in *Input) { in.StockQuantity = -1 },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, httpx.ErrValidation, name)
	}

	in := validInput()
	in.CategoryID = 99
	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestServiceCreateDuplicateSKU(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput())
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	// Products without SKU never collide.
	in := validInput()
	in.SKU = ""
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)
}

func TestServiceUpdateAndDelete(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	id := repo.add("Kindle", "99.99", 1, 0, "KND")
	in := validInput()
	in.Name = "Kindle Paperwhite"
	in.CategoryID = 5
	p, err := svc.Update(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, "Books", p.CategoryPath)

	_, err = svc.Update(ctx, 404, validInput())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, id))
	assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 0), ErrNotFound)
}

func TestServiceListCategoryPathIncludesDescendants(t *testing.T) {
	repo := newMockRepository()
	repo.add("Phone A", "100", 2, 1, "A")
	repo.add("Phone B", "300", 3, 0, "B")
	repo.add("Case", "10", 4, 5, "C")
	repo.add("Novel", "12", 5, 2, "D")
	svc := NewService(repo, nil)

	f := DefaultFilter()
	f.CategoryPath = "Electronics > Phones"
	page, err := svc.List(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	var names []string
	for _, p := range page.Content {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Phone A", "Phone B"}, names)
}

func TestServiceListPagination(t *testing.T) {
	repo := newMockRepository()
	for i := 0; i < 25; i++ {
		repo.add("Item", "1", 5, 1, "")
	}
	svc := NewService(repo, nil)

	f := DefaultFilter()
	f.Page = 2
	page, err := svc.List(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, page.Content, 5)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.Last)
	assert.False(t, page.First)

	f.Page = 9
	empty, err := svc.List(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, empty.Empty)
	assert.NotNil(t, empty.Content)
}

func TestServiceListRejectsInvalidFilter(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	f := DefaultFilter()
	f.Size = 0
	_, err := svc.List(context.Background(), f)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.listCalls)
}

func TestServiceExportReadsAllPages(t *testing.T) {
	repo := newMockRepository()
	for i := 0; i < exportBatch+3; i++ {
		repo.add("Item", "2.50", 5, 1, "")
	}
	svc := NewService(repo, nil)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), DefaultFilter(), &buf)
	require.NoError(t, err)
	assert.Equal(t, exportBatch+3, n)
	assert.Len(t, repo.listCalls, 2)

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, exportBatch+4)
	assert.Equal(t, "2.5", rows[1][4])
}

func TestServiceExportPropagatesErrors(t *testing.T) {
	repo := newMockRepository()
	repo.listError = errors.New("db down")
	svc := NewService(repo, nil)
	_, err := svc.Export(context.Background(), DefaultFilter(), &bytes.Buffer{})
	assert.Error(t, err)
}
