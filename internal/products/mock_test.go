package products

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	rows       map[int64]*Product
	categories map[int64]string
	nextID     int64

	listCalls []Filter
	listError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rows: make(map[int64]*Product),
		categories: map[int64]string{
			1: "Electronics",
			2: "Electronics > Phones",
			3: "Electronics > Phones > Android",
			4: "Electronics > Phonecases",
			5: "Books",
		},
		nextID: 1,
	}
}

func (m *mockRepository) add(name, price string, categoryID int64, stock int, sku string) int64 {
	id, _ := m.Create(context.Background(), Input{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		CategoryID:    categoryID,
		StockQuantity: stock,
		SKU:           sku,
	})
	return id
}

func (m *mockRepository) List(ctx context.Context, f Filter) ([]Product, int64, error) {
	m.listCalls = append(m.listCalls, f)
	if m.listError != nil {
		return nil, 0, m.listError
	}
	var match []Product
	for _, p := range m.rows {
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.CategoryPath != "" && p.CategoryPath != f.CategoryPath && !strings.HasPrefix(p.CategoryPath, f.CategoryPath+" > ") {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStockOnly && p.StockQuantity <= 0 {
			continue
		}
		match = append(match, *p)
	}
	sort.Slice(match, func(i, j int) bool {
		less := match[i].ID < match[j].ID
		if f.SortBy == "price" && !match[i].Price.Equal(match[j].Price) {
			less = match[i].Price.LessThan(match[j].Price)
		}
		if f.Descending() {
			return !less
		}
		return less
	})
	total := int64(len(match))
	start := min(f.Offset(), len(match))
	end := min(start+f.Size, len(match))
	return match[start:end], total, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := m.rows[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return *p, nil
}

func (m *mockRepository) Create(ctx context.Context, in Input) (int64, error) {
	for _, p := range m.rows {
		if in.SKU != "" && p.SKU == in.SKU {
			return 0, ErrDuplicateSKU
		}
	}
	id := m.nextID
	m.nextID++
	m.rows[id] = &Product{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		CategoryID:    in.CategoryID,
		CategoryPath:  m.categories[in.CategoryID],
		StockQuantity: in.StockQuantity,
		SKU:           in.SKU,
	}
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, in Input) error {
	p, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range m.rows {
		if otherID != id && in.SKU != "" && other.SKU == in.SKU {
			return ErrDuplicateSKU
		}
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.CategoryID = in.CategoryID
	p.CategoryPath = m.categories[in.CategoryID]
	p.StockQuantity = in.StockQuantity
	p.SKU = in.SKU
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.categories[id]
	return ok, nil
}
