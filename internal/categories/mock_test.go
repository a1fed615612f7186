package categories

import (
	"context"
	"sort"
	"time"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	rows     map[int64]*Category
	products map[int64]int
	nextID   int64

	listError error
	txCalls   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		rows:     make(map[int64]*Category),
		products: make(map[int64]int),
		nextID:   1,
	}
}

func (m *mockRepository) seed(name string, parent *int64, path string) int64 {
	id := m.nextID
	m.nextID++
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.rows[id] = &Category{ID: id, Name: name, ParentID: parent, Path: path, CreatedAt: now, UpdatedAt: now}
	return id
}

func (m *mockRepository) List(ctx context.Context) ([]Category, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	out := make([]Category, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Category, error) {
	c, ok := m.rows[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return *c, nil
}

func (m *mockRepository) Create(ctx context.Context, in Input, path string) (Category, error) {
	id := m.seed(in.Name, in.ParentID, path)
	return *m.rows[id], nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, in Input) error {
	c, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	c.Name = in.Name
	c.ParentID = in.ParentID
	return nil
}

func (m *mockRepository) UpdatePaths(ctx context.Context, paths map[int64]string) (int, error) {
	n := 0
	for id, p := range paths {
		if c, ok := m.rows[id]; ok {
			c.Path = p
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockRepository) CountChildren(ctx context.Context, id int64) (int, error) {
	n := 0
	for _, c := range m.rows {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) CountProducts(ctx context.Context, id int64) (int, error) {
	return m.products[id], nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	m.txCalls++
	return fn(m)
}

func ptr(v int64) *int64 { return &v }
