package admin

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/product-catalog/catalog/internal/auth"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
)

// ===== MOCK API =====

type stubAPI struct {
	mu sync.Mutex

	cats     []categories.Category
	page     shared.Page[products.Product]
	product  products.Product
	export   []byte
	loginErr error
	listErr  error
	saveErr  error
	delErr   error

	tokens        []string
	loggedOut     []string
	filter        products.Filter
	productInput  *products.Input
	categoryInput *categories.Input
	updatedID     int64
	deletedID     int64
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		cats: []categories.Category{
			{ID: 1, Name: "Electronics", Path: "Electronics"},
			{ID: 2, Name: "Phones", ParentID: ptr(1), Path: "Electronics > Phones"},
			{ID: 3, Name: "Android", ParentID: ptr(2), Path: "Electronics > Phones > Android"},
			{ID: 4, Name: "Books", Path: "Books"},
		},
		page: shared.NewPage([]products.Product{
			{ID: 10, Name: "Pixel 9", SKU: "PX-9", CategoryID: 3, CategoryPath: "Electronics > Phones > Android", Price: decimal.RequireFromString("899.00"), StockQuantity: 4},
			{ID: 11, Name: "Go in Action", CategoryID: 4, CategoryPath: "Books", Price: decimal.RequireFromString("39.5")},
		}, 0, 10, 25),
		product: products.Product{ID: 10, Name: "Pixel 9", SKU: "PX-9", CategoryID: 3, Price: decimal.RequireFromString("899"), StockQuantity: 4},
		export:  []byte("PK-xlsx"),
	}
}

func ptr(v int64) *int64 { return &v }

func (s *stubAPI) seen(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, token)
}

func (s *stubAPI) Login(_ context.Context, username, _ string) (auth.LoginResponse, error) {
	if s.loginErr != nil {
		return auth.LoginResponse{}, s.loginErr
	}
	return auth.LoginResponse{Token: "tok-" + username, Message: "Login successful"}, nil
}

func (s *stubAPI) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubAPI) Categories(_ context.Context, token string) ([]categories.Category, error) {
	s.seen(token)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.cats, nil
}

func (s *stubAPI) Category(_ context.Context, token string, id int64) (categories.Category, error) {
	s.seen(token)
	for _, c := range s.cats {
		if c.ID == id {
			return c, nil
		}
	}
	return categories.Category{}, categories.ErrNotFound
}

func (s *stubAPI) CreateCategory(_ context.Context, token string, in categories.Input) (categories.Category, error) {
	s.seen(token)
	s.categoryInput = &in
	if s.saveErr != nil {
		return categories.Category{}, s.saveErr
	}
	return categories.Category{ID: 99, Name: in.Name, ParentID: in.ParentID, Path: in.Name}, nil
}

func (s *stubAPI) UpdateCategory(_ context.Context, token string, id int64, in categories.Input) (categories.Category, error) {
	s.seen(token)
	s.categoryInput = &in
	s.updatedID = id
	if s.saveErr != nil {
		return categories.Category{}, s.saveErr
	}
	return categories.Category{ID: id, Name: in.Name, ParentID: in.ParentID, Path: in.Name}, nil
}

func (s *stubAPI) DeleteCategory(_ context.Context, token string, id int64) error {
	s.seen(token)
	s.deletedID = id
	return s.delErr
}

func (s *stubAPI) Products(_ context.Context, token string, f products.Filter) (shared.Page[products.Product], error) {
	s.seen(token)
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	if s.listErr != nil {
		return shared.Page[products.Product]{}, s.listErr
	}
	return s.page, nil
}

func (s *stubAPI) Product(_ context.Context, token string, id int64) (products.Product, error) {
	s.seen(token)
	if id != s.product.ID {
		return products.Product{}, products.ErrNotFound
	}
	return s.product, nil
}

func (s *stubAPI) CreateProduct(_ context.Context, token string, in products.Input) (products.Product, error) {
	s.seen(token)
	s.productInput = &in
	if s.saveErr != nil {
		return products.Product{}, s.saveErr
	}
	return products.Product{ID: 12, Name: in.Name, Price: in.Price, CategoryID: in.CategoryID}, nil
}

func (s *stubAPI) UpdateProduct(_ context.Context, token string, id int64, in products.Input) (products.Product, error) {
	s.seen(token)
	s.productInput = &in
	s.updatedID = id
	if s.saveErr != nil {
		return products.Product{}, s.saveErr
	}
	return products.Product{ID: id, Name: in.Name, Price: in.Price, CategoryID: in.CategoryID}, nil
}

func (s *stubAPI) DeleteProduct(_ context.Context, token string, id int64) error {
	s.seen(token)
	s.deletedID = id
	return s.delErr
}

func (s *stubAPI) ExportProducts(_ context.Context, token string, f products.Filter) ([]byte, error) {
	s.seen(token)
	s.filter = f
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.export, nil
}
