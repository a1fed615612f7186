package products

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/product-catalog/catalog/internal/shared"
)

// exportBatch bounds each page read while streaming an export.
const exportBatch = 500

// Service wraps product business rules.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, validator: shared.NewValidator()}
}

// List returns one page of products matching f.
func (s *Service) List(ctx context.Context, f Filter) (shared.Page[Product], error) {
	if err := f.Validate(); err != nil {
		return shared.Page[Product]{}, err
	}
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		return shared.Page[Product]{}, err
	}
	return shared.NewPage(rows, f.Page, f.Size, total), nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a product.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	in, err := s.normalize(ctx, in)
	if err != nil {
		return Product{}, err
	}
	id, err := s.repo.Create(ctx, in)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update validates and overwrites a product.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	in, err := s.normalize(ctx, in)
	if err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, in); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// Export writes every product matching f, ignoring its paging, as an XLSX
// workbook and returns the number of rows written.
func (s *Service) Export(ctx context.Context, f Filter, w io.Writer) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	f.Page = 0
	f.Size = exportBatch
	var all []Product
	for {
		rows, total, err := s.repo.List(ctx, f)
		if err != nil {
			return 0, err
		}
		all = append(all, rows...)
		if len(rows) < f.Size || int64(len(all)) >= total {
			break
		}
		f.Page++
	}
	if err := WriteWorkbook(w, all); err != nil {
		return 0, err
	}
	s.logger.Info("products exported", slog.Int("rows", len(all)))
	return len(all), nil
}

func (s *Service) normalize(ctx context.Context, in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.SKU = strings.TrimSpace(in.SKU)
	if err := s.validator.Struct(in); err != nil {
		return in, shared.ValidationError(err)
	}
	if !in.Price.IsPositive() {
		return in, shared.ValidationErrorf("price must be greater than 0")
	}
	if in.Price.Exponent() < -2 && !in.Price.Equal(in.Price.Round(2)) {
		return in, shared.ValidationErrorf("price must have at most 2 decimal places")
	}
	if in.Price.GreaterThan(MaxPrice) {
		return in, shared.ValidationErrorf("price must be at most %s", MaxPrice.String())
	}
	ok, err := s.repo.CategoryExists(ctx, in.CategoryID)
	if err != nil {
		return in, err
	}
	if !ok {
		return in, ErrUnknownCategory
	}
	return in, nil
}
