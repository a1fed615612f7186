package categories

import (
	"fmt"
	"time"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/platform/httpx"
)

// Category is a stored category with its materialized path.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parentCategoryId"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Record converts the category into tree builder input.
func (c Category) Record() tree.Category {
	return tree.Category{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
}

// Input is the writable part of a category.
type Input struct {
	Name     string `json:"name" validate:"required,max=255"`
	ParentID *int64 `json:"parentCategoryId" validate:"omitempty,gt=0"`
}

var (
	ErrNotFound      = fmt.Errorf("category: %w", httpx.ErrNotFound)
	ErrInvalidParent = fmt.Errorf("%w: parent category does not exist or lies inside the category", httpx.ErrValidation)
	ErrHasChildren   = fmt.Errorf("%w: category has subcategories", httpx.ErrConflict)
	ErrHasProducts   = fmt.Errorf("%w: category is assigned to products", httpx.ErrConflict)
)
