package products

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/product-catalog/catalog/internal/platform/httpx"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxPrice is the largest price a NUMERIC(12,2) column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

// Product is a catalog item joined with its category path.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	CategoryID    int64           `json:"categoryId"`
	CategoryPath  string          `json:"categoryPath"`
	StockQuantity int             `json:"stockQuantity"`
	SKU           string          `json:"sku"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// Input is the writable part of a product.
type Input struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description" validate:"max=4000"`
	Price         decimal.Decimal `json:"price"`
	CategoryID    int64           `json:"categoryId" validate:"required,gt=0"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	SKU           string          `json:"sku" validate:"max=100"`
}

var (
	ErrNotFound        = fmt.Errorf("product: %w", httpx.ErrNotFound)
	ErrUnknownCategory = fmt.Errorf("%w: category does not exist", httpx.ErrValidation)
	ErrDuplicateSKU    = fmt.Errorf("%w: sku already in use", httpx.ErrDuplicate)
)
