package products

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/form"
	"github.com/shopspring/decimal"

	"github.com/product-catalog/catalog/internal/shared"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSort     = "name"
)

// SortFields lists the accepted sortBy values.
var SortFields = []string{"name", "categoryPath", "price", "stockQuantity", "createdAt", "updatedAt"}

// Filter narrows and orders a product listing. Page is zero-based.
type Filter struct {
	Name         string           `form:"name" validate:"max=100"`
	CategoryPath string           `form:"categoryPath" validate:"max=255"`
	CategoryID   *int64           `form:"categoryId" validate:"omitempty,gt=0"`
	MinPrice     *decimal.Decimal `form:"minPrice"`
	MaxPrice     *decimal.Decimal `form:"maxPrice"`
	InStockOnly  bool             `form:"inStockOnly"`
	Page         int              `form:"page" validate:"gte=0"`
	Size         int              `form:"size" validate:"gt=0,lte=100"`
	SortBy       string           `form:"sortBy" validate:"oneof=name categoryPath price stockQuantity createdAt updatedAt"`
	SortDir      string           `form:"sortDir" validate:"oneof=asc desc"`
}

// DefaultFilter returns the unfiltered first page sorted by name.
func DefaultFilter() Filter {
	return Filter{Size: DefaultPageSize, SortBy: DefaultSort, SortDir: "asc"}
}

var (
	queryDecoder = newQueryDecoder()
	filterCheck  = shared.NewValidator()
)

func newQueryDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return decimal.NewFromString(strings.TrimSpace(vals[0]))
	}, decimal.Decimal{})
	return d
}

// ParseFilter decodes listing parameters from a query string, applying
// defaults for absent values, and validates the result.
func ParseFilter(values url.Values) (Filter, error) {
	f := DefaultFilter()
	cleaned := url.Values{}
	for k, vs := range values {
		if len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			cleaned[k] = vs[:1]
		}
	}
	if err := queryDecoder.Decode(&f, cleaned); err != nil {
		return Filter{}, shared.ValidationErrorf("invalid query parameter: %s", decodeMessage(err))
	}
	f.SortDir = strings.ToLower(f.SortDir)
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate checks field bounds and the price range.
func (f Filter) Validate() error {
	if err := filterCheck.Struct(f); err != nil {
		return shared.ValidationError(err)
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return shared.ValidationErrorf("minPrice must be 0 or more")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return shared.ValidationErrorf("maxPrice must be 0 or more")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return shared.ValidationErrorf("minPrice must not exceed maxPrice")
	}
	return nil
}

// Offset is the number of rows preceding the page.
func (f Filter) Offset() int {
	return f.Page * f.Size
}

// Descending reports whether rows are sorted high to low.
func (f Filter) Descending() bool {
	return f.SortDir == "desc"
}

// Values encodes the filter back into query parameters, omitting defaults.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Name != "" {
		v.Set("name", f.Name)
	}
	if f.CategoryPath != "" {
		v.Set("categoryPath", f.CategoryPath)
	}
	if f.CategoryID != nil {
		v.Set("categoryId", fmt.Sprint(*f.CategoryID))
	}
	if f.MinPrice != nil {
		v.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", f.MaxPrice.String())
	}
	if f.InStockOnly {
		v.Set("inStockOnly", "true")
	}
	if f.Page > 0 {
		v.Set("page", fmt.Sprint(f.Page))
	}
	if f.Size != DefaultPageSize && f.Size > 0 {
		v.Set("size", fmt.Sprint(f.Size))
	}
	if f.SortBy != "" && f.SortBy != DefaultSort {
		v.Set("sortBy", f.SortBy)
	}
	if f.SortDir == "desc" {
		v.Set("sortDir", "desc")
	}
	return v
}

func decodeMessage(err error) string {
	errs, ok := err.(form.DecodeErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}
