package catalogapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/product-catalog/catalog/internal/platform/httpx"
)

// Sentinels matched by errors.Is against an *APIError.
var (
	ErrNotFound     = httpx.ErrNotFound
	ErrUnauthorized = httpx.ErrUnauthorized
	ErrValidation   = httpx.ErrValidation
	ErrConflict     = httpx.ErrConflict
	ErrUnavailable  = errors.New("catalog api unavailable")
)

// APIError is a problem response returned by the catalog API.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Title != "" {
		return fmt.Sprintf("%s (%d)", e.Title, e.Status)
	}
	return fmt.Sprintf("catalog api: status %d", e.Status)
}

// Is maps the response status onto the platform sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case httpx.ErrNotFound:
		return e.Status == http.StatusNotFound
	case httpx.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case httpx.ErrValidation:
		return e.Status == http.StatusBadRequest
	case httpx.ErrConflict, httpx.ErrDuplicate:
		return e.Status == http.StatusConflict
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}
