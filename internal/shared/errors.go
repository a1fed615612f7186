package shared

import (
	"errors"

	"github.com/product-catalog/catalog/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage turns an error into text that can be shown in a flash or
// form banner. Domain errors keep their message; anything else is generic.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrConflict),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrNotFound):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, httpx.ErrUnauthorized):
		return "Invalid username or password"
	default:
		return "Something went wrong, please try again"
	}
}
