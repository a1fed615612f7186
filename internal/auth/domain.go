package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/product-catalog/catalog/internal/platform/httpx"
)

// User represents an API account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal identifies the caller behind a bearer token.
type Principal struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var (
	// ErrInvalidCredentials is returned for unknown users, inactive users and
	// wrong passwords alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", httpx.ErrUnauthorized)
	// ErrTokenInvalid is returned for missing, expired or revoked tokens.
	ErrTokenInvalid = fmt.Errorf("%w: missing or expired token", httpx.ErrUnauthorized)
	// ErrUserNotFound is returned by repositories.
	ErrUserNotFound = errors.New("auth: user not found")
)
