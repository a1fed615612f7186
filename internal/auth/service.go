package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the user does not exist.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("catalog-dummy-password"), bcrypt.DefaultCost)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenStore
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	user, err := s.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return LoginResponse{}, err
	}
	token, expires, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return LoginResponse{}, err
	}
	s.logger.Info("api login", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return LoginResponse{Token: token, Message: "Login successful", ExpiresAt: expires}, nil
}

// Logout revokes the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Principal resolves a bearer token.
func (s *Service) Principal(ctx context.Context, token string) (Principal, error) {
	return s.tokens.Lookup(ctx, token)
}

// EnsureUser creates or refreshes the bootstrap account. Empty credentials
// are skipped.
func (s *Service) EnsureUser(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}
	if existing, err := s.repo.FindByUsername(ctx, username); err == nil {
		if existing.IsActive && bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) == nil {
			return nil
		}
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := s.repo.UpsertUser(ctx, username, string(hash))
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap user ensured", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return nil
}
