package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps opaque bearer tokens in Redis until they expire or are
// revoked.
type TokenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, prefix: "catalog:token:", ttl: ttl, now: time.Now}
}

// TTL exposes the token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

// Issue stores a new token for the user.
func (s *TokenStore) Issue(ctx context.Context, user *User) (string, time.Time, error) {
	token := uuid.NewString()
	p := Principal{UserID: user.ID, Username: user.Username, IssuedAt: s.now().UTC()}
	data, err := json.Marshal(p)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.client.Set(ctx, s.prefix+token, data, s.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return token, p.IssuedAt.Add(s.ttl), nil
}

// Lookup resolves the principal behind a token.
func (s *TokenStore) Lookup(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return Principal{}, ErrTokenInvalid
	}
	data, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Principal{}, ErrTokenInvalid
		}
		return Principal{}, err
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return Principal{}, err
	}
	return p, nil
}

// Revoke deletes a token. Unknown tokens are ignored.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if _, err := uuid.Parse(strings.TrimSpace(token)); err != nil {
		return nil
	}
	return s.client.Del(ctx, s.prefix+strings.TrimSpace(token)).Err()
}
