package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "catalog_session", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, cookie *http.Cookie, mutate func(*Session)) (*Session, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if mutate != nil {
		mutate(sess)
	}
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, req, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return sess, cookies[0]
}

func TestSessionPersistsSignInAndFlash(t *testing.T) {
	sm, mr := newTestSessions(t)

	first, cookie := roundTrip(t, sm, nil, func(s *Session) {
		s.SignIn("admin", "token-1")
		s.AddFlash(FlashMessage{Kind: "success", Message: "Welcome"})
	})
	assert.True(t, mr.Exists("catalog:session:"+first.ID))
	assert.Equal(t, first.ID, cookie.Value)

	var flash *FlashMessage
	second, _ := roundTrip(t, sm, cookie, func(s *Session) { flash = s.PopFlash() })
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "admin", second.User())
	assert.Equal(t, "token-1", second.APIToken())
	require.NotNil(t, flash)
	assert.Equal(t, "Welcome", flash.Message)

	third, _ := roundTrip(t, sm, cookie, nil)
	assert.Nil(t, third.PopFlash())
}

func TestSessionSignOutKeepsSession(t *testing.T) {
	sm, _ := newTestSessions(t)
	first, cookie := roundTrip(t, sm, nil, func(s *Session) { s.SignIn("admin", "tok") })
	second, _ := roundTrip(t, sm, cookie, func(s *Session) { s.SignOut() })
	assert.Equal(t, first.ID, second.ID)

	third, _ := roundTrip(t, sm, cookie, nil)
	assert.Empty(t, third.User())
	assert.Empty(t, third.APIToken())
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	sm, mr := newTestSessions(t)
	first, cookie := roundTrip(t, sm, nil, nil)
	_, expired := roundTrip(t, sm, cookie, func(s *Session) { sm.Destroy(s) })
	assert.Equal(t, -1, expired.MaxAge)
	assert.False(t, mr.Exists("catalog:session:"+first.ID))
}

func TestSessionIgnoresForgedCookie(t *testing.T) {
	sm, _ := newTestSessions(t)
	sess, _ := roundTrip(t, sm, &http.Cookie{Name: "catalog_session", Value: "../../etc"}, nil)
	assert.NotEqual(t, "../../etc", sess.ID)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}

	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, "x"), ErrCSRFTokenMissing)

	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, token+"x"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)
}
