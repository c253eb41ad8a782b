package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager("0123456789abcdef0123")
	id := uuid.New()

	token, exp, err := m.Issue(id, "tech@voltworks.test")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(SessionTTL), exp, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "tech@voltworks.test", claims.Email)
}

func TestSessionRejectsOtherSecret(t *testing.T) {
	token, _, err := NewSessionManager("0123456789abcdef0123").Issue(uuid.New(), "a@b.test")
	require.NoError(t, err)

	_, err = NewSessionManager("another-secret-value-xx").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionExpired(t *testing.T) {
	m := NewSessionManager("0123456789abcdef0123")
	m.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	token, _, err := m.Issue(uuid.New(), "a@b.test")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))
}

func TestVerifyState(t *testing.T) {
	rec := httptest.NewRecorder()
	state, err := NewState(rec, httptest.NewRequest(http.MethodGet, "/api/auth/microsoft/login", nil))
	require.NoError(t, err)

	cb := httptest.NewRequest(http.MethodGet, "/api/auth/callback/microsoft?state="+state, nil)
	for _, c := range rec.Result().Cookies() {
		cb.AddCookie(c)
	}
	assert.True(t, VerifyState(httptest.NewRecorder(), cb))

	bad := httptest.NewRequest(http.MethodGet, "/api/auth/callback/microsoft?state=nope", nil)
	for _, c := range rec.Result().Cookies() {
		bad.AddCookie(c)
	}
	assert.False(t, VerifyState(httptest.NewRecorder(), bad))
}
