package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type tokenTable map[string]*models.User

func (t tokenTable) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	u := GetUser(r.Context())
	_, _ = w.Write([]byte(u.Email))
}

func TestAuthenticateAndRequireAdmin(t *testing.T) {
	admin := &models.User{Base: models.Base{ID: uuid.New()}, Email: "admin@example.com", Role: models.RoleAdmin}
	user := &models.User{Base: models.Base{ID: uuid.New()}, Email: "user@example.com", Role: models.RoleUser}
	a := tokenTable{"admin-token": admin, "user-token": user}

	protected := Authenticate(a)(http.HandlerFunc(okHandler))
	adminOnly := Authenticate(a)(RequireAdmin(http.HandlerFunc(okHandler)))

	cases := []struct {
		name    string
		handler http.Handler
		setup   func(r *http.Request)
		status  int
		body    string
	}{
		{"no credentials", protected, func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bad token", protected, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"bearer", protected, func(r *http.Request) { r.Header.Set("Authorization", "Bearer user-token") }, http.StatusOK, "user@example.com"},
		{"cookie", protected, func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "admin-token"}) }, http.StatusOK, "admin@example.com"},
		{"admin route unauthenticated", adminOnly, func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"admin route as user", adminOnly, func(r *http.Request) { r.Header.Set("Authorization", "Bearer user-token") }, http.StatusForbidden, ""},
		{"admin route as admin", adminOnly, func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin-token") }, http.StatusOK, "admin@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rr := httptest.NewRecorder()
			tc.handler.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rr.Body.String())
			}
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rr.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRateLimitPerIP(t *testing.T) {
	h := RateLimit(0.001, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))
}

func TestRecoveryReturns500(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
}
