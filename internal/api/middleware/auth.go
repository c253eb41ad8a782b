package middleware

import (
	"context"
	"net/http"

	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

type userKeyType string

const UserKey userKeyType = "user"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Authenticate loads the session user from the cookie or Bearer header; 401 when absent or invalid.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			u, err := a.Authenticate(r.Context(), token)
			if err != nil {
				logger.L().Debug("session rejected", zap.String("id", GetRequestID(r.Context())), zap.Error(err))
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin must run after Authenticate; non-admins get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := GetUser(r.Context())
		if u == nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !u.IsAdmin() {
			writeError(w, r, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// GetUser returns the authenticated user, or nil outside Authenticate.
func GetUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(UserKey).(*models.User); ok {
		return u
	}
	return nil
}
