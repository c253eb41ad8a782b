package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/integrations/msgraph"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
	appErr "github.com/voltworks/portal/pkg/errors"
)

// tokenServer accepts "good-refresh" and rejects any other refresh token.
func tokenServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("refresh_token") != "good-refresh" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "rotated-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAuthService(t *testing.T, tokenURL string) (AuthService, repository.UserRepository) {
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(users, auth.NewSessionManager("test-session-secret-0123456789"), AuthOptions{
		OAuth: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		InitialAdminEmail: "Owner@Voltworks.example",
	})
	return svc, users
}

func TestAuth_SignInWithMicrosoftUpserts(t *testing.T) {
	svc, users := newAuthService(t, "http://127.0.0.1:0/token")

	tok := &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: time.Now().Add(time.Hour)}
	u, err := svc.SignInWithMicrosoft(ctx, &msgraph.Profile{ID: "ext-1", DisplayName: "Pat Tech", UserPrincipalName: "Pat@Voltworks.example"}, tok)
	require.NoError(t, err)
	assert.Equal(t, "pat@voltworks.example", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, models.ProviderMicrosoft, u.Provider)

	// second sign-in updates the same row and keeps the refresh token when none is returned
	again, err := svc.SignInWithMicrosoft(ctx, &msgraph.Profile{ID: "ext-1", Mail: "pat@voltworks.example"}, &oauth2.Token{AccessToken: "a2"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Pat Tech", again.Name)

	var stored models.User
	require.NoError(t, users.GetByID(ctx, u.ID, &stored))
	assert.Equal(t, "a2", stored.AccessToken)
	assert.Equal(t, "r1", stored.RefreshToken)

	owner, err := svc.SignInWithMicrosoft(ctx, &msgraph.Profile{ID: "ext-2", Mail: "owner@voltworks.example"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, owner.Role)

	_, err = svc.SignInWithMicrosoft(ctx, &msgraph.Profile{ID: "ext-3"}, nil)
	requireCode(t, err, appErr.CodeInvalid)
}

func TestAuth_AccessTokenRefresh(t *testing.T) {
	srv := tokenServer(t)
	svc, users := newAuthService(t, srv.URL)

	expired := time.Now().Add(-time.Hour)
	u, err := svc.SignInWithMicrosoft(ctx, &msgraph.Profile{ID: "ext-1", Mail: "pat@voltworks.example"},
		&oauth2.Token{AccessToken: "stale", RefreshToken: "good-refresh", Expiry: expired})
	require.NoError(t, err)

	token, err := svc.AccessToken(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)

	var stored models.User
	require.NoError(t, users.GetByID(ctx, u.ID, &stored))
	assert.Equal(t, "rotated-refresh", stored.RefreshToken)
	assert.Empty(t, stored.TokenError)

	// a still-valid token is returned without a round trip
	token, err = svc.AccessToken(ctx, &stored)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
}

func TestAuth_AccessTokenRefreshFailureFlagsUser(t *testing.T) {
	srv := tokenServer(t)
	svc, users := newAuthService(t, srv.URL)

	u, err := svc.SignInWithMicrosoft(ctx, &msgraph.Profile{ID: "ext-1", Mail: "pat@voltworks.example"},
		&oauth2.Token{AccessToken: "stale", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	_, err = svc.AccessToken(ctx, u)
	requireCode(t, err, appErr.CodeUnauthorized)

	var stored models.User
	require.NoError(t, users.GetByID(ctx, u.ID, &stored))
	assert.Equal(t, models.TokenErrorRefresh, stored.TokenError)

	// the session itself stays valid
	sess, err := svc.IssueSession(&stored)
	require.NoError(t, err)
	me, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenErrorRefresh, me.TokenError)

	// local accounts have nothing to refresh
	_, err = svc.AccessToken(ctx, &models.User{Email: "local@example.com", Provider: models.ProviderLocal})
	requireCode(t, err, appErr.CodeUnauthorized)
}
