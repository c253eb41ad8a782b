package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/voltworks/portal/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

const (
	stateCookie = "oauth_state"

	// GraphDefaultScope requests every application permission granted to the app registration.
	GraphDefaultScope = "https://graph.microsoft.com/.default"
)

// DelegatedScopes are requested on interactive sign-in.
var DelegatedScopes = []string{
	"openid", "profile", "email", "offline_access",
	"User.Read", "Files.ReadWrite.All", "Sites.ReadWrite.All",
}

// MicrosoftConfig builds the authorization-code config for Azure AD sign-in.
func MicrosoftConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.AzureADClientID,
		ClientSecret: cfg.AzureADClientSecret,
		Endpoint:     microsoft.AzureADEndpoint(cfg.AzureADTenantID),
		RedirectURL:  cfg.AppBaseURL + "/api/auth/callback/microsoft",
		Scopes:       DelegatedScopes,
	}
}

// AppOnlyConfig builds the client-credentials config used for app-only Graph calls.
func AppOnlyConfig(cfg *config.Config) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     cfg.AzureADClientID,
		ClientSecret: cfg.AzureADClientSecret,
		TokenURL:     microsoft.AzureADEndpoint(cfg.AzureADTenantID).TokenURL,
		Scopes:       []string{GraphDefaultScope},
	}
}

// NewState returns a random state value and stores it in a short-lived cookie.
func NewState(w http.ResponseWriter, r *http.Request) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   isTLS(r),
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// VerifyState checks the callback state against the cookie and clears it.
func VerifyState(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie(stateCookie)
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/api/auth", MaxAge: -1})
	if err != nil || c.Value == "" {
		return false
	}
	return c.Value == r.URL.Query().Get("state")
}
