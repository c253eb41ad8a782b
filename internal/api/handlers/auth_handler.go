package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/services"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth    services.AuthService
	baseURL string
}

func NewAuthHandler(auth services.AuthService, baseURL string) *AuthHandler {
	return &AuthHandler{auth: auth, baseURL: strings.TrimRight(baseURL, "/")}
}

func toMe(u *models.User) types.MeResponse {
	return types.MeResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Provider:   u.Provider,
		TokenError: u.TokenError,
	}
}

// Login godoc
// @Summary  Sign in with a local password
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body  body      types.LoginRequest  true  "credentials"
// @Success  200   {object}  types.APIResponse
// @Failure  401   {object}  types.APIResponse
// @Router   /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.auth.Login(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.SetCookie(w, r, sess.Token, sess.ExpiresAt)
	writeData(w, http.StatusOK, map[string]any{
		"user":       toMe(sess.User),
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, r)
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

// Me godoc
// @Summary   Current user
// @Tags      auth
// @Produce   json
// @Success   200  {object}  types.APIResponse{data=types.MeResponse}
// @Security  BearerAuth
// @Router    /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, toMe(currentUser(r)))
}

func (h *AuthHandler) MicrosoftLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.auth.MicrosoftAuthURL(state)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (h *AuthHandler) MicrosoftCallback(w http.ResponseWriter, r *http.Request) {
	if !auth.VerifyState(w, r) {
		h.loginFailed(w, r, "state_mismatch")
		return
	}
	if e := r.URL.Query().Get("error"); e != "" {
		logger.L().Warn("microsoft sign-in refused", zap.String("error", e), zap.String("description", r.URL.Query().Get("error_description")))
		h.loginFailed(w, r, e)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.loginFailed(w, r, "missing_code")
		return
	}
	sess, err := h.auth.CompleteMicrosoftLogin(r.Context(), code)
	if err != nil {
		logger.L().Warn("microsoft sign-in failed", zap.Error(err))
		h.loginFailed(w, r, "signin_failed")
		return
	}
	auth.SetCookie(w, r, sess.Token, sess.ExpiresAt)
	http.Redirect(w, r, h.baseURL+"/", http.StatusFound)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.baseURL+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}
