package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/integrations/msgraph"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// tokenSkew refreshes access tokens slightly before they expire.
const tokenSkew = time.Minute

type AuthService interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	IssueSession(user *models.User) (*Session, error)

	MicrosoftEnabled() bool
	MicrosoftAuthURL(state string) (string, error)
	CompleteMicrosoftLogin(ctx context.Context, code string) (*Session, error)
	SignInWithMicrosoft(ctx context.Context, profile *msgraph.Profile, tok *oauth2.Token) (*models.User, error)

	// AccessToken returns a valid delegated Graph token for the user, refreshing it if needed.
	AccessToken(ctx context.Context, user *models.User) (string, error)
	// GraphFor returns a Graph client acting as the user.
	GraphFor(ctx context.Context, user *models.User) (*msgraph.Client, error)
}

// Session is a freshly minted session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthOptions configures the auth service. A nil OAuth disables Microsoft sign-in.
type AuthOptions struct {
	OAuth             *oauth2.Config
	InitialAdminEmail string
	GraphBaseURL      string
}

type authService struct {
	userRepo repository.UserRepository
	sessions *auth.SessionManager
	opts     AuthOptions
}

func NewAuthService(userRepo repository.UserRepository, sessions *auth.SessionManager, opts AuthOptions) AuthService {
	return &authService{userRepo: userRepo, sessions: sessions, opts: opts}
}

var _ AuthService = (*authService)(nil)

var errInvalidCredentials = appErr.New(appErr.CodeUnauthorized, "invalid credentials")

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	if err := s.userRepo.GetByEmail(ctx, email, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	t := now()
	user.LastLoginAt = &t
	if err := s.userRepo.Update(ctx, &user); err != nil {
		return nil, err
	}
	logger.L().Info("local login", zap.String("user_id", user.ID.String()))
	return s.IssueSession(&user)
}

func (s *authService) IssueSession(user *models.User) (*Session, error) {
	token, exp, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "issue session failed")
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, appErr.New(appErr.CodeUnauthorized, "authentication required")
	}
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid session")
	}
	id, _ := claims.UserID()
	var user models.User
	if err := s.userRepo.GetByID(ctx, id, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "session user no longer exists")
		}
		return nil, err
	}
	return &user, nil
}

func (s *authService) MicrosoftEnabled() bool { return s.opts.OAuth != nil }

func (s *authService) MicrosoftAuthURL(state string) (string, error) {
	if s.opts.OAuth == nil {
		return "", appErr.New(appErr.CodeUnavailable, "microsoft sign-in is not configured")
	}
	return s.opts.OAuth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

func (s *authService) CompleteMicrosoftLogin(ctx context.Context, code string) (*Session, error) {
	if s.opts.OAuth == nil {
		return nil, appErr.New(appErr.CodeUnavailable, "microsoft sign-in is not configured")
	}
	tok, err := s.opts.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "microsoft code exchange failed")
	}
	profile, err := s.graph(s.opts.OAuth.Client(ctx, tok)).Me(ctx)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "read microsoft profile failed")
	}
	user, err := s.SignInWithMicrosoft(ctx, profile, tok)
	if err != nil {
		return nil, err
	}
	return s.IssueSession(user)
}

func (s *authService) SignInWithMicrosoft(ctx context.Context, profile *msgraph.Profile, tok *oauth2.Token) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email()))
	if email == "" {
		return nil, appErr.Invalid("microsoft profile has no email")
	}

	var user models.User
	err := s.userRepo.GetByEmail(ctx, email, &user)
	created := false
	switch {
	case appErr.IsCode(err, appErr.CodeNotFound):
		user = models.User{Email: email, Name: profile.DisplayName, Role: models.RoleUser}
		created = true
	case err != nil:
		return nil, err
	}

	t := now()
	user.Provider = models.ProviderMicrosoft
	user.ExternalID = profile.ID
	user.LastLoginAt = &t
	if user.Name == "" {
		user.Name = profile.DisplayName
	}
	if tok != nil {
		if tok.AccessToken != "" {
			user.AccessToken = tok.AccessToken
			if !tok.Expiry.IsZero() {
				exp := tok.Expiry.UTC()
				user.TokenExpiresAt = &exp
			}
		}
		if tok.RefreshToken != "" {
			user.RefreshToken = tok.RefreshToken
		}
		user.TokenError = ""
	}
	if s.opts.InitialAdminEmail != "" && strings.EqualFold(email, s.opts.InitialAdminEmail) {
		user.Role = models.RoleAdmin
	}

	if created {
		err = s.userRepo.Create(ctx, &user)
	} else {
		err = s.userRepo.Update(ctx, &user)
	}
	if err != nil {
		return nil, err
	}
	logger.L().Info("microsoft sign-in", zap.String("user_id", user.ID.String()), zap.Bool("created", created), zap.String("role", user.Role))
	return &user, nil
}

func (s *authService) AccessToken(ctx context.Context, user *models.User) (string, error) {
	if user.AccessToken != "" && user.TokenExpiresAt != nil && user.TokenExpiresAt.After(now().Add(tokenSkew)) {
		return user.AccessToken, nil
	}
	if s.opts.OAuth == nil || user.RefreshToken == "" {
		return "", appErr.New(appErr.CodeUnauthorized, "microsoft account is not linked")
	}

	src := s.opts.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: user.RefreshToken, Expiry: time.Unix(1, 0)})
	tok, err := src.Token()
	if err != nil {
		logger.L().Warn("microsoft token refresh failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		user.TokenError = models.TokenErrorRefresh
		if uerr := s.userRepo.Update(ctx, user); uerr != nil {
			logger.L().Error("persist token error flag failed", zap.Error(uerr))
		}
		return "", appErr.Wrap(err, appErr.CodeUnauthorized, "microsoft token refresh failed")
	}

	user.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		user.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		user.TokenExpiresAt = &exp
	}
	user.TokenError = ""
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (s *authService) GraphFor(ctx context.Context, user *models.User) (*msgraph.Client, error) {
	token, err := s.AccessToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.graph(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))), nil
}

func (s *authService) graph(hc *http.Client) *msgraph.Client {
	c := msgraph.New(hc)
	if s.opts.GraphBaseURL != "" {
		c.WithBaseURL(s.opts.GraphBaseURL)
	}
	return c
}
