package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/api/handlers"
	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/integrations/places"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/services"
	"github.com/voltworks/portal/internal/storage"
	"github.com/voltworks/portal/internal/testutil"
	"github.com/voltworks/portal/pkg/logger"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type noopTimer struct{ running bool }

func (t *noopTimer) Start(string) error { t.running = true; return nil }
func (t *noopTimer) Stop()              { t.running = false }
func (t *noopTimer) Running() bool      { return t.running }

type testServer struct {
	handler  http.Handler
	db       *gorm.DB
	sessions *auth.SessionManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	sessions := auth.NewSessionManager("test-session-secret-0123456789")
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	pl, err := places.New("")
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	authSvc := services.NewAuthService(userRepo, sessions, services.AuthOptions{})
	calendar := services.NewCalendarService(db)
	inventory := services.NewInventoryService(db, repository.NewInventoryRepository(db))
	backups := services.NewBackupService(db, services.BackupConfig{Dir: t.TempDir(), Secret: "backup-secret"}, userRepo, authSvc)
	schedule := services.NewScheduleService(db, repository.NewScheduleRepository(db), &noopTimer{})

	h := NewRouter(Dependencies{
		Authenticator:  authSvc,
		AllowedOrigins: []string{"http://localhost:8080"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Health:         handlers.NewHealthHandler(nil),
		Auth:           handlers.NewAuthHandler(authSvc, "http://localhost:8080"),
		Users:          handlers.NewUsersHandler(services.NewUserService(db, userRepo), authSvc),
		Projects:       handlers.NewProjectsHandler(services.NewProjectService(db, repository.NewProjectRepository(db), local)),
		Milestones:     handlers.NewMilestonesHandler(services.NewMilestoneService(db, local)),
		Tasks:          handlers.NewTasksHandler(services.NewTaskService(db, local)),
		Comments:       handlers.NewCommentsHandler(services.NewCommentService(db)),
		Communications: handlers.NewCommunicationsHandler(services.NewCommunicationService(db)),
		Files:          handlers.NewFilesHandler(services.NewFileService(db, local), local),
		Calendar:       handlers.NewCalendarHandler(calendar),
		JobTypes:       handlers.NewJobTypesHandler(services.NewJobTypeService(repository.NewJobTypeRepository(db))),
		Inventory:      handlers.NewInventoryHandler(inventory, "http://localhost:8080"),
		Packages:       handlers.NewPackagesHandler(inventory),
		Templates:      handlers.NewTemplatesHandler(services.NewTemplateService(db, repository.NewTemplateRepository(db))),
		Backup:         handlers.NewBackupHandler(backups, schedule),
		SharePoint:     handlers.NewSharePointHandler(nil, ""),
		Places:         handlers.NewPlacesHandler(pl),
		Dashboard:      handlers.NewDashboardHandler(services.NewDashboardService(db, calendar)),
	})
	return &testServer{handler: h, db: db, sessions: sessions}
}

func (s *testServer) token(t *testing.T, u *models.User) string {
	tok, _, err := s.sessions.Issue(u.ID, u.Email)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func TestAdminRoutes401Versus403(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin@example.com", models.RoleAdmin)
	user := testutil.CreateUser(t, s.db, "user@example.com", models.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/users", s.token(t, user), nil).Code)

	rr := s.do(t, http.MethodGet, "/api/admin/users", s.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var users []models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &users))
	assert.Len(t, users, 2)

	// any signed-in user may list assignees
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users", s.token(t, user), nil).Code)
}

func TestLocalLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "admin@example.com", models.RoleAdmin)

	rr := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "Admin@Example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	me := s.do(t, http.MethodGet, "/api/auth/me", session.Value, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"role":"admin"`)

	bad := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestProjectsAreScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice@example.com", models.RoleUser)
	bob := testutil.CreateUser(t, s.db, "bob@example.com", models.RoleUser)

	rr := s.do(t, http.MethodPost, "/api/projects", s.token(t, alice), map[string]any{"name": "Lobby cameras"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p models.Project
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &p))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/projects/"+p.ID.String(), s.token(t, alice), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/projects/"+p.ID.String(), s.token(t, bob), nil).Code)

	bad := s.do(t, http.MethodPatch, "/api/projects/"+p.ID.String(), s.token(t, alice), map[string]any{"status": "paused"})
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, `invalid project status "paused"`, decodeEnvelope(t, bad).Error.Message)

	ok := s.do(t, http.MethodPatch, "/api/projects/"+p.ID.String(), s.token(t, alice), map[string]any{"status": "quote_sent"})
	require.Equal(t, http.StatusOK, ok.Code)
	hist := s.do(t, http.MethodGet, "/api/projects/"+p.ID.String()+"/status-history", s.token(t, alice), nil)
	require.Equal(t, http.StatusOK, hist.Code)
	var rows []models.StatusChange
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, hist).Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "quote_sent", rows[0].NewStatus)
}

func TestAssignmentOverAllocationIs400(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin@example.com", models.RoleAdmin)
	project := testutil.CreateProject(t, s.db, admin, "Warehouse")
	item := testutil.CreateItem(t, s.db, "Cable Reel 10/2", 10, 3)

	body := map[string]any{"itemId": item.ID, "quantity": 8, "projectId": project.ID}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/inventory/assignments", s.token(t, admin), body).Code)

	rr := s.do(t, http.MethodPost, "/api/inventory/assignments", s.token(t, admin), map[string]any{"itemId": item.ID, "quantity": 3, "projectId": project.ID})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "insufficient inventory: requested 3, available 2", decodeEnvelope(t, rr).Error.Message)

	low := s.do(t, http.MethodGet, "/api/inventory/low-stock", s.token(t, admin), nil)
	require.Equal(t, http.StatusOK, low.Code)
	var items []models.InventoryItem
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, low).Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Available)
	assert.True(t, items[0].IsLowStock)

	label := s.do(t, http.MethodGet, "/api/inventory/items/"+item.ID.String()+"/label.png", s.token(t, admin), nil)
	require.Equal(t, http.StatusOK, label.Code)
	assert.Equal(t, "image/png", label.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(label.Body.Bytes(), []byte("\x89PNG")))
}

func TestScheduledBackupRequiresSecret(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/backup/scheduled", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// the in-memory test database is not a file, so an authorized call reports 400
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backup/scheduled", nil)
	req.Header.Set("Authorization", "Bearer backup-secret")
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBackupScheduleRoundTrip(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin@example.com", models.RoleAdmin)
	tok := s.token(t, admin)

	rr := s.do(t, http.MethodGet, "/api/admin/backup/schedule", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":null}`, rr.Body.String())

	rr = s.do(t, http.MethodPut, "/api/admin/backup/schedule", tok, map[string]any{"enabled": true, "frequency": "monthly"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPut, "/api/admin/backup/schedule", tok, map[string]any{"enabled": true, "frequency": "daily"})
	require.Equal(t, http.StatusOK, rr.Code)
	var bs models.BackupSchedule
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &bs))
	assert.True(t, bs.Enabled)
	assert.NotNil(t, bs.NextRun)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/admin/backup/schedule", tok, nil).Code)
}

func TestPlacesUnavailableWithoutKey(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "user@example.com", models.RoleUser)
	rr := s.do(t, http.MethodGet, "/api/places/autocomplete?input=1+Main", s.token(t, user), nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "unavailable", decodeEnvelope(t, rr).Error.Code)
}

func TestUploadsRejectEscapes(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "user@example.com", models.RoleUser)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/uploads/a.txt", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/uploads/missing.txt", s.token(t, user), nil).Code)
}
