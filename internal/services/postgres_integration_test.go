//go:build integration

package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
	"github.com/voltworks/portal/pkg/database"
	appErr "github.com/voltworks/portal/pkg/errors"
)

func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.Options{Driver: "postgres", DSN: dsn, LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestPostgresConcurrentAssignmentsNeverOverAllocate(t *testing.T) {
	db := newPostgresDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	project := testutil.CreateProject(t, db, admin, "Substation")
	item := testutil.CreateItem(t, db, "Breaker 20A", 10, 2)

	svc := NewInventoryService(db, repository.NewInventoryRepository(db))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Assign(ctx, admin, &AssignInput{ItemID: item.ID, Quantity: 3, ProjectID: &project.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if appErr.IsCode(err, appErr.CodeInvalid) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 5, rejected)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)
	assert.True(t, got.IsLowStock)
}

func TestPostgresStatusHistoryAndCounts(t *testing.T) {
	db := newPostgresDB(t)
	owner := testutil.CreateUser(t, db, "pm@example.com", models.RoleUser)
	repo := repository.NewProjectRepository(db)
	svc := NewProjectService(db, repo, nil)

	p := testutil.CreateProject(t, db, owner, "Retrofit")
	_, err := svc.UpdateProject(ctx, owner, p.ID, &UpdateProjectInput{ProjectFields: ProjectFields{Status: ptr(models.ProjectQuoteSent)}})
	require.NoError(t, err)

	hist, err := svc.StatusHistory(ctx, owner, p.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, string(models.ProjectInitialContact), hist[0].OldStatus)

	counts, err := repo.CountByStatus(ctx, &owner.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, string(models.ProjectQuoteSent), counts[0].Status)
	assert.EqualValues(t, 1, counts[0].Count)
}
