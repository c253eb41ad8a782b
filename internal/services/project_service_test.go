package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
	appErr "github.com/voltworks/portal/pkg/errors"
)

func TestProjects_StatusChangeIsAudited(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	svc := NewProjectService(db, repository.NewProjectRepository(db), nil)

	p, err := svc.CreateProject(ctx, admin, &CreateProjectInput{Name: "Garcia Remodel"})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectInitialContact, p.Status)

	_, err = svc.UpdateProject(ctx, admin, p.ID, &UpdateProjectInput{ProjectFields: ProjectFields{Status: ptr(models.ProjectQuoteSent)}})
	require.NoError(t, err)
	// unchanged status writes nothing
	_, err = svc.UpdateProject(ctx, admin, p.ID, &UpdateProjectInput{Name: ptr("Garcia Kitchen"), ProjectFields: ProjectFields{Status: ptr(models.ProjectQuoteSent)}})
	require.NoError(t, err)

	hist, err := svc.StatusHistory(ctx, admin, p.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.EntityProject, hist[0].EntityType)
	assert.Equal(t, string(models.ProjectInitialContact), hist[0].OldStatus)
	assert.Equal(t, string(models.ProjectQuoteSent), hist[0].NewStatus)
	require.NotNil(t, hist[0].ChangedByID)
	assert.Equal(t, admin.ID, *hist[0].ChangedByID)

	_, err = svc.UpdateProject(ctx, admin, p.ID, &UpdateProjectInput{ProjectFields: ProjectFields{Status: ptr(models.ProjectStatus("bogus"))}})
	requireCode(t, err, appErr.CodeInvalid)
}

func TestMilestones_StatusChangeAndCompletion(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	p := testutil.CreateProject(t, db, admin, "Lee Garage")
	svc := NewMilestoneService(db, nil)

	m, err := svc.Create(ctx, admin, p.ID, &MilestoneInput{Name: ptr("Trenching")})
	require.NoError(t, err)

	m, err = svc.Update(ctx, admin, m.ID, &MilestoneInput{Status: ptr(models.MilestoneCompleted)})
	require.NoError(t, err)
	assert.NotNil(t, m.CompletedAt)

	m, err = svc.Update(ctx, admin, m.ID, &MilestoneInput{Status: ptr(models.MilestoneInProgress)})
	require.NoError(t, err)
	assert.Nil(t, m.CompletedAt)

	hist, err := NewProjectService(db, repository.NewProjectRepository(db), nil).StatusHistory(ctx, admin, p.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	for _, h := range hist {
		assert.Equal(t, models.EntityMilestone, h.EntityType)
		assert.Equal(t, m.ID, h.EntityID)
	}
}

func TestProjects_NonAdminsOnlySeeOwnProjects(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser)
	bob := testutil.CreateUser(t, db, "bob@example.com", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	svc := NewProjectService(db, repository.NewProjectRepository(db), nil)

	mine := testutil.CreateProject(t, db, alice, "Alice job")
	testutil.CreateProject(t, db, bob, "Bob job")

	list, err := svc.ListProjects(ctx, alice, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := svc.ListProjects(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.GetProject(ctx, bob, mine.ID)
	requireCode(t, err, appErr.CodeNotFound)
	requireCode(t, svc.DeleteProject(ctx, bob, mine.ID), appErr.CodeNotFound)

	_, err = svc.UpdateProject(ctx, alice, mine.ID, &UpdateProjectInput{ProjectFields: ProjectFields{OwnerID: &bob.ID}})
	requireCode(t, err, appErr.CodeForbidden)

	_, err = NewMilestoneService(db, nil).Create(ctx, bob, mine.ID, &MilestoneInput{Name: ptr("x")})
	requireCode(t, err, appErr.CodeNotFound)
}

func TestProjects_DeleteCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	p := testutil.CreateProject(t, db, admin, "Tear down")
	m := testutil.CreateMilestone(t, db, p, "Demo")
	_, err := NewTaskService(db, nil).Create(ctx, admin, m.ID, &TaskInput{Name: ptr("Remove panel")})
	require.NoError(t, err)

	svc := NewProjectService(db, repository.NewProjectRepository(db), nil)
	_, err = svc.UpdateProject(ctx, admin, p.ID, &UpdateProjectInput{ProjectFields: ProjectFields{Status: ptr(models.ProjectCancelled)}})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProject(ctx, admin, p.ID))

	for _, model := range []any{&models.Milestone{}, &models.Task{}, &models.StatusChange{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Equal(t, int64(0), n, "%T", model)
	}
}
