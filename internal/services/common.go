package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

// inTx runs fn inside an explicit transaction, rolling back on error or panic.
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit().Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}

// loadVisibleProject returns the project when actor may see it. Non-admins only see
// projects they own; anything else reads as not found.
func loadVisibleProject(ctx context.Context, repo repository.ProjectRepository, actor *models.User, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := repo.GetByID(ctx, id, &p); err != nil {
		return nil, err
	}
	if !canSeeProject(actor, &p) {
		return nil, appErr.NotFound("project not found")
	}
	return &p, nil
}

func canSeeProject(actor *models.User, p *models.Project) bool {
	if actor.IsAdmin() {
		return true
	}
	return p.OwnerID != nil && *p.OwnerID == actor.ID
}

// ownerScope returns the owner filter for listings: nil for admins.
func ownerScope(actor *models.User) *uuid.UUID {
	if actor.IsAdmin() {
		return nil
	}
	id := actor.ID
	return &id
}

func actorID(actor *models.User) *uuid.UUID {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

// loadVisibleMilestone resolves a milestone and checks its project is visible.
func loadVisibleMilestone(ctx context.Context, db *gorm.DB, actor *models.User, id uuid.UUID) (*models.Milestone, *models.Project, error) {
	var m models.Milestone
	if err := repository.NewMilestoneRepository(db).GetByID(ctx, id, &m); err != nil {
		return nil, nil, err
	}
	p, err := loadVisibleProject(ctx, repository.NewProjectRepository(db), actor, m.ProjectID)
	if err != nil {
		return nil, nil, appErr.NotFound("milestone not found")
	}
	return &m, p, nil
}

// loadVisibleTask resolves a task and checks the owning project is visible.
func loadVisibleTask(ctx context.Context, db *gorm.DB, actor *models.User, id uuid.UUID) (*models.Task, *models.Milestone, error) {
	var t models.Task
	if err := repository.NewTaskRepository(db).GetByID(ctx, id, &t); err != nil {
		return nil, nil, err
	}
	m, _, err := loadVisibleMilestone(ctx, db, actor, t.MilestoneID)
	if err != nil {
		return nil, nil, appErr.NotFound("task not found")
	}
	return &t, m, nil
}

func now() time.Time { return time.Now().UTC() }
