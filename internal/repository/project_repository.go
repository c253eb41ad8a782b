package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

// ProjectFilter narrows project listings. A nil OwnerID means every project.
type ProjectFilter struct {
	OwnerID   *uuid.UUID
	Status    string
	JobTypeID *uuid.UUID
	Search    string
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ProjectRepository interface {
	BaseRepository[models.Project]
	ListFiltered(ctx context.Context, f ProjectFilter) ([]models.Project, error)
	GetDetailed(ctx context.Context, id uuid.UUID, dest *models.Project) error
	StatusHistory(ctx context.Context, projectID uuid.UUID) ([]models.StatusChange, error)
	RecordStatusChange(ctx context.Context, change *models.StatusChange) error
	CountByStatus(ctx context.Context, ownerID *uuid.UUID) ([]StatusCount, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db, "project"), db: db}
}

func (r *projectRepository) ListFiltered(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{}).Preload("JobType").Preload("Owner")
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.JobTypeID != nil {
		q = q.Where("job_type_id = ?", *f.JobTypeID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(contact_name) LIKE ? OR LOWER(address) LIKE ?", like, like, like)
	}
	var out []models.Project
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, nil
}

func (r *projectRepository) GetDetailed(ctx context.Context, id uuid.UUID, dest *models.Project) error {
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("JobType").
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") }).
		Preload("Milestones.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") }).
		Preload("Milestones.Tasks.Assignee").
		First(dest, "id = ?", id).Error
	if err != nil {
		return translate(err, "project", "get")
	}
	return nil
}

func (r *projectRepository) StatusHistory(ctx context.Context, projectID uuid.UUID) ([]models.StatusChange, error) {
	var out []models.StatusChange
	err := r.db.WithContext(ctx).Preload("ChangedBy").
		Where("project_id = ?", projectID).
		Order("changed_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list status history failed")
	}
	return out, nil
}

func (r *projectRepository) RecordStatusChange(ctx context.Context, change *models.StatusChange) error {
	if err := r.db.WithContext(ctx).Create(change).Error; err != nil {
		return translate(err, "status change", "create")
	}
	return nil
}

func (r *projectRepository) CountByStatus(ctx context.Context, ownerID *uuid.UUID) ([]StatusCount, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{}).Select("status, COUNT(*) AS count").Group("status")
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	var out []StatusCount
	if err := q.Scan(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "count projects by status failed")
	}
	return out, nil
}
