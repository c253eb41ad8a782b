package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

type MilestoneRepository interface {
	BaseRepository[models.Milestone]
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
	NextOrder(ctx context.Context, projectID uuid.UUID) (int, error)
}

type milestoneRepository struct {
	BaseRepository[models.Milestone]
	db *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{BaseRepository: NewBaseRepository[models.Milestone](db, "milestone"), db: db}
}

func (r *milestoneRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	var out []models.Milestone
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") }).
		Preload("Tasks.Assignee").
		Where("project_id = ?", projectID).
		Order("sort_order ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list milestones failed")
	}
	return out, nil
}

func (r *milestoneRepository) NextOrder(ctx context.Context, projectID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.Milestone{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&max).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "compute milestone order failed")
	}
	return max + 1, nil
}

type TaskRepository interface {
	BaseRepository[models.Task]
	ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Task, error)
	ListByAssignee(ctx context.Context, userID uuid.UUID, includeDone bool) ([]models.Task, error)
	CountOpenForAssignee(ctx context.Context, userID uuid.UUID) (int64, error)
	NextOrder(ctx context.Context, milestoneID uuid.UUID) (int, error)
}

type taskRepository struct {
	BaseRepository[models.Task]
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{BaseRepository: NewBaseRepository[models.Task](db, "task"), db: db}
}

func (r *taskRepository) ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Task, error) {
	var out []models.Task
	err := r.db.WithContext(ctx).Preload("Assignee").
		Where("milestone_id = ?", milestoneID).
		Order("sort_order ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list tasks failed")
	}
	return out, nil
}

func (r *taskRepository) ListByAssignee(ctx context.Context, userID uuid.UUID, includeDone bool) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Where("assignee_id = ?", userID)
	if !includeDone {
		q = q.Where("status <> ?", models.TaskDone)
	}
	var out []models.Task
	if err := q.Order("due_date IS NULL, due_date ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list assigned tasks failed")
	}
	return out, nil
}

func (r *taskRepository) CountOpenForAssignee(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("assignee_id = ? AND status <> ?", userID, models.TaskDone).
		Count(&n).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count open tasks failed")
	}
	return n, nil
}

func (r *taskRepository) NextOrder(ctx context.Context, milestoneID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("milestone_id = ?", milestoneID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&max).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "compute task order failed")
	}
	return max + 1, nil
}
