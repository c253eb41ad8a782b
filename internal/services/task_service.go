package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/storage"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TaskService interface {
	Create(ctx context.Context, actor *models.User, milestoneID uuid.UUID, input *TaskInput) (*models.Task, error)
	List(ctx context.Context, actor *models.User, milestoneID uuid.UUID) ([]models.Task, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input *TaskInput) (*models.Task, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	Mine(ctx context.Context, actor *models.User, includeDone bool) ([]models.Task, error)
}

// TaskInput carries optional fields; Name is required on create. ClearAssignee unassigns.
type TaskInput struct {
	Name          *string
	Description   *string
	Status        *models.TaskStatus
	Order         *int
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	DueDate       *time.Time
}

type taskService struct {
	db    *gorm.DB
	store storage.Storage
}

func NewTaskService(db *gorm.DB, store storage.Storage) TaskService {
	return &taskService{db: db, store: store}
}

var _ TaskService = (*taskService)(nil)

func (s *taskService) Create(ctx context.Context, actor *models.User, milestoneID uuid.UUID, input *TaskInput) (*models.Task, error) {
	if _, _, err := loadVisibleMilestone(ctx, s.db, actor, milestoneID); err != nil {
		return nil, err
	}
	repo := repository.NewTaskRepository(s.db)
	t := &models.Task{MilestoneID: milestoneID, Status: models.TaskTodo}
	if input.Order == nil {
		next, err := repo.NextOrder(ctx, milestoneID)
		if err != nil {
			return nil, err
		}
		t.Order = next
	}
	if err := s.apply(ctx, s.db, t, input); err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, t); err != nil {
		return nil, err
	}
	logger.L().Info("task created", zap.String("task_id", t.ID.String()), zap.String("milestone_id", milestoneID.String()))
	return t, nil
}

func (s *taskService) List(ctx context.Context, actor *models.User, milestoneID uuid.UUID) ([]models.Task, error) {
	if _, _, err := loadVisibleMilestone(ctx, s.db, actor, milestoneID); err != nil {
		return nil, err
	}
	return repository.NewTaskRepository(s.db).ListByMilestone(ctx, milestoneID)
}

func (s *taskService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Task, error) {
	if _, _, err := loadVisibleTask(ctx, s.db, actor, id); err != nil {
		return nil, err
	}
	var t models.Task
	if err := repository.NewTaskRepository(s.db).GetByID(ctx, id, &t, repository.Preload("Assignee", "Comments.Author")); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *taskService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input *TaskInput) (*models.Task, error) {
	var out *models.Task
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		t, _, err := loadVisibleTask(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, tx, t, input); err != nil {
			return err
		}
		out = t
		return repository.NewTaskRepository(tx).Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *taskService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	var files []models.FileAttachment
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, _, err := loadVisibleTask(ctx, tx, actor, id); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Find(&files).Error; err != nil {
			return err
		}
		return repository.NewTaskRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	removeStoredFiles(ctx, s.store, files)
	return nil
}

func (s *taskService) Mine(ctx context.Context, actor *models.User, includeDone bool) ([]models.Task, error) {
	return repository.NewTaskRepository(s.db).ListByAssignee(ctx, actor.ID, includeDone)
}

func (s *taskService) apply(ctx context.Context, db *gorm.DB, t *models.Task, in *TaskInput) error {
	setIf(&t.Name, in.Name)
	setIf(&t.Description, in.Description)
	setIf(&t.Order, in.Order)
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.ClearAssignee {
		t.AssigneeID = nil
	} else if in.AssigneeID != nil {
		var u models.User
		if err := repository.NewUserRepository(db).GetByID(ctx, *in.AssigneeID, &u); err != nil {
			return err
		}
		t.AssigneeID = in.AssigneeID
	}
	if in.Status != nil && *in.Status != t.Status {
		t.Status = *in.Status
		if t.Status == models.TaskDone {
			c := now()
			t.CompletedAt = &c
		} else {
			t.CompletedAt = nil
		}
	}
	if t.Status == models.TaskDone && t.CompletedAt == nil {
		c := now()
		t.CompletedAt = &c
	}
	return nil
}
