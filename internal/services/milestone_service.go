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

type MilestoneService interface {
	Create(ctx context.Context, actor *models.User, projectID uuid.UUID, input *MilestoneInput) (*models.Milestone, error)
	List(ctx context.Context, actor *models.User, projectID uuid.UUID) ([]models.Milestone, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Milestone, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input *MilestoneInput) (*models.Milestone, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// MilestoneInput carries optional fields; Name is required on create.
type MilestoneInput struct {
	Name        *string
	Description *string
	Category    *string
	Status      *models.MilestoneStatus
	Order       *int
	DueDate     *time.Time
}

type milestoneService struct {
	db    *gorm.DB
	store storage.Storage
}

func NewMilestoneService(db *gorm.DB, store storage.Storage) MilestoneService {
	return &milestoneService{db: db, store: store}
}

var _ MilestoneService = (*milestoneService)(nil)

func (s *milestoneService) Create(ctx context.Context, actor *models.User, projectID uuid.UUID, input *MilestoneInput) (*models.Milestone, error) {
	if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, projectID); err != nil {
		return nil, err
	}
	repo := repository.NewMilestoneRepository(s.db)
	m := &models.Milestone{ProjectID: projectID, Status: models.MilestoneNotStarted}
	if input.Order == nil {
		next, err := repo.NextOrder(ctx, projectID)
		if err != nil {
			return nil, err
		}
		m.Order = next
	}
	applyMilestone(m, input)
	if m.Status == models.MilestoneCompleted {
		t := now()
		m.CompletedAt = &t
	}
	if err := repo.Create(ctx, m); err != nil {
		return nil, err
	}
	logger.L().Info("milestone created", zap.String("milestone_id", m.ID.String()), zap.String("project_id", projectID.String()))
	return m, nil
}

func (s *milestoneService) List(ctx context.Context, actor *models.User, projectID uuid.UUID) ([]models.Milestone, error) {
	if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, projectID); err != nil {
		return nil, err
	}
	return repository.NewMilestoneRepository(s.db).ListByProject(ctx, projectID)
}

func (s *milestoneService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Milestone, error) {
	if _, _, err := loadVisibleMilestone(ctx, s.db, actor, id); err != nil {
		return nil, err
	}
	var m models.Milestone
	err := repository.NewMilestoneRepository(s.db).GetByID(ctx, id, &m,
		repository.Preload("Tasks.Assignee", "Comments.Author"))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *milestoneService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input *MilestoneInput) (*models.Milestone, error) {
	var out *models.Milestone
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		m, _, err := loadVisibleMilestone(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		old := m.Status
		applyMilestone(m, input)
		if m.Status != old {
			switch {
			case m.Status == models.MilestoneCompleted:
				t := now()
				m.CompletedAt = &t
			case old == models.MilestoneCompleted:
				m.CompletedAt = nil
			}
		}
		if err := repository.NewMilestoneRepository(tx).Update(ctx, m); err != nil {
			return err
		}
		out = m
		if m.Status == old {
			return nil
		}
		return repository.NewProjectRepository(tx).RecordStatusChange(ctx, &models.StatusChange{
			EntityType:  models.EntityMilestone,
			EntityID:    m.ID,
			ProjectID:   m.ProjectID,
			OldStatus:   string(old),
			NewStatus:   string(m.Status),
			ChangedByID: actorID(actor),
			ChangedAt:   now(),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("milestone updated", zap.String("milestone_id", id.String()), zap.String("status", string(out.Status)))
	return out, nil
}

func (s *milestoneService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	var files []models.FileAttachment
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, _, err := loadVisibleMilestone(ctx, tx, actor, id); err != nil {
			return err
		}
		tasks := tx.Model(&models.Task{}).Select("id").Where("milestone_id = ?", id)
		if err := tx.Where("milestone_id = ? OR task_id IN (?)", id, tasks).Find(&files).Error; err != nil {
			return err
		}
		if err := repository.NewInventoryRepository(tx).ReleaseUnitsFor(ctx, "milestone_id", id); err != nil {
			return err
		}
		return repository.NewMilestoneRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	removeStoredFiles(ctx, s.store, files)
	logger.L().Info("milestone deleted", zap.String("milestone_id", id.String()))
	return nil
}

func applyMilestone(m *models.Milestone, in *MilestoneInput) {
	setIf(&m.Name, in.Name)
	setIf(&m.Description, in.Description)
	setIf(&m.Category, in.Category)
	setIf(&m.Status, in.Status)
	setIf(&m.Order, in.Order)
	if in.DueDate != nil {
		m.DueDate = in.DueDate
	}
}
