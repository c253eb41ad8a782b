package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommunicationService interface {
	Create(ctx context.Context, actor *models.User, projectID uuid.UUID, input *CommunicationInput) (*models.Communication, error)
	List(ctx context.Context, actor *models.User, projectID uuid.UUID, filters *CommunicationFilters) ([]models.Communication, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input *CommunicationInput) (*models.Communication, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// Participant is one person on a logged communication.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

type CommunicationInput struct {
	Type         *string
	Direction    *string
	Subject      *string
	Body         *string
	ContactName  *string
	MilestoneID  *uuid.UUID
	OccurredAt   *time.Time
	Participants []Participant
}

type CommunicationFilters struct {
	Type        string
	MilestoneID *uuid.UUID
}

type communicationService struct {
	db   *gorm.DB
	repo repository.BaseRepository[models.Communication]
}

func NewCommunicationService(db *gorm.DB) CommunicationService {
	return &communicationService{db: db, repo: repository.NewBaseRepository[models.Communication](db, "communication")}
}

var _ CommunicationService = (*communicationService)(nil)

func (s *communicationService) Create(ctx context.Context, actor *models.User, projectID uuid.UUID, input *CommunicationInput) (*models.Communication, error) {
	if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, projectID); err != nil {
		return nil, err
	}
	c := &models.Communication{ProjectID: projectID, AuthorID: actorID(actor), Type: models.CommunicationNote, OccurredAt: now()}
	if err := s.apply(ctx, c, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.L().Info("communication logged", zap.String("communication_id", c.ID.String()), zap.String("project_id", projectID.String()), zap.String("type", c.Type))
	return c, nil
}

func (s *communicationService) List(ctx context.Context, actor *models.User, projectID uuid.UUID, filters *CommunicationFilters) ([]models.Communication, error) {
	if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, projectID); err != nil {
		return nil, err
	}
	scopes := []repository.Scope{
		repository.Where("project_id = ?", projectID),
		repository.Preload("Author", "Milestone"),
		repository.OrderBy("occurred_at DESC"),
	}
	if filters != nil && filters.Type != "" {
		scopes = append(scopes, repository.Where("type = ?", filters.Type))
	}
	if filters != nil && filters.MilestoneID != nil {
		scopes = append(scopes, repository.Where("milestone_id = ?", *filters.MilestoneID))
	}
	var out []models.Communication
	if err := s.repo.List(ctx, &out, scopes...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *communicationService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input *CommunicationInput) (*models.Communication, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, c, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *communicationService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *communicationService) load(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Communication, error) {
	var c models.Communication
	if err := s.repo.GetByID(ctx, id, &c); err != nil {
		return nil, err
	}
	if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, c.ProjectID); err != nil {
		return nil, appErr.NotFound("communication not found")
	}
	return &c, nil
}

func (s *communicationService) apply(ctx context.Context, c *models.Communication, in *CommunicationInput) error {
	setIf(&c.Type, in.Type)
	setIf(&c.Direction, in.Direction)
	setIf(&c.Subject, in.Subject)
	setIf(&c.Body, in.Body)
	setIf(&c.ContactName, in.ContactName)
	if in.OccurredAt != nil {
		c.OccurredAt = *in.OccurredAt
	}
	if in.MilestoneID != nil {
		var m models.Milestone
		if err := repository.NewMilestoneRepository(s.db).GetByID(ctx, *in.MilestoneID, &m); err != nil {
			return err
		}
		if m.ProjectID != c.ProjectID {
			return appErr.Invalid("milestone belongs to a different project")
		}
		c.MilestoneID = in.MilestoneID
	}
	if in.Participants != nil {
		b, err := json.Marshal(in.Participants)
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid participants")
		}
		c.Participants = datatypes.JSON(b)
	}
	return nil
}
