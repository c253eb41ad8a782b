package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CalendarService interface {
	List(ctx context.Context, actor *models.User, q *EventQuery) ([]models.CalendarEvent, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.CalendarEvent, error)
	Create(ctx context.Context, actor *models.User, input *EventInput) (*models.CalendarEvent, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input *EventInput) (*models.CalendarEvent, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// EventQuery selects events overlapping [From, To).
type EventQuery struct {
	From      *time.Time
	To        *time.Time
	ProjectID *uuid.UUID
	Type      string
}

type EventInput struct {
	Title       *string
	Description *string
	Type        *string
	StartAt     *time.Time
	EndAt       *time.Time
	AllDay      *bool
	Location    *string
	ProjectID   *uuid.UUID
	MilestoneID *uuid.UUID
	Attendees   []string
}

type calendarService struct {
	db   *gorm.DB
	repo repository.BaseRepository[models.CalendarEvent]
}

func NewCalendarService(db *gorm.DB) CalendarService {
	return &calendarService{db: db, repo: repository.NewBaseRepository[models.CalendarEvent](db, "event")}
}

var _ CalendarService = (*calendarService)(nil)

func (s *calendarService) List(ctx context.Context, actor *models.User, q *EventQuery) ([]models.CalendarEvent, error) {
	scopes := []repository.Scope{repository.Preload("Project"), repository.OrderBy("start_at ASC")}
	if q.From != nil {
		scopes = append(scopes, repository.Where("end_at >= ?", *q.From))
	}
	if q.To != nil {
		scopes = append(scopes, repository.Where("start_at < ?", *q.To))
	}
	if q.ProjectID != nil {
		scopes = append(scopes, repository.Where("project_id = ?", *q.ProjectID))
	}
	if q.Type != "" {
		scopes = append(scopes, repository.Where("type = ?", q.Type))
	}
	if !actor.IsAdmin() {
		owned := s.db.Model(&models.Project{}).Select("id").Where("owner_id = ?", actor.ID)
		scopes = append(scopes, repository.Where("project_id IN (?) OR (project_id IS NULL AND created_by_id = ?)", owned, actor.ID))
	}
	var out []models.CalendarEvent
	if err := s.repo.List(ctx, &out, scopes...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *calendarService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	if err := s.repo.GetByID(ctx, id, &e, repository.Preload("Project")); err != nil {
		return nil, err
	}
	if !s.visible(actor, &e) {
		return nil, appErr.NotFound("event not found")
	}
	return &e, nil
}

func (s *calendarService) visible(actor *models.User, e *models.CalendarEvent) bool {
	if actor.IsAdmin() {
		return true
	}
	if e.Project != nil {
		return canSeeProject(actor, e.Project)
	}
	return e.CreatedByID != nil && *e.CreatedByID == actor.ID
}

func (s *calendarService) Create(ctx context.Context, actor *models.User, input *EventInput) (*models.CalendarEvent, error) {
	e := &models.CalendarEvent{Type: models.EventOther, CreatedByID: actorID(actor)}
	if err := s.apply(ctx, actor, e, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *calendarService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input *EventInput) (*models.CalendarEvent, error) {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	e.Project = nil
	if err := s.apply(ctx, actor, e, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *calendarService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *calendarService) apply(ctx context.Context, actor *models.User, e *models.CalendarEvent, in *EventInput) error {
	setIf(&e.Title, in.Title)
	setIf(&e.Description, in.Description)
	setIf(&e.Type, in.Type)
	setIf(&e.StartAt, in.StartAt)
	setIf(&e.EndAt, in.EndAt)
	setIf(&e.AllDay, in.AllDay)
	setIf(&e.Location, in.Location)
	if e.EndAt.IsZero() {
		e.EndAt = e.StartAt
	}
	if e.StartAt.IsZero() {
		return appErr.Invalid("start is required")
	}
	if e.EndAt.Before(e.StartAt) {
		return appErr.Invalid("end must not be before start")
	}
	if in.ProjectID != nil {
		if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, *in.ProjectID); err != nil {
			return err
		}
		e.ProjectID = in.ProjectID
	}
	if in.MilestoneID != nil {
		m, _, err := loadVisibleMilestone(ctx, s.db, actor, *in.MilestoneID)
		if err != nil {
			return err
		}
		if e.ProjectID != nil && *e.ProjectID != m.ProjectID {
			return appErr.Invalid("milestone belongs to a different project")
		}
		e.MilestoneID = in.MilestoneID
		e.ProjectID = &m.ProjectID
	}
	if in.Attendees != nil {
		b, err := json.Marshal(in.Attendees)
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid attendees")
		}
		e.Attendees = datatypes.JSON(b)
	}
	return nil
}
