package services

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/storage"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProjectService interface {
	CreateProject(ctx context.Context, actor *models.User, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, actor *models.User, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, actor *models.User, filters *ProjectFilters) ([]models.Project, error)
	UpdateProject(ctx context.Context, actor *models.User, projectID uuid.UUID, input *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, actor *models.User, projectID uuid.UUID) error
	StatusHistory(ctx context.Context, actor *models.User, projectID uuid.UUID) ([]models.StatusChange, error)
}

type ProjectFields struct {
	Description  *string
	Status       *models.ProjectStatus
	JobTypeID    *uuid.UUID
	OwnerID      *uuid.UUID
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
	Address      *string
	City         *string
	State        *string
	Zip          *string
	PlaceID      *string
	Latitude     *float64
	Longitude    *float64
	StartDate    *time.Time
	DueDate      *time.Time
}

type CreateProjectInput struct {
	Name string
	ProjectFields
	TemplateID         *uuid.UUID
	UseDefaultTemplate bool
}

type UpdateProjectInput struct {
	Name *string
	ProjectFields
}

type ProjectFilters struct {
	Status    string
	JobTypeID *uuid.UUID
	Search    string
}

type projectService struct {
	db          *gorm.DB
	projectRepo repository.ProjectRepository
	store       storage.Storage
}

func NewProjectService(db *gorm.DB, projectRepo repository.ProjectRepository, store storage.Storage) ProjectService {
	return &projectService{db: db, projectRepo: projectRepo, store: store}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) CreateProject(ctx context.Context, actor *models.User, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project called", zap.String("user_id", actor.ID.String()), zap.String("name", input.Name))

	p := &models.Project{Name: input.Name, Status: models.ProjectInitialContact, OwnerID: actorID(actor)}
	if err := s.applyFields(ctx, s.db, actor, p, &input.ProjectFields); err != nil {
		return nil, err
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repository.NewProjectRepository(tx).Create(ctx, p); err != nil {
			return err
		}
		tmpl, err := resolveTemplate(ctx, tx, input.TemplateID, input.UseDefaultTemplate)
		if err != nil || tmpl == nil {
			return err
		}
		return instantiateTemplate(ctx, tx, p.ID, tmpl)
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("project created", zap.String("project_id", p.ID.String()), zap.String("user_id", actor.ID.String()))
	return s.GetProject(ctx, actor, p.ID)
}

func (s *projectService) GetProject(ctx context.Context, actor *models.User, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetDetailed(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if !canSeeProject(actor, &p) {
		return nil, appErr.NotFound("project not found")
	}
	n, err := repository.NewBaseRepository[models.Communication](s.db, "communication").
		Count(ctx, repository.Where("project_id = ?", projectID))
	if err != nil {
		return nil, err
	}
	p.CommunicationCount = n
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, actor *models.User, filters *ProjectFilters) ([]models.Project, error) {
	f := repository.ProjectFilter{OwnerID: ownerScope(actor)}
	if filters != nil {
		f.Status, f.JobTypeID, f.Search = filters.Status, filters.JobTypeID, filters.Search
	}
	return s.projectRepo.ListFiltered(ctx, f)
}

func (s *projectService) UpdateProject(ctx context.Context, actor *models.User, projectID uuid.UUID, input *UpdateProjectInput) (*models.Project, error) {
	logger.L().Info("update project", zap.String("project_id", projectID.String()), zap.String("user_id", actor.ID.String()))

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewProjectRepository(tx)
		p, err := loadVisibleProject(ctx, repo, actor, projectID)
		if err != nil {
			return err
		}
		oldStatus := p.Status
		if input.Name != nil {
			p.Name = *input.Name
		}
		if err := s.applyFields(ctx, tx, actor, p, &input.ProjectFields); err != nil {
			return err
		}
		if err := repo.Update(ctx, p); err != nil {
			return err
		}
		if p.Status == oldStatus {
			return nil
		}
		return repo.RecordStatusChange(ctx, &models.StatusChange{
			EntityType:  models.EntityProject,
			EntityID:    p.ID,
			ProjectID:   p.ID,
			OldStatus:   string(oldStatus),
			NewStatus:   string(p.Status),
			ChangedByID: actorID(actor),
			ChangedAt:   now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, actor, projectID)
}

func (s *projectService) DeleteProject(ctx context.Context, actor *models.User, projectID uuid.UUID) error {
	logger.L().Info("delete project", zap.String("project_id", projectID.String()), zap.String("user_id", actor.ID.String()))

	var files []models.FileAttachment
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewProjectRepository(tx)
		if _, err := loadVisibleProject(ctx, repo, actor, projectID); err != nil {
			return err
		}
		if err := projectFiles(ctx, tx, projectID, &files); err != nil {
			return err
		}
		if err := repository.NewInventoryRepository(tx).ReleaseUnitsFor(ctx, "project_id", projectID); err != nil {
			return err
		}
		return repo.Delete(ctx, projectID)
	})
	if err != nil {
		return err
	}
	removeStoredFiles(ctx, s.store, files)
	logger.L().Info("project deleted", zap.String("project_id", projectID.String()), zap.Int("files", len(files)))
	return nil
}

func (s *projectService) StatusHistory(ctx context.Context, actor *models.User, projectID uuid.UUID) ([]models.StatusChange, error) {
	if _, err := loadVisibleProject(ctx, s.projectRepo, actor, projectID); err != nil {
		return nil, err
	}
	return s.projectRepo.StatusHistory(ctx, projectID)
}

func (s *projectService) applyFields(ctx context.Context, db *gorm.DB, actor *models.User, p *models.Project, f *ProjectFields) error {
	if f.JobTypeID != nil {
		var jt models.JobType
		if err := repository.NewJobTypeRepository(db).GetByID(ctx, *f.JobTypeID, &jt); err != nil {
			return err
		}
		p.JobTypeID = f.JobTypeID
	}
	if f.OwnerID != nil {
		if !actor.IsAdmin() {
			return appErr.New(appErr.CodeForbidden, "only admins can reassign projects")
		}
		var owner models.User
		if err := repository.NewUserRepository(db).GetByID(ctx, *f.OwnerID, &owner); err != nil {
			return err
		}
		p.OwnerID = f.OwnerID
	}
	setIf(&p.Description, f.Description)
	setIf(&p.ContactName, f.ContactName)
	setIf(&p.ContactEmail, f.ContactEmail)
	setIf(&p.ContactPhone, f.ContactPhone)
	setIf(&p.Address, f.Address)
	setIf(&p.City, f.City)
	setIf(&p.State, f.State)
	setIf(&p.Zip, f.Zip)
	setIf(&p.PlaceID, f.PlaceID)
	if f.Status != nil {
		if !slices.Contains(models.ProjectStatuses, *f.Status) {
			return appErr.Newf(appErr.CodeInvalid, "unknown project status %q", *f.Status)
		}
		p.Status = *f.Status
	}
	if f.Latitude != nil {
		p.Latitude = f.Latitude
	}
	if f.Longitude != nil {
		p.Longitude = f.Longitude
	}
	if f.StartDate != nil {
		p.StartDate = f.StartDate
	}
	if f.DueDate != nil {
		p.DueDate = f.DueDate
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// projectFiles collects every attachment under the project, its milestones and their tasks.
func projectFiles(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, dest *[]models.FileAttachment) error {
	milestones := tx.Model(&models.Milestone{}).Select("id").Where("project_id = ?", projectID)
	tasks := tx.Model(&models.Task{}).Select("id").Where("milestone_id IN (?)", milestones)
	err := tx.WithContext(ctx).
		Where("project_id = ? OR milestone_id IN (?) OR task_id IN (?)", projectID, milestones, tasks).
		Find(dest).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "list project files failed")
	}
	return nil
}

// removeStoredFiles deletes objects after their rows are gone; failures only log.
func removeStoredFiles(ctx context.Context, store storage.Storage, files []models.FileAttachment) {
	if store == nil {
		return
	}
	for _, f := range files {
		if f.StorageDriver != store.Driver() {
			continue
		}
		if err := store.Delete(ctx, f.StorageKey); err != nil {
			logger.L().Warn("delete stored file failed", zap.String("file_id", f.ID.String()), zap.Error(err))
		}
	}
}
