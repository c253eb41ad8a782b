package services

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/storage"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileTarget names the owner of an attachment; the most specific id wins.
type FileTarget struct {
	ProjectID   *uuid.UUID
	MilestoneID *uuid.UUID
	TaskID      *uuid.UUID
}

type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type FileService interface {
	Upload(ctx context.Context, actor *models.User, target FileTarget, input *UploadInput) (*models.FileAttachment, error)
	List(ctx context.Context, actor *models.User, target FileTarget) ([]models.FileAttachment, error)
	Open(ctx context.Context, actor *models.User, id uuid.UUID) (*models.FileAttachment, io.ReadCloser, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

type fileService struct {
	db    *gorm.DB
	repo  repository.BaseRepository[models.FileAttachment]
	store storage.Storage
}

func NewFileService(db *gorm.DB, store storage.Storage) FileService {
	return &fileService{db: db, repo: repository.NewBaseRepository[models.FileAttachment](db, "file"), store: store}
}

var _ FileService = (*fileService)(nil)

// resolve checks visibility and returns the normalized target plus its project id.
func (s *fileService) resolve(ctx context.Context, actor *models.User, target FileTarget) (FileTarget, uuid.UUID, error) {
	switch {
	case target.TaskID != nil:
		_, m, err := loadVisibleTask(ctx, s.db, actor, *target.TaskID)
		if err != nil {
			return target, uuid.Nil, err
		}
		return FileTarget{TaskID: target.TaskID}, m.ProjectID, nil
	case target.MilestoneID != nil:
		m, _, err := loadVisibleMilestone(ctx, s.db, actor, *target.MilestoneID)
		if err != nil {
			return target, uuid.Nil, err
		}
		return FileTarget{MilestoneID: target.MilestoneID}, m.ProjectID, nil
	case target.ProjectID != nil:
		p, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, *target.ProjectID)
		if err != nil {
			return target, uuid.Nil, err
		}
		return FileTarget{ProjectID: target.ProjectID}, p.ID, nil
	default:
		return target, uuid.Nil, appErr.Invalid("file target is required")
	}
}

func (s *fileService) Upload(ctx context.Context, actor *models.User, target FileTarget, input *UploadInput) (*models.FileAttachment, error) {
	target, projectID, err := s.resolve(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	key := storage.NewKey("projects/"+projectID.String(), input.Name)
	stored, err := s.store.Put(ctx, key, input.Body, input.Size, input.ContentType)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "store file failed")
	}
	f := &models.FileAttachment{
		ProjectID:     target.ProjectID,
		MilestoneID:   target.MilestoneID,
		TaskID:        target.TaskID,
		Name:          input.Name,
		StorageDriver: s.store.Driver(),
		StorageKey:    stored,
		Size:          input.Size,
		MimeType:      input.ContentType,
		UploadedByID:  actorID(actor),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if derr := s.store.Delete(ctx, stored); derr != nil {
			logger.L().Warn("cleanup stored file failed", zap.String("key", stored), zap.Error(derr))
		}
		return nil, err
	}
	logger.L().Info("file uploaded", zap.String("file_id", f.ID.String()), zap.String("driver", f.StorageDriver), zap.Int64("size", f.Size))
	return f, nil
}

func (s *fileService) List(ctx context.Context, actor *models.User, target FileTarget) ([]models.FileAttachment, error) {
	target, _, err := s.resolve(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	var scope repository.Scope
	switch {
	case target.TaskID != nil:
		scope = repository.Where("task_id = ?", *target.TaskID)
	case target.MilestoneID != nil:
		scope = repository.Where("milestone_id = ?", *target.MilestoneID)
	default:
		scope = repository.Where("project_id = ?", *target.ProjectID)
	}
	var out []models.FileAttachment
	if err := s.repo.List(ctx, &out, scope, repository.Preload("UploadedBy"), repository.OrderBy("created_at DESC")); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileService) load(ctx context.Context, actor *models.User, id uuid.UUID) (*models.FileAttachment, error) {
	var f models.FileAttachment
	if err := s.repo.GetByID(ctx, id, &f); err != nil {
		return nil, err
	}
	if _, _, err := s.resolve(ctx, actor, FileTarget{ProjectID: f.ProjectID, MilestoneID: f.MilestoneID, TaskID: f.TaskID}); err != nil {
		return nil, appErr.NotFound("file not found")
	}
	return &f, nil
}

func (s *fileService) Open(ctx context.Context, actor *models.User, id uuid.UUID) (*models.FileAttachment, io.ReadCloser, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if f.StorageDriver != s.store.Driver() {
		return nil, nil, appErr.Newf(appErr.CodeUnavailable, "file is stored on %s, which is not the active storage", f.StorageDriver)
	}
	rc, err := s.store.Open(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

func (s *fileService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	removeStoredFiles(ctx, s.store, []models.FileAttachment{*f})
	return nil
}
