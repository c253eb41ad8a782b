package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
)

type JobTypeService interface {
	List(ctx context.Context) ([]models.JobType, error)
	Create(ctx context.Context, input *JobTypeInput) (*models.JobType, error)
	Update(ctx context.Context, id uuid.UUID, input *JobTypeInput) (*models.JobType, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type JobTypeInput struct {
	Name        *string
	Description *string
	Color       *string
}

type jobTypeService struct {
	repo repository.JobTypeRepository
}

func NewJobTypeService(repo repository.JobTypeRepository) JobTypeService {
	return &jobTypeService{repo: repo}
}

func (s *jobTypeService) List(ctx context.Context) ([]models.JobType, error) {
	var out []models.JobType
	if err := s.repo.List(ctx, &out, repository.OrderBy("name ASC")); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *jobTypeService) Create(ctx context.Context, input *JobTypeInput) (*models.JobType, error) {
	jt := &models.JobType{}
	setIf(&jt.Name, input.Name)
	setIf(&jt.Description, input.Description)
	setIf(&jt.Color, input.Color)
	if jt.Name == "" {
		return nil, appErr.Invalid("name is required")
	}
	if err := s.repo.Create(ctx, jt); err != nil {
		return nil, err
	}
	return jt, nil
}

func (s *jobTypeService) Update(ctx context.Context, id uuid.UUID, input *JobTypeInput) (*models.JobType, error) {
	var jt models.JobType
	if err := s.repo.GetByID(ctx, id, &jt); err != nil {
		return nil, err
	}
	setIf(&jt.Name, input.Name)
	setIf(&jt.Description, input.Description)
	setIf(&jt.Color, input.Color)
	if err := s.repo.Update(ctx, &jt); err != nil {
		return nil, err
	}
	return &jt, nil
}

func (s *jobTypeService) Delete(ctx context.Context, id uuid.UUID) error {
	var jt models.JobType
	if err := s.repo.GetByID(ctx, id, &jt); err != nil {
		return err
	}
	items, projects, err := s.repo.Usage(ctx, id)
	if err != nil {
		return err
	}
	if items > 0 || projects > 0 {
		return appErr.Invalid(fmt.Sprintf("job type %q is in use by %d inventory items and %d projects", jt.Name, items, projects))
	}
	return s.repo.Delete(ctx, id)
}
