package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

type JobTypeRepository interface {
	BaseRepository[models.JobType]
	GetByName(ctx context.Context, name string, dest *models.JobType) error
	// Usage counts items and projects referencing the job type.
	Usage(ctx context.Context, id uuid.UUID) (items, projects int64, err error)
}

type jobTypeRepository struct {
	BaseRepository[models.JobType]
	db *gorm.DB
}

func NewJobTypeRepository(db *gorm.DB) JobTypeRepository {
	return &jobTypeRepository{BaseRepository: NewBaseRepository[models.JobType](db, "job type"), db: db}
}

func (r *jobTypeRepository) GetByName(ctx context.Context, name string, dest *models.JobType) error {
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(dest).Error; err != nil {
		return translate(err, "job type", "get")
	}
	return nil
}

func (r *jobTypeRepository) Usage(ctx context.Context, id uuid.UUID) (int64, int64, error) {
	var items, projects int64
	if err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("job_type_id = ?", id).Count(&items).Error; err != nil {
		return 0, 0, appErr.Wrap(err, appErr.CodeInternal, "count job type items failed")
	}
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("job_type_id = ?", id).Count(&projects).Error; err != nil {
		return 0, 0, appErr.Wrap(err, appErr.CodeInternal, "count job type projects failed")
	}
	return items, projects, nil
}
