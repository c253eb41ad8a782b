package repository

import (
	"context"

	"github.com/voltworks/portal/internal/models"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	BaseRepository[models.BackupSchedule]
	// Latest returns the most recently created schedule, which is the authoritative one.
	Latest(ctx context.Context, dest *models.BackupSchedule) error
}

type scheduleRepository struct {
	BaseRepository[models.BackupSchedule]
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{BaseRepository: NewBaseRepository[models.BackupSchedule](db, "backup schedule"), db: db}
}

func (r *scheduleRepository) Latest(ctx context.Context, dest *models.BackupSchedule) error {
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").First(dest).Error; err != nil {
		return translate(err, "backup schedule", "get")
	}
	return nil
}
