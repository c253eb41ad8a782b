package services

import (
	"context"
	"time"

	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/scheduler"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Timer is the part of *scheduler.Scheduler the schedule service drives.
type Timer interface {
	Start(freq string) error
	Stop()
	Running() bool
}

type ScheduleService interface {
	// Get returns the authoritative schedule, or nil when none was ever saved.
	Get(ctx context.Context) (*models.BackupSchedule, error)
	Put(ctx context.Context, actor *models.User, input *ScheduleInput) (*models.BackupSchedule, error)
	Delete(ctx context.Context, actor *models.User) error
	RecordRun(ctx context.Context, ranAt time.Time, runErr error) error
	// Resume arms the timer from the saved schedule; called once at startup.
	Resume(ctx context.Context) error
}

type ScheduleInput struct {
	Enabled   bool
	Frequency string
}

type scheduleService struct {
	db    *gorm.DB
	repo  repository.ScheduleRepository
	timer Timer
}

func NewScheduleService(db *gorm.DB, repo repository.ScheduleRepository, timer Timer) ScheduleService {
	return &scheduleService{db: db, repo: repo, timer: timer}
}

var _ ScheduleService = (*scheduleService)(nil)

func (s *scheduleService) Get(ctx context.Context) (*models.BackupSchedule, error) {
	var bs models.BackupSchedule
	err := s.repo.Latest(ctx, &bs)
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bs, nil
}

func (s *scheduleService) Put(ctx context.Context, actor *models.User, input *ScheduleInput) (*models.BackupSchedule, error) {
	if _, err := scheduler.Rule(input.Frequency); err != nil {
		return nil, err
	}
	var bs models.BackupSchedule
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewScheduleRepository(tx)
		err := repo.Latest(ctx, &bs)
		if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
			return err
		}
		isNew := err != nil
		bs.Enabled = input.Enabled
		bs.Frequency = input.Frequency
		bs.UpdatedByID = actorID(actor)
		bs.NextRun = nil
		if bs.Enabled {
			next, err := scheduler.NextRun(bs.Frequency, now())
			if err != nil {
				return err
			}
			bs.NextRun = &next
		}
		if isNew {
			return repo.Create(ctx, &bs)
		}
		return repo.Update(ctx, &bs)
	})
	if err != nil {
		return nil, err
	}

	if bs.Enabled {
		if err := s.timer.Start(bs.Frequency); err != nil {
			return nil, err
		}
	} else {
		s.timer.Stop()
	}
	logger.L().Info("backup schedule saved",
		zap.Bool("enabled", bs.Enabled),
		zap.String("frequency", bs.Frequency),
		zap.String("user_id", actor.ID.String()))
	return &bs, nil
}

func (s *scheduleService) Delete(ctx context.Context, actor *models.User) error {
	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.BackupSchedule{}).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete backup schedule failed")
	}
	s.timer.Stop()
	logger.L().Info("backup schedule deleted", zap.String("user_id", actor.ID.String()))
	return nil
}

func (s *scheduleService) RecordRun(ctx context.Context, ranAt time.Time, runErr error) error {
	var bs models.BackupSchedule
	err := s.repo.Latest(ctx, &bs)
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	ranAt = ranAt.UTC()
	bs.LastRun = &ranAt
	bs.LastStatus, bs.LastError = RunStatusSuccess, ""
	if runErr != nil {
		bs.LastStatus, bs.LastError = RunStatusFailed, runErr.Error()
	}
	bs.NextRun = nil
	if bs.Enabled {
		if next, err := scheduler.NextRun(bs.Frequency, ranAt); err == nil {
			bs.NextRun = &next
		}
	}
	return s.repo.Update(ctx, &bs)
}

func (s *scheduleService) Resume(ctx context.Context) error {
	bs, err := s.Get(ctx)
	if err != nil || bs == nil || !bs.Enabled {
		return err
	}
	return s.timer.Start(bs.Frequency)
}
