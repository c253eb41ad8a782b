package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

const TypeScheduledBackup = "backup:scheduled"

// BackupPayload is the task payload for scheduled backups.
type BackupPayload struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func NewScheduledBackupTask(at time.Time) (*asynq.Task, error) {
	b, err := json.Marshal(BackupPayload{ScheduledAt: at})
	if err != nil {
		return nil, fmt.Errorf("marshal backup payload: %w", err)
	}
	return asynq.NewTask(TypeScheduledBackup, b), nil
}

// BackupRunner performs the scheduled backup flow.
type BackupRunner interface {
	RunScheduledBackup(ctx context.Context) error
}

// RunRecorder stores the outcome of a run on the active schedule.
type RunRecorder interface {
	RecordRun(ctx context.Context, ranAt time.Time, runErr error) error
}

// BackupTaskHandler handles scheduled backup tasks.
type BackupTaskHandler struct {
	runner   BackupRunner
	recorder RunRecorder
}

func NewBackupTaskHandler(runner BackupRunner, recorder RunRecorder) *BackupTaskHandler {
	return &BackupTaskHandler{runner: runner, recorder: recorder}
}

func (h *BackupTaskHandler) HandleScheduledBackup(ctx context.Context, t *asynq.Task) error {
	var p BackupPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid backup task payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	logger.L().Info("handling scheduled backup", zap.Time("scheduled_at", p.ScheduledAt))
	ranAt := time.Now().UTC()
	runErr := h.runner.RunScheduledBackup(ctx)
	if runErr != nil {
		logger.L().Error("scheduled backup failed", zap.Error(runErr))
	}
	if err := h.recorder.RecordRun(ctx, ranAt, runErr); err != nil {
		logger.L().Warn("record backup run failed", zap.Error(err))
	}
	if runErr != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, runErr)
	}
	return nil
}
