package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voltworks/portal/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunScheduledBackup(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordRun(ctx context.Context, ranAt time.Time, runErr error) error {
	args := m.Called(ctx, ranAt, runErr)
	return args.Error(0)
}

func TestNewScheduledBackupTask(t *testing.T) {
	at := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	task, err := NewScheduledBackupTask(at)
	require.NoError(t, err)
	require.Equal(t, TypeScheduledBackup, task.Type())

	var p BackupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	require.True(t, p.ScheduledAt.Equal(at))
}

func TestBackupTaskHandler_HandleScheduledBackup(t *testing.T) {
	t.Run("successful backup", func(t *testing.T) {
		runner := &mockRunner{}
		recorder := &mockRecorder{}
		handler := NewBackupTaskHandler(runner, recorder)

		task, err := NewScheduledBackupTask(time.Now())
		require.NoError(t, err)

		runner.On("RunScheduledBackup", mock.Anything).Return(nil).Once()
		recorder.On("RecordRun", mock.Anything, mock.AnythingOfType("time.Time"), nil).Return(nil).Once()

		require.NoError(t, handler.HandleScheduledBackup(context.Background(), task))
		mock.AssertExpectationsForObjects(t, runner, recorder)
	})

	t.Run("backup failure is recorded and not retried", func(t *testing.T) {
		runner := &mockRunner{}
		recorder := &mockRecorder{}
		handler := NewBackupTaskHandler(runner, recorder)

		task, err := NewScheduledBackupTask(time.Now())
		require.NoError(t, err)

		boom := errors.New("disk full")
		runner.On("RunScheduledBackup", mock.Anything).Return(boom).Once()
		recorder.On("RecordRun", mock.Anything, mock.AnythingOfType("time.Time"), boom).Return(nil).Once()

		err = handler.HandleScheduledBackup(context.Background(), task)
		require.Error(t, err)
		require.ErrorIs(t, err, asynq.SkipRetry)
		mock.AssertExpectationsForObjects(t, runner, recorder)
	})

	t.Run("bad payload", func(t *testing.T) {
		runner := &mockRunner{}
		recorder := &mockRecorder{}
		handler := NewBackupTaskHandler(runner, recorder)

		err := handler.HandleScheduledBackup(context.Background(), asynq.NewTask(TypeScheduledBackup, []byte("{")))
		require.ErrorIs(t, err, asynq.SkipRetry)
		runner.AssertNotCalled(t, "RunScheduledBackup", mock.Anything)
	})
}
