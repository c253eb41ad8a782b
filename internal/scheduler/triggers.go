package scheduler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/voltworks/portal/internal/queue/tasks"
)

// HTTPTrigger posts to the scheduled backup endpoint with the shared secret.
type HTTPTrigger struct {
	URL    string
	Secret string
	Client *http.Client
}

func NewHTTPTrigger(baseURL, secret string) *HTTPTrigger {
	return &HTTPTrigger{
		URL:    baseURL + "/api/admin/backup/scheduled",
		Secret: secret,
		Client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (t *HTTPTrigger) Fire(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.Secret)
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post scheduled backup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("scheduled backup endpoint returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Enqueuer is the part of *asynq.Client the queue trigger needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueTrigger hands the backup to the worker through asynq.
type QueueTrigger struct {
	Client Enqueuer
}

func (t *QueueTrigger) Fire(ctx context.Context) error {
	task, err := tasks.NewScheduledBackupTask(time.Now().UTC())
	if err != nil {
		return err
	}
	if _, err := t.Client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Timeout(30*time.Minute)); err != nil {
		return fmt.Errorf("enqueue scheduled backup: %w", err)
	}
	return nil
}
