package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/queue/tasks"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestRule(t *testing.T) {
	cases := map[string]string{
		Every10Minutes: "*/10 * * * *",
		Every30Minutes: "*/30 * * * *",
		Hourly:         "0 * * * *",
		Daily:          "0 2 * * *",
		Weekly:         "0 2 * * 0",
	}
	for freq, want := range cases {
		got, err := Rule(freq)
		require.NoError(t, err, freq)
		assert.Equal(t, want, got, freq)
	}

	_, err := Rule("monthly")
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 3, 4, 10, 7, 30, 0, time.UTC) // a Wednesday

	next, err := NextRun(Every10Minutes, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 10, 10, 0, 0, time.UTC), next)

	next, err = NextRun(Hourly, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC), next)

	next, err = NextRun(Daily, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC), next)

	next, err = NextRun(Weekly, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 2, 0, 0, 0, time.UTC), next)
}

func TestSchedulerStartStop(t *testing.T) {
	s := New(TriggerFunc(func(context.Context) error { return nil }))
	assert.False(t, s.Running())
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Start(Hourly))
	assert.True(t, s.Running())
	assert.Equal(t, Hourly, s.Frequency())
	assert.False(t, s.Next().IsZero())

	// re-arming replaces the rule
	require.NoError(t, s.Start(Daily))
	assert.Equal(t, Daily, s.Frequency())

	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, "", s.Frequency())

	require.Error(t, s.Start("yearly"))
	assert.False(t, s.Running())
}

func TestRunOnceCallsHookOnlyOnSuccess(t *testing.T) {
	var hooks int32
	fail := true
	s := New(
		TriggerFunc(func(context.Context) error {
			if fail {
				return errors.New("boom")
			}
			return nil
		}),
		WithSuccessHook(func(_ context.Context, ranAt, next time.Time) {
			atomic.AddInt32(&hooks, 1)
			assert.True(t, next.After(ranAt))
		}),
	)
	require.NoError(t, s.Start(Every10Minutes))
	defer s.Stop()

	assert.False(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hooks))

	fail = false
	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hooks))
}

func TestHTTPTrigger(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/backup/scheduled", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		if auth != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewHTTPTrigger(srv.URL, "s3cret").Fire(context.Background()))
	assert.Equal(t, "Bearer s3cret", auth)

	err := NewHTTPTrigger(srv.URL, "wrong").Fire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestQueueTrigger(t *testing.T) {
	q := &mockEnqueuer{}
	q.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		return task.Type() == tasks.TypeScheduledBackup
	})).Return(&asynq.TaskInfo{ID: "1"}, nil).Once()

	require.NoError(t, (&QueueTrigger{Client: q}).Fire(context.Background()))
	q.AssertExpectations(t)
}
