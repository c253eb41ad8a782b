package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/scheduler"
	"github.com/voltworks/portal/internal/testutil"
	appErr "github.com/voltworks/portal/pkg/errors"
)

type fakeTimer struct {
	freq    string
	running bool
	starts  int
}

func (f *fakeTimer) Start(freq string) error {
	f.freq, f.running = freq, true
	f.starts++
	return nil
}

func (f *fakeTimer) Stop()         { f.freq, f.running = "", false }
func (f *fakeTimer) Running() bool { return f.running }

func TestSchedule_UpsertLatestAndArm(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	timer := &fakeTimer{}
	svc := NewScheduleService(db, repository.NewScheduleRepository(db), timer)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	bs, err := svc.Put(ctx, admin, &ScheduleInput{Enabled: true, Frequency: scheduler.Daily})
	require.NoError(t, err)
	require.NotNil(t, bs.NextRun)
	assert.True(t, bs.NextRun.After(time.Now()))
	assert.True(t, timer.Running())
	assert.Equal(t, scheduler.Daily, timer.freq)

	bs2, err := svc.Put(ctx, admin, &ScheduleInput{Enabled: true, Frequency: scheduler.Hourly})
	require.NoError(t, err)
	assert.Equal(t, bs.ID, bs2.ID)
	assert.Equal(t, scheduler.Hourly, timer.freq)

	var n int64
	require.NoError(t, db.Model(&models.BackupSchedule{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	bs3, err := svc.Put(ctx, admin, &ScheduleInput{Enabled: false, Frequency: scheduler.Hourly})
	require.NoError(t, err)
	assert.Nil(t, bs3.NextRun)
	assert.False(t, timer.Running())

	_, err = svc.Put(ctx, admin, &ScheduleInput{Enabled: true, Frequency: "fortnightly"})
	requireCode(t, err, appErr.CodeInvalid)
	assert.False(t, timer.Running())
}

func TestSchedule_LatestRowIsAuthoritative(t *testing.T) {
	db := testutil.NewTestDB(t)
	older := &models.BackupSchedule{Enabled: false, Frequency: scheduler.Weekly}
	require.NoError(t, db.Create(older).Error)
	newer := &models.BackupSchedule{Enabled: true, Frequency: scheduler.Every30Minutes}
	newer.CreatedAt = older.CreatedAt.Add(time.Second)
	require.NoError(t, db.Create(newer).Error)

	timer := &fakeTimer{}
	svc := NewScheduleService(db, repository.NewScheduleRepository(db), timer)
	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	require.NoError(t, svc.Resume(ctx))
	assert.Equal(t, scheduler.Every30Minutes, timer.freq)
}

func TestSchedule_RecordRunAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	timer := &fakeTimer{}
	svc := NewScheduleService(db, repository.NewScheduleRepository(db), timer)

	require.NoError(t, svc.RecordRun(ctx, time.Now(), nil))

	_, err := svc.Put(ctx, admin, &ScheduleInput{Enabled: true, Frequency: scheduler.Every10Minutes})
	require.NoError(t, err)

	ranAt := time.Date(2026, 5, 1, 9, 10, 0, 0, time.UTC)
	require.NoError(t, svc.RecordRun(ctx, ranAt, errors.New("upload failed")))
	bs, err := svc.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, bs.LastRun)
	assert.True(t, bs.LastRun.Equal(ranAt))
	assert.Equal(t, RunStatusFailed, bs.LastStatus)
	assert.Equal(t, "upload failed", bs.LastError)
	require.NotNil(t, bs.NextRun)
	assert.True(t, bs.NextRun.Equal(ranAt.Add(10*time.Minute)))

	require.NoError(t, svc.RecordRun(ctx, ranAt, nil))
	bs, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSuccess, bs.LastStatus)
	assert.Empty(t, bs.LastError)

	require.NoError(t, svc.Delete(ctx, admin))
	assert.False(t, timer.Running())
	bs, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, bs)
}
