package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newBackupService(t *testing.T) (BackupService, *gorm.DB, string) {
	db, path := testutil.NewFileDB(t)
	svc := NewBackupService(db, BackupConfig{
		DatabasePath: path,
		Dir:          filepath.Join(t.TempDir(), "backups"),
		Secret:       "scheduled-secret",
	}, repository.NewUserRepository(db), nil)
	return svc, db, path
}

func TestBackup_CreateWritesDatabaseAndMetadata(t *testing.T) {
	svc, db, path := newBackupService(t)
	testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)

	archive, err := svc.Create(ctx, BackupTypeManual)
	require.NoError(t, err)
	assert.Regexp(t, `^backup-\d{8}-\d{6}\.zip$`, archive.Name)

	zr, err := zip.OpenReader(archive.Path)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	require.Contains(t, names, filepath.Base(path))
	require.Contains(t, names, metadataEntry)

	var meta BackupMetadata
	rc, err := names[metadataEntry].Open()
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(rc).Decode(&meta))
	rc.Close()
	assert.Equal(t, BackupFormatVersion, meta.Version)
	assert.Equal(t, path, meta.DatabasePath)
	assert.Equal(t, BackupTypeManual, meta.Type)
	assert.Len(t, meta.Checksum, 64)

	// a second backup in the same second gets a distinct name
	again, err := svc.Create(ctx, BackupTypeManual)
	require.NoError(t, err)
	assert.NotEqual(t, archive.Name, again.Name)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Delete(again.Name))
	requireCode(t, svc.Delete(again.Name), appErr.CodeNotFound)
	requireCode(t, svc.Delete("../portal.db"), appErr.CodeInvalid)
}

func TestBackup_RestoreReplacesDatabase(t *testing.T) {
	svc, db, path := newBackupService(t)
	testutil.CreateUser(t, db, "before@example.com", models.RoleAdmin)

	archive, err := svc.Create(ctx, BackupTypeManual)
	require.NoError(t, err)
	testutil.CreateUser(t, db, "after@example.com", models.RoleUser)

	data, err := os.ReadFile(archive.Path)
	require.NoError(t, err)
	res, err := svc.Restore(ctx, bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.True(t, res.NeedRestart)
	_, err = os.Stat(filepath.Join(filepath.Dir(path), res.PreRestore))
	require.NoError(t, err)

	restored, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := restored.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var emails []string
	require.NoError(t, restored.Model(&models.User{}).Pluck("email", &emails).Error)
	assert.Equal(t, []string{"before@example.com"}, emails)
}

func TestBackup_RestoreRejectsArchivesWithoutDatabase(t *testing.T) {
	svc, _, _ := newBackupService(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = svc.Restore(ctx, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	requireCode(t, err, appErr.CodeInvalid)

	_, err = svc.Restore(ctx, bytes.NewReader([]byte("not a zip")), 9)
	requireCode(t, err, appErr.CodeInvalid)
}

func TestBackup_RequiresSQLite(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewBackupService(db, BackupConfig{Dir: t.TempDir()}, repository.NewUserRepository(db), nil)
	_, err := svc.Create(ctx, BackupTypeManual)
	requireCode(t, err, appErr.CodeInvalid)
}

func TestBackup_CheckSecret(t *testing.T) {
	svc, _, _ := newBackupService(t)
	assert.True(t, svc.CheckSecret("scheduled-secret"))
	assert.False(t, svc.CheckSecret("scheduled-secreT"))
	assert.False(t, svc.CheckSecret(""))

	open := NewBackupService(nil, BackupConfig{}, nil, nil)
	assert.False(t, open.CheckSecret(""))
}

func TestBackup_ScheduledWithoutAdminStillArchives(t *testing.T) {
	svc, _, _ := newBackupService(t)
	archive, err := svc.RunScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, BackupTypeScheduled, archive.Metadata.Type)
}
