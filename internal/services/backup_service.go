package services

import (
	"archive/zip"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/voltworks/portal/internal/integrations/msgraph"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"github.com/voltworks/portal/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	BackupFormatVersion = "1.0"
	BackupTypeManual    = "manual"
	BackupTypeScheduled = "scheduled"

	backupTimeLayout = "20060102-150405"
	metadataEntry    = "metadata.json"
)

type BackupService interface {
	// Create snapshots the database into a new archive under the backup directory.
	Create(ctx context.Context, backupType string) (*BackupArchive, error)
	// Upload copies an archive to SharePoint using the admin's delegated token.
	Upload(ctx context.Context, admin *models.User, archive *BackupArchive) (*msgraph.DriveItem, error)
	// RunScheduled creates a scheduled backup and uploads it as the designated admin.
	RunScheduled(ctx context.Context) (*BackupArchive, error)
	RunScheduledBackup(ctx context.Context) error
	Restore(ctx context.Context, r io.ReaderAt, size int64) (*RestoreResult, error)
	List(ctx context.Context) ([]BackupArchive, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	// CheckSecret compares the shared secret for the scheduled backup endpoint.
	CheckSecret(token string) bool
}

type BackupMetadata struct {
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	DatabasePath string    `json:"databasePath"`
	Checksum     string    `json:"checksum"`
	Type         string    `json:"type,omitempty"`
}

type BackupArchive struct {
	Name      string          `json:"name"`
	Size      int64           `json:"size"`
	CreatedAt time.Time       `json:"createdAt"`
	Path      string          `json:"-"`
	Metadata  *BackupMetadata `json:"metadata,omitempty"`
}

type RestoreResult struct {
	Message     string          `json:"message"`
	PreRestore  string          `json:"preRestore"`
	Metadata    *BackupMetadata `json:"metadata,omitempty"`
	NeedRestart bool            `json:"restartRequired"`
}

type BackupConfig struct {
	// DatabasePath is empty when the database is not SQLite.
	DatabasePath string
	Dir          string
	DriveID      string
	Folder       string
	Secret       string
	AdminEmail   string
}

type backupService struct {
	db    *gorm.DB
	cfg   BackupConfig
	users repository.UserRepository
	auth  AuthService
}

func NewBackupService(db *gorm.DB, cfg BackupConfig, users repository.UserRepository, auth AuthService) BackupService {
	return &backupService{db: db, cfg: cfg, users: users, auth: auth}
}

var _ BackupService = (*backupService)(nil)

var errNotSQLite = appErr.Invalid("backups are only supported for the SQLite database driver")

func (s *backupService) Create(ctx context.Context, backupType string) (*BackupArchive, error) {
	if s.cfg.DatabasePath == "" {
		return nil, errNotSQLite
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o750); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create backup directory failed")
	}

	// VACUUM INTO gives a consistent copy without stopping writers.
	snap, err := os.CreateTemp(s.cfg.Dir, ".snapshot-*.db")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create snapshot file failed")
	}
	snapPath := snap.Name()
	snap.Close()
	os.Remove(snapPath)
	defer os.Remove(snapPath)
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", snapPath).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "snapshot database failed")
	}

	sum, err := utils.FileSHA256(snapPath)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "checksum snapshot failed")
	}
	ts := now()
	meta := &BackupMetadata{
		Timestamp:    ts,
		Version:      BackupFormatVersion,
		DatabasePath: s.cfg.DatabasePath,
		Checksum:     sum,
		Type:         backupType,
	}

	out, name, err := s.createArchiveFile(ts)
	if err != nil {
		return nil, err
	}
	archivePath := out.Name()
	if err := writeArchive(out, snapPath, filepath.Base(s.cfg.DatabasePath), meta); err != nil {
		out.Close()
		os.Remove(archivePath)
		return nil, appErr.Wrap(err, appErr.CodeInternal, "write backup archive failed")
	}
	if err := out.Close(); err != nil {
		os.Remove(archivePath)
		return nil, appErr.Wrap(err, appErr.CodeInternal, "close backup archive failed")
	}
	st, err := os.Stat(archivePath)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "stat backup archive failed")
	}

	logger.L().Info("backup created", zap.String("name", name), zap.Int64("size", st.Size()), zap.String("type", backupType))
	return &BackupArchive{Name: name, Size: st.Size(), CreatedAt: ts, Path: archivePath, Metadata: meta}, nil
}

// createArchiveFile picks a free backup-YYYYMMDD-HHMMSS name, suffixing on collision.
func (s *backupService) createArchiveFile(ts time.Time) (*os.File, string, error) {
	base := "backup-" + ts.Format(backupTimeLayout)
	for i := 0; i < 100; i++ {
		name := base + ".zip"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.zip", base, i)
		}
		f, err := os.OpenFile(filepath.Join(s.cfg.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", appErr.Wrap(err, appErr.CodeInternal, "create backup archive failed")
		}
		return f, name, nil
	}
	return nil, "", appErr.New(appErr.CodeConflict, "too many backups in the same second")
}

func writeArchive(w io.Writer, dbPath, entryName string, meta *BackupMetadata) error {
	zw := zip.NewWriter(w)
	src, err := os.Open(dbPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := zw.CreateHeader(&zip.FileHeader{Name: entryName, Method: zip.Deflate, Modified: meta.Timestamp})
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: metadataEntry, Method: zip.Deflate, Modified: meta.Timestamp})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	return zw.Close()
}

func (s *backupService) Upload(ctx context.Context, admin *models.User, archive *BackupArchive) (*msgraph.DriveItem, error) {
	if s.cfg.DriveID == "" {
		return nil, appErr.New(appErr.CodeUnavailable, "SharePoint backup drive is not configured")
	}
	if !admin.IsAdmin() {
		return nil, appErr.New(appErr.CodeForbidden, "only admins can upload backups")
	}
	graph, err := s.auth.GraphFor(ctx, admin)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(archive.Path)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "read backup archive failed")
	}
	item, err := graph.Upload(ctx, s.cfg.DriveID, path.Join(s.cfg.Folder, archive.Name), data)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "SharePoint upload failed")
	}
	logger.L().Info("backup uploaded", zap.String("name", archive.Name), zap.String("admin_id", admin.ID.String()), zap.String("item_id", item.ID))
	return item, nil
}

func (s *backupService) RunScheduled(ctx context.Context) (*BackupArchive, error) {
	archive, err := s.Create(ctx, BackupTypeScheduled)
	if err != nil {
		return nil, err
	}
	admin, err := s.backupAdmin(ctx)
	if err != nil {
		logger.L().Warn("scheduled backup not uploaded", zap.String("name", archive.Name), zap.Error(err))
		return archive, nil
	}
	if _, err := s.Upload(ctx, admin, archive); err != nil {
		logger.L().Warn("scheduled backup upload failed", zap.String("name", archive.Name), zap.Error(err))
	}
	return archive, nil
}

func (s *backupService) RunScheduledBackup(ctx context.Context) error {
	_, err := s.RunScheduled(ctx)
	return err
}

// backupAdmin picks the account whose Microsoft token uploads scheduled backups:
// the configured email when set, otherwise the earliest admin with a refresh token.
func (s *backupService) backupAdmin(ctx context.Context) (*models.User, error) {
	var u models.User
	if s.cfg.AdminEmail != "" {
		if err := s.users.GetByEmail(ctx, s.cfg.AdminEmail, &u); err != nil {
			return nil, err
		}
		if !u.IsAdmin() {
			return nil, appErr.Newf(appErr.CodeInvalid, "backup admin %s is not an admin", u.Email)
		}
		return &u, nil
	}
	if err := s.users.FirstAdminWithRefreshToken(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *backupService) Restore(ctx context.Context, r io.ReaderAt, size int64) (*RestoreResult, error) {
	if s.cfg.DatabasePath == "" {
		return nil, errNotSQLite
	}
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "file is not a zip archive")
	}

	var dbEntry *zip.File
	var meta *BackupMetadata
	for _, f := range zr.File {
		switch {
		case f.Name == metadataEntry:
			meta = &BackupMetadata{}
			if err := readJSONEntry(f, meta); err != nil {
				return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid backup metadata")
			}
		case dbEntry == nil && isDatabaseEntry(f.Name):
			dbEntry = f
		}
	}
	if dbEntry == nil {
		return nil, appErr.Invalid("archive does not contain a database file")
	}

	dir := filepath.Dir(s.cfg.DatabasePath)
	tmp, err := os.CreateTemp(dir, ".restore-*.db")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create restore file failed")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if err := extractEntry(dbEntry, tmp); err != nil {
		tmp.Close()
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "extract database failed")
	}
	if err := tmp.Close(); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "close restore file failed")
	}
	if meta != nil && meta.Checksum != "" {
		sum, err := utils.FileSHA256(tmpPath)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "checksum restore file failed")
		}
		if sum != meta.Checksum {
			return nil, appErr.Invalid("database checksum does not match backup metadata")
		}
	}

	preRestore := fmt.Sprintf("%s.pre-restore-%s", s.cfg.DatabasePath, now().Format(backupTimeLayout))
	if err := copyFile(s.cfg.DatabasePath, preRestore); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "save current database failed")
	}
	if err := os.Rename(tmpPath, s.cfg.DatabasePath); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "replace database failed")
	}

	logger.L().Warn("database restored from backup", zap.String("pre_restore", preRestore))
	return &RestoreResult{
		Message:     "Database restored. Restart the application to load the restored data.",
		PreRestore:  filepath.Base(preRestore),
		Metadata:    meta,
		NeedRestart: true,
	}, nil
}

func isDatabaseEntry(name string) bool {
	if strings.Contains(name, "..") || strings.HasSuffix(name, "/") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func readJSONEntry(f *zip.File, dest any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(io.LimitReader(rc, 1<<20)).Decode(dest)
}

func extractEntry(f *zip.File, w io.Writer) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *backupService) List(ctx context.Context) ([]BackupArchive, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []BackupArchive{}, nil
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "read backup directory failed")
	}
	out := []BackupArchive{}
	for _, e := range entries {
		if e.IsDir() || !validBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupArchive{
			Name:      e.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
			Path:      filepath.Join(s.cfg.Dir, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func validBackupName(name string) bool {
	return strings.HasPrefix(name, "backup-") && strings.HasSuffix(name, ".zip") &&
		!strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func (s *backupService) Open(name string) (*os.File, error) {
	if !validBackupName(name) {
		return nil, appErr.Invalid("invalid backup name")
	}
	f, err := os.Open(filepath.Join(s.cfg.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, appErr.NotFound("backup not found")
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "open backup failed")
	}
	return f, nil
}

func (s *backupService) Delete(name string) error {
	if !validBackupName(name) {
		return appErr.Invalid("invalid backup name")
	}
	err := os.Remove(filepath.Join(s.cfg.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return appErr.NotFound("backup not found")
	}
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete backup failed")
	}
	logger.L().Info("backup deleted", zap.String("name", name))
	return nil
}

func (s *backupService) CheckSecret(token string) bool {
	if s.cfg.Secret == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Secret)) == 1
}
