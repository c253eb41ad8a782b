// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// NewFileDB opens a migrated sqlite database backed by a file in a temp dir and returns its path.
func NewFileDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portal.db")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db, path
}

// CreateUser inserts a user with the given role and password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Email: email, Name: email, Role: role, PasswordHash: string(hash), Provider: models.ProviderLocal}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateProject inserts a project owned by owner.
func CreateProject(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, Status: models.ProjectInitialContact, OwnerID: &owner.ID}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateMilestone inserts a milestone under project.
func CreateMilestone(t *testing.T, db *gorm.DB, project *models.Project, name string) *models.Milestone {
	t.Helper()
	m := &models.Milestone{ProjectID: project.ID, Name: name, Status: models.MilestoneNotStarted}
	require.NoError(t, db.Create(m).Error)
	return m
}

// CreateItem inserts an inventory item.
func CreateItem(t *testing.T, db *gorm.DB, name string, quantity, threshold int) *models.InventoryItem {
	t.Helper()
	it := &models.InventoryItem{Name: name, Quantity: quantity, Threshold: threshold}
	require.NoError(t, db.Create(it).Error)
	return it
}
