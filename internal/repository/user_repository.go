package repository

import (
	"context"
	"strings"

	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	CountAdmins(ctx context.Context) (int64, error)
	// FirstAdminWithRefreshToken returns the earliest-created admin holding a Microsoft refresh token.
	FirstAdminWithRefreshToken(ctx context.Context, dest *models.User) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db, "user"), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(dest).Error; err != nil {
		return translate(err, "user", "get")
	}
	return nil
}

func (r *userRepository) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&n).Error; err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count admins failed")
	}
	return n, nil
}

func (r *userRepository) FirstAdminWithRefreshToken(ctx context.Context, dest *models.User) error {
	err := r.db.WithContext(ctx).
		Where("role = ? AND provider = ? AND refresh_token <> ''", models.RoleAdmin, models.ProviderMicrosoft).
		Order("created_at ASC, id ASC").
		First(dest).Error
	if err != nil {
		return translate(err, "admin with microsoft credentials", "get")
	}
	return nil
}
