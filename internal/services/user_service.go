package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, input *CreateUserInput) (*models.User, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input *UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	// EnsureBootstrapAdmin creates a local admin when the user table is empty.
	EnsureBootstrapAdmin(ctx context.Context, email, password string) error
}

type CreateUserInput struct {
	Email    string
	Name     string
	Role     string
	Password string
}

type UpdateUserInput struct {
	Name     *string
	Role     *string
	Password *string
}

type userService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository) UserService {
	return &userService{db: db, userRepo: userRepo}
}

var _ UserService = (*userService)(nil)

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := s.userRepo.List(ctx, &out, repository.OrderBy("name ASC, email ASC")); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.userRepo.GetByID(ctx, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userService) Create(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	u := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Name:     input.Name,
		Role:     input.Role,
		Provider: models.ProviderLocal,
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
		}
		u.PasswordHash = string(hash)
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.L().Info("user created", zap.String("user_id", u.ID.String()), zap.String("role", u.Role))
	return u, nil
}

func (s *userService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input *UpdateUserInput) (*models.User, error) {
	var out models.User
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewUserRepository(tx)
		if err := repo.GetByID(ctx, id, &out); err != nil {
			return err
		}
		if input.Role != nil && *input.Role != out.Role {
			if out.Role == models.RoleAdmin && *input.Role != models.RoleAdmin {
				if out.ID == actor.ID {
					return appErr.Invalid("you cannot remove your own admin role")
				}
				admins, err := repo.CountAdmins(ctx)
				if err != nil {
					return err
				}
				if admins <= 1 {
					return appErr.Invalid("cannot demote the last admin")
				}
			}
			out.Role = *input.Role
		}
		if input.Name != nil {
			out.Name = *input.Name
		}
		if input.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
			if err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
			}
			out.PasswordHash = string(hash)
		}
		return repo.Update(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("user updated", zap.String("user_id", id.String()), zap.String("actor_id", actor.ID.String()))
	return &out, nil
}

func (s *userService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if id == actor.ID {
		return appErr.Invalid("you cannot delete your own account")
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewUserRepository(tx)
		var u models.User
		if err := repo.GetByID(ctx, id, &u); err != nil {
			return err
		}
		if u.Role == models.RoleAdmin {
			admins, err := repo.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return appErr.Invalid("cannot delete the last admin")
			}
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.L().Info("user deleted", zap.String("user_id", id.String()), zap.String("actor_id", actor.ID.String()))
	return nil
}

func (s *userService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.userRepo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	_, err = s.Create(ctx, &CreateUserInput{Email: email, Name: "Administrator", Role: models.RoleAdmin, Password: password})
	return err
}
