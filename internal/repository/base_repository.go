package repository

import (
	"context"
	"errors"
	"fmt"

	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows a query; used for filters, preloads and ordering.
type Scope = func(*gorm.DB) *gorm.DB

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T, scopes ...Scope) error
	List(ctx context.Context, dest *[]T, scopes ...Scope) error
	Count(ctx context.Context, scopes ...Scope) (int64, error)
	Update(ctx context.Context, obj *T) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db     *gorm.DB
	entity string
}

// NewBaseRepository builds a repository for T; entity names the type in error messages.
func NewBaseRepository[T any](db *gorm.DB, entity string) BaseRepository[T] {
	return &baseRepository[T]{db: db, entity: entity}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return translate(err, r.entity, "create")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T, scopes ...Scope) error {
	if err := r.db.WithContext(ctx).Scopes(scopes...).First(dest, "id = ?", id).Error; err != nil {
		return translate(err, r.entity, "get")
	}
	return nil
}

func (r *baseRepository[T]) List(ctx context.Context, dest *[]T, scopes ...Scope) error {
	if err := r.db.WithContext(ctx).Scopes(scopes...).Find(dest).Error; err != nil {
		return translate(err, r.entity, "list")
	}
	return nil
}

func (r *baseRepository[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var n int64
	var t T
	if err := r.db.WithContext(ctx).Model(&t).Scopes(scopes...).Count(&n).Error; err != nil {
		return 0, translate(err, r.entity, "count")
	}
	return n, nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(obj).Error; err != nil {
		return translate(err, r.entity, "update")
	}
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, r.entity, "delete")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("%s %v not found", r.entity, id))
	}
	return nil
}

// Preload eager-loads the named relations.
func Preload(relations ...string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		for _, rel := range relations {
			db = db.Preload(rel)
		}
		return db
	}
}

// OrderBy applies a raw ORDER BY clause.
func OrderBy(order string) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(order) }
}

// Where applies a condition.
func Where(query any, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) }
}

// translate maps gorm failures onto application error codes.
func translate(err error, entity, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return appErr.NotFound(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return appErr.Wrap(err, appErr.CodeConflict, entity+" already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return appErr.Wrap(err, appErr.CodeInvalid, entity+" references a missing or in-use record")
	default:
		return appErr.Wrap(err, appErr.CodeInternal, fmt.Sprintf("%s %s failed", op, entity))
	}
}
