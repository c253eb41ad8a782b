package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	BaseRepository[models.ProjectTemplate]
	ListWithTree(ctx context.Context) ([]models.ProjectTemplate, error)
	GetWithTree(ctx context.Context, id uuid.UUID, dest *models.ProjectTemplate) error
	GetByName(ctx context.Context, name string, dest *models.ProjectTemplate) error
	GetDefault(ctx context.Context, dest *models.ProjectTemplate) error
	ClearDefault(ctx context.Context, except uuid.UUID) error
	// ReplaceChildren deletes the template's milestones (tasks cascade) and inserts the given tree.
	ReplaceChildren(ctx context.Context, templateID uuid.UUID, milestones []models.TemplateMilestone) error
}

type templateRepository struct {
	BaseRepository[models.ProjectTemplate]
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{BaseRepository: NewBaseRepository[models.ProjectTemplate](db, "template"), db: db}
}

func treeScope(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") }).
		Preload("Milestones.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") })
}

func (r *templateRepository) ListWithTree(ctx context.Context) ([]models.ProjectTemplate, error) {
	var out []models.ProjectTemplate
	if err := r.db.WithContext(ctx).Scopes(treeScope).Order("name ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list templates failed")
	}
	return out, nil
}

func (r *templateRepository) GetWithTree(ctx context.Context, id uuid.UUID, dest *models.ProjectTemplate) error {
	if err := r.db.WithContext(ctx).Scopes(treeScope).First(dest, "id = ?", id).Error; err != nil {
		return translate(err, "template", "get")
	}
	return nil
}

func (r *templateRepository) GetByName(ctx context.Context, name string, dest *models.ProjectTemplate) error {
	if err := r.db.WithContext(ctx).Scopes(treeScope).Where("name = ?", name).First(dest).Error; err != nil {
		return translate(err, "template", "get")
	}
	return nil
}

func (r *templateRepository) GetDefault(ctx context.Context, dest *models.ProjectTemplate) error {
	if err := r.db.WithContext(ctx).Scopes(treeScope).Where("is_default = ?", true).First(dest).Error; err != nil {
		return translate(err, "default template", "get")
	}
	return nil
}

func (r *templateRepository) ClearDefault(ctx context.Context, except uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.ProjectTemplate{}).
		Where("is_default = ? AND id <> ?", true, except).
		Update("is_default", false).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "clear default template failed")
	}
	return nil
}

func (r *templateRepository) ReplaceChildren(ctx context.Context, templateID uuid.UUID, milestones []models.TemplateMilestone) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("template_id = ?", templateID).Delete(&models.TemplateMilestone{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete template milestones failed")
	}
	for i := range milestones {
		milestones[i].ID = uuid.Nil
		milestones[i].TemplateID = templateID
		for j := range milestones[i].Tasks {
			milestones[i].Tasks[j].ID = uuid.Nil
		}
	}
	if len(milestones) == 0 {
		return nil
	}
	if err := db.Create(&milestones).Error; err != nil {
		return translate(err, "template milestone", "create")
	}
	return nil
}
