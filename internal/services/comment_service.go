package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

// CommentTarget names what a comment is attached to; exactly one id is set.
type CommentTarget struct {
	MilestoneID *uuid.UUID
	TaskID      *uuid.UUID
}

type CommentService interface {
	Add(ctx context.Context, actor *models.User, target CommentTarget, body string) (*models.Comment, error)
	List(ctx context.Context, actor *models.User, target CommentTarget) ([]models.Comment, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

type commentService struct {
	db   *gorm.DB
	repo repository.BaseRepository[models.Comment]
}

func NewCommentService(db *gorm.DB) CommentService {
	return &commentService{db: db, repo: repository.NewBaseRepository[models.Comment](db, "comment")}
}

func (s *commentService) checkTarget(ctx context.Context, actor *models.User, target CommentTarget) error {
	switch {
	case target.TaskID != nil:
		_, _, err := loadVisibleTask(ctx, s.db, actor, *target.TaskID)
		return err
	case target.MilestoneID != nil:
		_, _, err := loadVisibleMilestone(ctx, s.db, actor, *target.MilestoneID)
		return err
	default:
		return appErr.Invalid("comment target is required")
	}
}

func (s *commentService) Add(ctx context.Context, actor *models.User, target CommentTarget, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, appErr.Invalid("comment body is required")
	}
	if err := s.checkTarget(ctx, actor, target); err != nil {
		return nil, err
	}
	c := &models.Comment{MilestoneID: target.MilestoneID, TaskID: target.TaskID, AuthorID: actorID(actor), Body: body}
	if target.TaskID != nil {
		c.MilestoneID = nil
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	c.Author = actor
	return c, nil
}

func (s *commentService) List(ctx context.Context, actor *models.User, target CommentTarget) ([]models.Comment, error) {
	if err := s.checkTarget(ctx, actor, target); err != nil {
		return nil, err
	}
	var scope repository.Scope
	if target.TaskID != nil {
		scope = repository.Where("task_id = ?", *target.TaskID)
	} else {
		scope = repository.Where("milestone_id = ?", *target.MilestoneID)
	}
	var out []models.Comment
	if err := s.repo.List(ctx, &out, scope, repository.Preload("Author"), repository.OrderBy("created_at ASC")); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *commentService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	var c models.Comment
	if err := s.repo.GetByID(ctx, id, &c); err != nil {
		return err
	}
	if err := s.checkTarget(ctx, actor, CommentTarget{MilestoneID: c.MilestoneID, TaskID: c.TaskID}); err != nil {
		return appErr.NotFound("comment not found")
	}
	if !actor.IsAdmin() && (c.AuthorID == nil || *c.AuthorID != actor.ID) {
		return appErr.New(appErr.CodeForbidden, "only the author or an admin can delete a comment")
	}
	return s.repo.Delete(ctx, id)
}
