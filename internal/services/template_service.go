package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const TemplateExportVersion = "1.0"

type TemplateService interface {
	List(ctx context.Context) ([]models.ProjectTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ProjectTemplate, error)
	Create(ctx context.Context, input *TemplateInput) (*models.ProjectTemplate, error)
	Update(ctx context.Context, id uuid.UUID, input *TemplateInput) (*models.ProjectTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, id uuid.UUID) (*TemplateDoc, error)
	ExportAll(ctx context.Context) (*TemplateBundle, error)
	// Import accepts a single template document or a bundle and upserts by name.
	Import(ctx context.Context, raw []byte) ([]models.ProjectTemplate, error)
}

// TemplateDoc is the portable form of a template.
type TemplateDoc struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	IsDefault   bool                   `json:"isDefault"`
	Milestones  []TemplateMilestoneDoc `json:"milestones"`
}

type TemplateMilestoneDoc struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Order       int               `json:"order"`
	Tasks       []TemplateTaskDoc `json:"tasks"`
}

type TemplateTaskDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type TemplateBundle struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exportedAt"`
	Templates  []TemplateDoc `json:"templates"`
}

// TemplateInput changes the given fields; a non-nil Milestones replaces the whole tree.
type TemplateInput struct {
	Name        *string
	Description *string
	IsDefault   *bool
	Milestones  []TemplateMilestoneDoc
}

type templateService struct {
	db   *gorm.DB
	repo repository.TemplateRepository
}

func NewTemplateService(db *gorm.DB, repo repository.TemplateRepository) TemplateService {
	return &templateService{db: db, repo: repo}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) List(ctx context.Context) ([]models.ProjectTemplate, error) {
	return s.repo.ListWithTree(ctx)
}

func (s *templateService) Get(ctx context.Context, id uuid.UUID) (*models.ProjectTemplate, error) {
	var t models.ProjectTemplate
	if err := s.repo.GetWithTree(ctx, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *templateService) Create(ctx context.Context, input *TemplateInput) (*models.ProjectTemplate, error) {
	t := &models.ProjectTemplate{}
	setIf(&t.Name, input.Name)
	setIf(&t.Description, input.Description)
	setIf(&t.IsDefault, input.IsDefault)
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, appErr.Invalid("name is required")
	}
	if err := validateTree(input.Milestones); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewTemplateRepository(tx)
		if err := repo.Create(ctx, t); err != nil {
			return err
		}
		if t.IsDefault {
			if err := repo.ClearDefault(ctx, t.ID); err != nil {
				return err
			}
		}
		return repo.ReplaceChildren(ctx, t.ID, treeFromDocs(input.Milestones))
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("template created", zap.String("template_id", t.ID.String()), zap.String("name", t.Name))
	return s.Get(ctx, t.ID)
}

func (s *templateService) Update(ctx context.Context, id uuid.UUID, input *TemplateInput) (*models.ProjectTemplate, error) {
	if input.Milestones != nil {
		if err := validateTree(input.Milestones); err != nil {
			return nil, err
		}
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewTemplateRepository(tx)
		var t models.ProjectTemplate
		if err := repo.GetByID(ctx, id, &t); err != nil {
			return err
		}
		setIf(&t.Name, input.Name)
		setIf(&t.Description, input.Description)
		setIf(&t.IsDefault, input.IsDefault)
		if strings.TrimSpace(t.Name) == "" {
			return appErr.Invalid("name is required")
		}
		if err := repo.Update(ctx, &t); err != nil {
			return err
		}
		if t.IsDefault {
			if err := repo.ClearDefault(ctx, t.ID); err != nil {
				return err
			}
		}
		if input.Milestones == nil {
			return nil
		}
		return repo.ReplaceChildren(ctx, t.ID, treeFromDocs(input.Milestones))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *templateService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.L().Info("template deleted", zap.String("template_id", id.String()))
	return nil
}

func (s *templateService) Export(ctx context.Context, id uuid.UUID) (*TemplateDoc, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := docFromTemplate(t)
	return &doc, nil
}

func (s *templateService) ExportAll(ctx context.Context) (*TemplateBundle, error) {
	ts, err := s.repo.ListWithTree(ctx)
	if err != nil {
		return nil, err
	}
	b := &TemplateBundle{Version: TemplateExportVersion, ExportedAt: now(), Templates: make([]TemplateDoc, 0, len(ts))}
	for i := range ts {
		b.Templates = append(b.Templates, docFromTemplate(&ts[i]))
	}
	return b, nil
}

func (s *templateService) Import(ctx context.Context, raw []byte) ([]models.ProjectTemplate, error) {
	docs, err := parseTemplateImport(raw)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(docs))
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewTemplateRepository(tx)
		for _, d := range docs {
			var t models.ProjectTemplate
			err := repo.GetByName(ctx, d.Name, &t)
			switch {
			case err == nil:
				t.Description, t.IsDefault = d.Description, d.IsDefault
				t.Milestones = nil
				err = repo.Update(ctx, &t)
			case appErr.IsCode(err, appErr.CodeNotFound):
				t = models.ProjectTemplate{Name: d.Name, Description: d.Description, IsDefault: d.IsDefault}
				err = repo.Create(ctx, &t)
			}
			if err != nil {
				return err
			}
			if t.IsDefault {
				if err := repo.ClearDefault(ctx, t.ID); err != nil {
					return err
				}
			}
			if err := repo.ReplaceChildren(ctx, t.ID, treeFromDocs(d.Milestones)); err != nil {
				return err
			}
			ids = append(ids, t.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("templates imported", zap.Int("count", len(ids)))

	out := make([]models.ProjectTemplate, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func parseTemplateImport(raw []byte) ([]TemplateDoc, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid template json")
	}
	var docs []TemplateDoc
	if _, ok := probe["templates"]; ok {
		var b TemplateBundle
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid template bundle")
		}
		docs = b.Templates
	} else {
		var d TemplateDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid template document")
		}
		docs = []TemplateDoc{d}
	}
	if len(docs) == 0 {
		return nil, appErr.Invalid("no templates to import")
	}
	seen := map[string]bool{}
	for i := range docs {
		docs[i].Name = strings.TrimSpace(docs[i].Name)
		if docs[i].Name == "" {
			return nil, appErr.Newf(appErr.CodeInvalid, "template %d has no name", i+1)
		}
		if seen[docs[i].Name] {
			return nil, appErr.Newf(appErr.CodeInvalid, "template %q appears more than once", docs[i].Name)
		}
		seen[docs[i].Name] = true
		if err := validateTree(docs[i].Milestones); err != nil {
			return nil, appErr.Newf(appErr.CodeInvalid, "template %q: %s", docs[i].Name, rowMessage(err))
		}
	}
	return docs, nil
}

func validateTree(ms []TemplateMilestoneDoc) error {
	for i, m := range ms {
		if strings.TrimSpace(m.Name) == "" {
			return appErr.Newf(appErr.CodeInvalid, "milestone %d has no name", i+1)
		}
		for j, t := range m.Tasks {
			if strings.TrimSpace(t.Name) == "" {
				return appErr.Newf(appErr.CodeInvalid, "milestone %q task %d has no name", m.Name, j+1)
			}
		}
	}
	return nil
}

func treeFromDocs(ms []TemplateMilestoneDoc) []models.TemplateMilestone {
	out := make([]models.TemplateMilestone, 0, len(ms))
	for _, m := range ms {
		tm := models.TemplateMilestone{Name: strings.TrimSpace(m.Name), Description: m.Description, Category: m.Category, Order: m.Order}
		for _, t := range m.Tasks {
			tm.Tasks = append(tm.Tasks, models.TemplateTask{Name: strings.TrimSpace(t.Name), Description: t.Description, Order: t.Order})
		}
		out = append(out, tm)
	}
	return out
}

func docFromTemplate(t *models.ProjectTemplate) TemplateDoc {
	d := TemplateDoc{Name: t.Name, Description: t.Description, IsDefault: t.IsDefault, Milestones: []TemplateMilestoneDoc{}}
	for _, m := range t.Milestones {
		md := TemplateMilestoneDoc{Name: m.Name, Description: m.Description, Category: m.Category, Order: m.Order, Tasks: []TemplateTaskDoc{}}
		for _, task := range m.Tasks {
			md.Tasks = append(md.Tasks, TemplateTaskDoc{Name: task.Name, Description: task.Description, Order: task.Order})
		}
		d.Milestones = append(d.Milestones, md)
	}
	return d
}

// resolveTemplate picks the template a new project starts from: an explicit id, the
// default when asked for, or none.
func resolveTemplate(ctx context.Context, tx *gorm.DB, templateID *uuid.UUID, useDefault bool) (*models.ProjectTemplate, error) {
	repo := repository.NewTemplateRepository(tx)
	var t models.ProjectTemplate
	switch {
	case templateID != nil:
		if err := repo.GetWithTree(ctx, *templateID, &t); err != nil {
			return nil, err
		}
	case useDefault:
		err := repo.GetDefault(ctx, &t)
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return &t, nil
}

// instantiateTemplate copies the template's milestones and tasks onto the project.
func instantiateTemplate(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, tmpl *models.ProjectTemplate) error {
	milestones := repository.NewMilestoneRepository(tx)
	tasks := repository.NewTaskRepository(tx)
	for _, tm := range tmpl.Milestones {
		m := &models.Milestone{
			ProjectID:   projectID,
			Name:        tm.Name,
			Description: tm.Description,
			Category:    tm.Category,
			Status:      models.MilestoneNotStarted,
			Order:       tm.Order,
		}
		if err := milestones.Create(ctx, m); err != nil {
			return err
		}
		for _, tt := range tm.Tasks {
			t := &models.Task{
				MilestoneID: m.ID,
				Name:        tt.Name,
				Description: tt.Description,
				Status:      models.TaskTodo,
				Order:       tt.Order,
			}
			if err := tasks.Create(ctx, t); err != nil {
				return err
			}
		}
	}
	logger.L().Info("template applied",
		zap.String("project_id", projectID.String()),
		zap.String("template", tmpl.Name),
		zap.Int("milestones", len(tmpl.Milestones)))
	return nil
}
