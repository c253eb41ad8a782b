package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
	appErr "github.com/voltworks/portal/pkg/errors"
)

func residentialTree() []TemplateMilestoneDoc {
	return []TemplateMilestoneDoc{
		{Name: "Permit", Category: "admin", Order: 0, Tasks: []TemplateTaskDoc{
			{Name: "Submit application", Order: 0},
			{Name: "Schedule inspection", Order: 1},
		}},
		{Name: "Install", Category: "field", Order: 1, Tasks: []TemplateTaskDoc{
			{Name: "Mount panels", Order: 0},
		}},
	}
}

func TestTemplates_DefaultIsExclusive(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewTemplateService(db, repository.NewTemplateRepository(db))

	a, err := svc.Create(ctx, &TemplateInput{Name: ptr("Residential"), IsDefault: ptr(true), Milestones: residentialTree()})
	require.NoError(t, err)
	require.Len(t, a.Milestones, 2)
	assert.Len(t, a.Milestones[0].Tasks, 2)

	b, err := svc.Create(ctx, &TemplateInput{Name: ptr("Commercial"), IsDefault: ptr(true)})
	require.NoError(t, err)
	assert.True(t, b.IsDefault)

	a, err = svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, a.IsDefault)

	_, err = svc.Create(ctx, &TemplateInput{Name: ptr("Residential")})
	requireCode(t, err, appErr.CodeConflict)
}

func TestTemplates_UpdateReplacesTree(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewTemplateService(db, repository.NewTemplateRepository(db))

	tmpl, err := svc.Create(ctx, &TemplateInput{Name: ptr("Residential"), Milestones: residentialTree()})
	require.NoError(t, err)

	// name-only update keeps children
	tmpl, err = svc.Update(ctx, tmpl.ID, &TemplateInput{Description: ptr("single family")})
	require.NoError(t, err)
	require.Len(t, tmpl.Milestones, 2)

	tmpl, err = svc.Update(ctx, tmpl.ID, &TemplateInput{Milestones: []TemplateMilestoneDoc{{Name: "Walkthrough"}}})
	require.NoError(t, err)
	require.Len(t, tmpl.Milestones, 1)
	assert.Equal(t, "Walkthrough", tmpl.Milestones[0].Name)

	var tasks int64
	require.NoError(t, db.Model(&models.TemplateTask{}).Count(&tasks).Error)
	assert.Equal(t, int64(0), tasks)

	_, err = svc.Update(ctx, tmpl.ID, &TemplateInput{Milestones: []TemplateMilestoneDoc{{Name: " "}}})
	requireCode(t, err, appErr.CodeInvalid)
	tmpl, err = svc.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Len(t, tmpl.Milestones, 1)
}

func TestTemplates_ExportImportRoundTrip(t *testing.T) {
	src := testutil.NewTestDB(t)
	srcSvc := NewTemplateService(src, repository.NewTemplateRepository(src))
	tmpl, err := srcSvc.Create(ctx, &TemplateInput{Name: ptr("Residential"), Description: ptr("homes"), IsDefault: ptr(true), Milestones: residentialTree()})
	require.NoError(t, err)
	_, err = srcSvc.Create(ctx, &TemplateInput{Name: ptr("Service call")})
	require.NoError(t, err)

	single, err := srcSvc.Export(ctx, tmpl.ID)
	require.NoError(t, err)
	bundle, err := srcSvc.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TemplateExportVersion, bundle.Version)
	require.Len(t, bundle.Templates, 2)

	dst := testutil.NewTestDB(t)
	dstSvc := NewTemplateService(dst, repository.NewTemplateRepository(dst))

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	imported, err := dstSvc.Import(ctx, raw)
	require.NoError(t, err)
	require.Len(t, imported, 2)

	var got *models.ProjectTemplate
	for i := range imported {
		if imported[i].Name == "Residential" {
			got = &imported[i]
		}
	}
	require.NotNil(t, got)
	back, err := dstSvc.Export(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, single, back)

	// a single document re-import upserts by name
	single.Milestones = single.Milestones[:1]
	raw, err = json.Marshal(single)
	require.NoError(t, err)
	_, err = dstSvc.Import(ctx, raw)
	require.NoError(t, err)

	all, err := dstSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, tm := range all {
		if tm.Name == "Residential" {
			assert.Len(t, tm.Milestones, 1)
			assert.True(t, tm.IsDefault)
		}
	}
}

func TestTemplates_ImportRejectsBadDocuments(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewTemplateService(db, repository.NewTemplateRepository(db))

	for _, raw := range []string{
		`not json`,
		`{"templates": []}`,
		`{"description": "no name"}`,
		`{"templates": [{"name": "A"}, {"name": "A"}]}`,
		`{"name": "A", "milestones": [{"name": ""}]}`,
	} {
		_, err := svc.Import(ctx, []byte(raw))
		requireCode(t, err, appErr.CodeInvalid)
	}
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProjects_CreateFromTemplate(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	tsvc := NewTemplateService(db, repository.NewTemplateRepository(db))
	_, err := tsvc.Create(ctx, &TemplateInput{Name: ptr("Residential"), IsDefault: ptr(true), Milestones: residentialTree()})
	require.NoError(t, err)

	psvc := NewProjectService(db, repository.NewProjectRepository(db), nil)

	p, err := psvc.CreateProject(ctx, admin, &CreateProjectInput{Name: "Jones Solar", UseDefaultTemplate: true})
	require.NoError(t, err)
	require.Len(t, p.Milestones, 2)
	assert.Equal(t, "Permit", p.Milestones[0].Name)
	assert.Equal(t, models.MilestoneNotStarted, p.Milestones[0].Status)
	require.Len(t, p.Milestones[0].Tasks, 2)
	assert.Equal(t, "Submit application", p.Milestones[0].Tasks[0].Name)

	bare, err := psvc.CreateProject(ctx, admin, &CreateProjectInput{Name: "Empty"})
	require.NoError(t, err)
	assert.Empty(t, bare.Milestones)
}
