package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/services"
)

type ProjectsHandler struct {
	projects services.ProjectService
}

func NewProjectsHandler(projects services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

func projectFields(f types.ProjectFields) services.ProjectFields {
	out := services.ProjectFields{
		Description:  f.Description,
		JobTypeID:    f.JobTypeID,
		OwnerID:      f.OwnerID,
		ContactName:  f.ContactName,
		ContactEmail: f.ContactEmail,
		ContactPhone: f.ContactPhone,
		Address:      f.Address,
		City:         f.City,
		State:        f.State,
		Zip:          f.Zip,
		PlaceID:      f.PlaceID,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		StartDate:    f.StartDate,
		DueDate:      f.DueDate,
	}
	if f.Status != nil {
		s := models.ProjectStatus(*f.Status)
		out.Status = &s
	}
	return out
}

// List godoc
// @Summary   List projects visible to the caller
// @Tags      projects
// @Produce   json
// @Param     status     query     string  false  "status filter"
// @Param     jobTypeId  query     string  false  "job type filter"
// @Param     search     query     string  false  "name/contact search"
// @Success   200        {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects [get]
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobTypeID, err := queryID(r, "jobTypeId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, err := h.projects.ListProjects(r.Context(), currentUser(r), &services.ProjectFilters{
		Status:    q.Get("status"),
		JobTypeID: jobTypeID,
		Search:    q.Get("search"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

// Create godoc
// @Summary   Create a project, optionally from a template
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     body  body      types.ProjectCreateRequest  true  "project"
// @Success   201   {object}  types.APIResponse
// @Failure   400   {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects [post]
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.CreateProject(r.Context(), currentUser(r), &services.CreateProjectInput{
		Name:               req.Name,
		ProjectFields:      projectFields(req.ProjectFields),
		TemplateID:         req.TemplateID,
		UseDefaultTemplate: req.UseDefaultTemplate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.GetProject(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Update godoc
// @Summary   Partially update a project; a status change is audited
// @Tags      projects
// @Accept    json
// @Produce   json
// @Param     id    path      string                      true  "project id"
// @Param     body  body      types.ProjectUpdateRequest  true  "fields to change"
// @Success   200   {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /projects/{id} [patch]
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.ProjectUpdateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.UpdateProject(r.Context(), currentUser(r), id, &services.UpdateProjectInput{
		Name:          req.Name,
		ProjectFields: projectFields(req.ProjectFields),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.projects.DeleteProject(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *ProjectsHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.projects.StatusHistory(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, rows)
}
