package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
)

type JobTypesHandler struct {
	jobTypes services.JobTypeService
}

func NewJobTypesHandler(j services.JobTypeService) *JobTypesHandler {
	return &JobTypesHandler{jobTypes: j}
}

func (h *JobTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.jobTypes.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *JobTypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.JobTypeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		writeErrorStr(w, r, "name is required")
		return
	}
	jt, err := h.jobTypes.Create(r.Context(), &services.JobTypeInput{Name: req.Name, Description: req.Description, Color: req.Color})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, jt)
}

func (h *JobTypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.JobTypeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	jt, err := h.jobTypes.Update(r.Context(), id, &services.JobTypeInput{Name: req.Name, Description: req.Description, Color: req.Color})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, jt)
}

func (h *JobTypesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.jobTypes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
