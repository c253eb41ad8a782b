package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/services"
)

type MilestonesHandler struct {
	milestones services.MilestoneService
}

func NewMilestonesHandler(m services.MilestoneService) *MilestonesHandler {
	return &MilestonesHandler{milestones: m}
}

func milestoneInput(req *types.MilestoneRequest) *services.MilestoneInput {
	in := &services.MilestoneInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Order:       req.Order,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		s := models.MilestoneStatus(*req.Status)
		in.Status = &s
	}
	return in
}

func (h *MilestonesHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.milestones.List(r.Context(), currentUser(r), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *MilestonesHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.MilestoneRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		writeErrorStr(w, r, "name is required")
		return
	}
	m, err := h.milestones.Create(r.Context(), currentUser(r), projectID, milestoneInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

func (h *MilestonesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.milestones.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (h *MilestonesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.MilestoneRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.milestones.Update(r.Context(), currentUser(r), id, milestoneInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (h *MilestonesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.milestones.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
