package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/services"
)

type TasksHandler struct {
	tasks services.TaskService
}

func NewTasksHandler(t services.TaskService) *TasksHandler {
	return &TasksHandler{tasks: t}
}

func taskInput(req *types.TaskRequest) *services.TaskInput {
	in := &services.TaskInput{
		Name:          req.Name,
		Description:   req.Description,
		Order:         req.Order,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
		DueDate:       req.DueDate,
	}
	if req.Status != nil {
		s := models.TaskStatus(*req.Status)
		in.Status = &s
	}
	return in
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	milestoneID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.tasks.List(r.Context(), currentUser(r), milestoneID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	milestoneID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.TaskRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		writeErrorStr(w, r, "name is required")
		return
	}
	t, err := h.tasks.Create(r.Context(), currentUser(r), milestoneID, taskInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

// Mine lists tasks assigned to the caller; done tasks only with ?includeDone=true.
func (h *TasksHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.tasks.Mine(r.Context(), currentUser(r), queryBool(r, "includeDone"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.tasks.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.TaskRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.tasks.Update(r.Context(), currentUser(r), id, taskInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
