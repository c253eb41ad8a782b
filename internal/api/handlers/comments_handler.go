package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
)

type CommentsHandler struct {
	comments services.CommentService
}

func NewCommentsHandler(c services.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: c}
}

func milestoneTarget(id uuid.UUID) services.CommentTarget { return services.CommentTarget{MilestoneID: &id} }
func taskTarget(id uuid.UUID) services.CommentTarget      { return services.CommentTarget{TaskID: &id} }

func (h *CommentsHandler) ListForMilestone(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, milestoneTarget)
}

func (h *CommentsHandler) ListForTask(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, taskTarget)
}

func (h *CommentsHandler) AddToMilestone(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, milestoneTarget)
}

func (h *CommentsHandler) AddToTask(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, taskTarget)
}

func (h *CommentsHandler) list(w http.ResponseWriter, r *http.Request, target func(uuid.UUID) services.CommentTarget) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.comments.List(r.Context(), currentUser(r), target(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *CommentsHandler) add(w http.ResponseWriter, r *http.Request, target func(uuid.UUID) services.CommentTarget) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.CommentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.comments.Add(r.Context(), currentUser(r), target(id), req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.comments.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
