package handlers

import (
	"net/http"
	"time"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
	appErr "github.com/voltworks/portal/pkg/errors"
)

type CalendarHandler struct {
	calendar services.CalendarService
}

func NewCalendarHandler(c services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: c}
}

func eventInput(req *types.EventRequest) *services.EventInput {
	return &services.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		AllDay:      req.AllDay,
		Location:    req.Location,
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
		Attendees:   req.Attendees,
	}
}

// queryTime accepts RFC 3339 or a bare date.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, appErr.Newf(appErr.CodeInvalid, "invalid %s: expected RFC 3339 or YYYY-MM-DD", name)
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	projectID, err := queryID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.calendar.List(r.Context(), currentUser(r), &services.EventQuery{
		From:      from,
		To:        to,
		ProjectID: projectID,
		Type:      r.URL.Query().Get("type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.calendar.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ev)
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.EventRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Title == nil || req.StartAt == nil {
		writeErrorStr(w, r, "title and startAt are required")
		return
	}
	ev, err := h.calendar.Create(r.Context(), currentUser(r), eventInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, ev)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.EventRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.calendar.Update(r.Context(), currentUser(r), id, eventInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ev)
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.calendar.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
