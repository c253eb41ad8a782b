package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
)

type CommunicationsHandler struct {
	comms services.CommunicationService
}

func NewCommunicationsHandler(c services.CommunicationService) *CommunicationsHandler {
	return &CommunicationsHandler{comms: c}
}

func communicationInput(req *types.CommunicationRequest) *services.CommunicationInput {
	in := &services.CommunicationInput{
		Type:        req.Type,
		Direction:   req.Direction,
		Subject:     req.Subject,
		Body:        req.Body,
		ContactName: req.ContactName,
		MilestoneID: req.MilestoneID,
		OccurredAt:  req.OccurredAt,
	}
	if req.Participants != nil {
		in.Participants = make([]services.Participant, 0, len(req.Participants))
		for _, p := range req.Participants {
			in.Participants = append(in.Participants, services.Participant(p))
		}
	}
	return in
}

func (h *CommunicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	milestoneID, err := queryID(r, "milestoneId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.comms.List(r.Context(), currentUser(r), projectID, &services.CommunicationFilters{
		Type:        r.URL.Query().Get("type"),
		MilestoneID: milestoneID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *CommunicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.CommunicationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == nil {
		writeErrorStr(w, r, "type is required")
		return
	}
	c, err := h.comms.Create(r.Context(), currentUser(r), projectID, communicationInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *CommunicationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.CommunicationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.comms.Update(r.Context(), currentUser(r), id, communicationInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *CommunicationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.comms.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
