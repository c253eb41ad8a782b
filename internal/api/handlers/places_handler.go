package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/integrations/places"
)

type PlacesHandler struct {
	places *places.Service
}

func NewPlacesHandler(p *places.Service) *PlacesHandler {
	return &PlacesHandler{places: p}
}

func (h *PlacesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	preds, err := h.places.Autocomplete(r.Context(), q.Get("input"), q.Get("sessionToken"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, preds)
}

func (h *PlacesHandler) Details(w http.ResponseWriter, r *http.Request) {
	d, err := h.places.Details(r.Context(), r.URL.Query().Get("placeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, d)
}
