package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
	appErr "github.com/voltworks/portal/pkg/errors"
)

type UsersHandler struct {
	users services.UserService
	auth  services.AuthService
}

func NewUsersHandler(users services.UserService, auth services.AuthService) *UsersHandler {
	return &UsersHandler{users: users, auth: auth}
}

// Assignable lists every user with only the fields needed to pick an assignee.
func (h *UsersHandler) Assignable(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]types.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, types.UserSummary{ID: u.ID.String(), Name: u.Name, Email: u.Email})
	}
	writeList(w, out)
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, users)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.UserCreateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), &services.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.UserUpdateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Update(r.Context(), currentUser(r), id, &services.UpdateUserInput{
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// Photo proxies the caller's Microsoft profile photo.
func (h *UsersHandler) Photo(w http.ResponseWriter, r *http.Request) {
	graph, err := h.auth.GraphFor(r.Context(), currentUser(r))
	if appErr.IsCode(err, appErr.CodeUnauthorized) {
		// an unlinked account is not a broken session
		writeError(w, r, appErr.NotFound("no profile photo"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, contentType, err := graph.Photo(r.Context())
	if err != nil {
		writeError(w, r, graphError(err, "profile photo unavailable"))
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}
