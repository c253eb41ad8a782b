package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/api/middleware"
	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/api/validators"
	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

const maxJSONBody = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps err to its status. Anything that lands on 500 is logged with its cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(appErr.CodeOf(err))
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else if status == http.StatusBadGateway {
		logger.L().Warn("upstream failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	resp := types.APIResponse{Success: false, Error: types.FromAppError(err), Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}}
	writeJSON(w, status, resp)
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, appErr.Invalid(msg))
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return appErr.Invalid("request body is required")
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return appErr.Invalid("request body is too large")
		}
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	if err := validators.New().Struct(dst); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, validators.Message(err))
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErr.Newf(appErr.CodeInvalid, "invalid %s", name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, appErr.Newf(appErr.CodeInvalid, "invalid %s", name)
	}
	return &id, nil
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func currentUser(r *http.Request) *models.User {
	return middleware.GetUser(r.Context())
}
