package types

import (
	"errors"
	"net/http"

	appErr "github.com/voltworks/portal/pkg/errors"
)

const internalMessage = "internal server error"

// FromAppError converts err into the wire error. Internal failures never leak their cause.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		if HTTPStatus(e.Code) == http.StatusInternalServerError {
			return &APIError{Code: string(appErr.CodeInternal), Message: internalMessage}
		}
		out := &APIError{Code: string(e.Code), Message: e.Message}
		if d, ok := e.Meta["details"].(string); ok {
			out.Details = d
		}
		return out
	}
	return &APIError{Code: string(appErr.CodeInternal), Message: internalMessage}
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code appErr.Code) int {
	switch code {
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict, appErr.CodeAlreadyExists:
		return http.StatusConflict
	case appErr.CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
