package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	appErr "github.com/voltworks/portal/pkg/errors"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[appErr.Code]int{
		appErr.CodeInvalid:      http.StatusBadRequest,
		appErr.CodeUnauthorized: http.StatusUnauthorized,
		appErr.CodeForbidden:    http.StatusForbidden,
		appErr.CodeNotFound:     http.StatusNotFound,
		appErr.CodeConflict:     http.StatusConflict,
		appErr.CodeUnavailable:  http.StatusBadGateway,
		appErr.CodeInternal:     http.StatusInternalServerError,
		appErr.CodeUnknown:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}

func TestFromAppErrorHidesInternalCauses(t *testing.T) {
	e := FromAppError(appErr.Wrap(errors.New("disk on fire"), appErr.CodeInternal, "write failed"))
	assert.Equal(t, "internal", e.Code)
	assert.Equal(t, "internal server error", e.Message)

	e = FromAppError(errors.New("raw driver error"))
	assert.Equal(t, "internal server error", e.Message)

	e = FromAppError(appErr.Invalid("insufficient inventory: requested 3, available 2"))
	assert.Equal(t, "invalid", e.Code)
	assert.Equal(t, "insufficient inventory: requested 3, available 2", e.Message)

	e = FromAppError(appErr.New(appErr.CodeUnavailable, "SharePoint request failed").WithMeta("details", `{"error":"denied"}`))
	assert.Equal(t, `{"error":"denied"}`, e.Details)

	assert.Nil(t, FromAppError(nil))
}
