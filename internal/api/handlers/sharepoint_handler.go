package handlers

import (
	"errors"
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/integrations/msgraph"
	appErr "github.com/voltworks/portal/pkg/errors"
)

// graphError turns a Graph failure into an upstream error carrying the provider body.
func graphError(err error, msg string) error {
	var ae *msgraph.APIError
	if errors.As(err, &ae) {
		if ae.Status == http.StatusNotFound {
			return appErr.NotFound(msg)
		}
		return appErr.Wrap(err, appErr.CodeUnavailable, msg).WithMeta("details", ae.Body)
	}
	return appErr.Wrap(err, appErr.CodeUnavailable, msg)
}

type SharePointHandler struct {
	graph  *msgraph.Client
	siteID string
}

// NewSharePointHandler takes an app-only Graph client; nil when Azure AD is not configured.
func NewSharePointHandler(graph *msgraph.Client, siteID string) *SharePointHandler {
	return &SharePointHandler{graph: graph, siteID: siteID}
}

// Test lists the configured site's drives so an admin can verify permissions.
// Provider error bodies are echoed on purpose.
func (h *SharePointHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil || h.siteID == "" {
		writeError(w, r, appErr.New(appErr.CodeUnavailable, "SharePoint is not configured: set AZURE_AD_* and SHAREPOINT_SITE_ID"))
		return
	}
	drives, err := h.graph.ListSiteDrives(r.Context(), h.siteID)
	if err != nil {
		var ae *msgraph.APIError
		if errors.As(err, &ae) {
			writeJSON(w, http.StatusBadGateway, types.APIResponse{
				Success: false,
				Error:   &types.APIError{Code: string(appErr.CodeUnavailable), Message: "SharePoint request failed", Details: ae.Body},
			})
			return
		}
		writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "SharePoint request failed").WithMeta("details", err.Error()))
		return
	}
	writeData(w, http.StatusOK, types.SharePointTestResponse{SiteID: h.siteID, Drives: drives})
}
