package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
	appErr "github.com/voltworks/portal/pkg/errors"
)

type TemplatesHandler struct {
	templates services.TemplateService
}

func NewTemplatesHandler(t services.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: t}
}

func templateInput(req *types.TemplateRequest) *services.TemplateInput {
	in := &services.TemplateInput{Name: req.Name, Description: req.Description, IsDefault: req.IsDefault}
	if req.Milestones != nil {
		in.Milestones = make([]services.TemplateMilestoneDoc, 0, len(req.Milestones))
		for _, m := range req.Milestones {
			doc := services.TemplateMilestoneDoc{
				Name:        m.Name,
				Description: m.Description,
				Category:    m.Category,
				Order:       m.Order,
				Tasks:       make([]services.TemplateTaskDoc, 0, len(m.Tasks)),
			}
			for _, t := range m.Tasks {
				doc.Tasks = append(doc.Tasks, services.TemplateTaskDoc(t))
			}
			in.Milestones = append(in.Milestones, doc)
		}
	}
	return in
}

func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.templates.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.templates.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.TemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		writeErrorStr(w, r, "name is required")
		return
	}
	t, err := h.templates.Create(r.Context(), templateInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

// Update replaces the milestone tree when milestones is present in the body.
func (h *TemplatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.TemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.templates.Update(r.Context(), id, templateInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.templates.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// Export downloads a single template document.
func (h *TemplatesHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := h.templates.Export(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, "template-"+slug(doc.Name)+".json", doc)
}

// ExportAll downloads every template as a versioned bundle.
func (h *TemplatesHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.templates.ExportAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, fmt.Sprintf("templates-%s.json", time.Now().UTC().Format("20060102")), bundle)
}

// Import godoc
// @Summary   Import a template document or bundle, upserting by name
// @Tags      templates
// @Accept    json
// @Produce   json
// @Success   200  {object}  types.APIResponse
// @Failure   400  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /templates/import [post]
func (h *TemplatesHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeErrorStr(w, r, "request body is too large")
			return
		}
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "read body failed"))
		return
	}
	items, err := h.templates.Import(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func writeAttachment(w http.ResponseWriter, filename string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "template"
	}
	return out
}
