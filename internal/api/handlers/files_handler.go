package handlers

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/services"
	"github.com/voltworks/portal/internal/storage"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

// MaxUploadSize bounds a single multipart upload.
const MaxUploadSize = 100 << 20

type FilesHandler struct {
	files services.FileService
	local *storage.Local
}

// NewFilesHandler takes the local store for /uploads; nil when files live elsewhere.
func NewFilesHandler(files services.FileService, local *storage.Local) *FilesHandler {
	return &FilesHandler{files: files, local: local}
}

func projectFiles(id uuid.UUID) services.FileTarget   { return services.FileTarget{ProjectID: &id} }
func milestoneFiles(id uuid.UUID) services.FileTarget { return services.FileTarget{MilestoneID: &id} }
func taskFiles(id uuid.UUID) services.FileTarget      { return services.FileTarget{TaskID: &id} }

func (h *FilesHandler) UploadToProject(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, projectFiles)
}

func (h *FilesHandler) UploadToMilestone(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, milestoneFiles)
}

func (h *FilesHandler) UploadToTask(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, taskFiles)
}

func (h *FilesHandler) ListForProject(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, projectFiles)
}

func (h *FilesHandler) ListForMilestone(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, milestoneFiles)
}

func (h *FilesHandler) ListForTask(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, taskFiles)
}

func (h *FilesHandler) upload(w http.ResponseWriter, r *http.Request, target func(uuid.UUID) services.FileTarget) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid multipart upload"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorStr(w, r, "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(path.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}
	f, err := h.files.Upload(r.Context(), currentUser(r), target(id), &services.UploadInput{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, f)
}

func (h *FilesHandler) list(w http.ResponseWriter, r *http.Request, target func(uuid.UUID) services.FileTarget) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.files.List(r.Context(), currentUser(r), target(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

// Download streams the object from whichever store holds it.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, body, err := h.files.Open(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	ct := f.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		logger.L().Warn("file download interrupted", zap.String("file_id", id.String()), zap.Error(err))
	}
}

func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.files.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// ServeUpload serves /uploads/* straight from the upload directory.
func (h *FilesHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		writeError(w, r, appErr.NotFound("file not found"))
		return
	}
	full, err := h.local.Resolve(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && st.IsDir()) {
		writeError(w, r, appErr.NotFound("file not found"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, full)
}
