package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

// MaxRestoreSize bounds an uploaded backup archive.
const MaxRestoreSize = 512 << 20

// Values of the X-Backup-Upload response header.
const (
	uploadSkipped = "skipped"
	uploadOK      = "uploaded"
	uploadFailed  = "failed"
)

type BackupHandler struct {
	backups  services.BackupService
	schedule services.ScheduleService
}

func NewBackupHandler(backups services.BackupService, schedule services.ScheduleService) *BackupHandler {
	return &BackupHandler{backups: backups, schedule: schedule}
}

// Backup godoc
// @Summary   Create a database backup and download it
// @Tags      admin
// @Produce   application/zip
// @Param     upload  query  bool  false  "also upload to SharePoint as the caller"
// @Success   200
// @Header    200  {string}  X-Backup-Upload  "skipped, uploaded or failed"
// @Failure   400  {object}  types.APIResponse  "database is not SQLite"
// @Security  BearerAuth
// @Router    /admin/backup [get]
func (h *BackupHandler) Backup(w http.ResponseWriter, r *http.Request) {
	archive, err := h.backups.Create(r.Context(), services.BackupTypeManual)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := uploadSkipped
	if queryBool(r, "upload") {
		// upload problems are reported, never fatal: the caller still gets the file
		if _, err := h.backups.Upload(r.Context(), currentUser(r), archive); err != nil {
			logger.L().Warn("backup upload failed", zap.String("name", archive.Name), zap.Error(err))
			status = uploadFailed
		} else {
			status = uploadOK
		}
	}
	w.Header().Set("X-Backup-Upload", status)
	h.stream(w, r, archive.Name)
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, chi.URLParam(r, "name"))
}

func (h *BackupHandler) stream(w http.ResponseWriter, r *http.Request, name string) {
	f, err := h.backups.Open(name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if st, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(st.Size(), 10))
	}
	if _, err := io.Copy(w, f); err != nil {
		logger.L().Warn("backup download interrupted", zap.String("name", name), zap.Error(err))
	}
}

// Restore godoc
// @Summary   Replace the database from an uploaded backup archive
// @Tags      admin
// @Accept    multipart/form-data
// @Produce   json
// @Param     file  formData  file  true  "backup zip"
// @Success   200   {object}  types.APIResponse{data=services.RestoreResult}
// @Failure   400   {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /admin/restore [post]
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRestoreSize)
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

	res, err := h.backups.Restore(r.Context(), file, header.Size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.L().Warn("restore requested", zap.String("user_id", currentUser(r).ID.String()), zap.String("upload", header.Filename))
	writeData(w, http.StatusOK, res)
}

// Scheduled runs an unattended backup. It sits outside session auth and is
// gated by the shared secret instead.
func (h *BackupHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	token := ""
	if a := r.Header.Get("Authorization"); len(a) > 7 && strings.EqualFold(a[:7], "bearer ") {
		token = strings.TrimSpace(a[7:])
	}
	if !h.backups.CheckSecret(token) {
		writeError(w, r, appErr.New(appErr.CodeUnauthorized, "invalid backup secret"))
		return
	}
	archive, err := h.backups.RunScheduled(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, archive)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.backups.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.Delete(chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// GetSchedule returns the authoritative schedule, or null when none was saved.
func (h *BackupHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	bs, err := h.schedule.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": nil})
		return
	}
	writeData(w, http.StatusOK, bs)
}

func (h *BackupHandler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var req types.ScheduleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bs, err := h.schedule.Put(r.Context(), currentUser(r), &services.ScheduleInput{Enabled: req.Enabled, Frequency: req.Frequency})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bs)
}

func (h *BackupHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.schedule.Delete(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
