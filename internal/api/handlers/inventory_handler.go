package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/labels"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/services"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

const maxCSVUpload = 10 << 20

type InventoryHandler struct {
	inventory services.InventoryService
	baseURL   string
}

func NewInventoryHandler(inv services.InventoryService, baseURL string) *InventoryHandler {
	return &InventoryHandler{inventory: inv, baseURL: baseURL}
}

func itemInput(req *types.ItemRequest) *services.ItemInput {
	return &services.ItemInput{
		Name:              req.Name,
		Description:       req.Description,
		SKU:               req.SKU,
		PartNumber:        req.PartNumber,
		Category:          req.Category,
		JobTypeID:         req.JobTypeID,
		ClearJobType:      req.ClearJobType,
		Quantity:          req.Quantity,
		Threshold:         req.Threshold,
		Unit:              req.Unit,
		SerialTracked:     req.SerialTracked,
		Location:          req.Location,
		Supplier:          req.Supplier,
		Distributor:       req.Distributor,
		OrderContactName:  req.OrderContactName,
		OrderContactEmail: req.OrderContactEmail,
		OrderContactPhone: req.OrderContactPhone,
		Cost:              req.Cost,
		Notes:             req.Notes,
	}
}

func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	jobTypeID, err := queryID(r, "jobTypeId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, err := h.inventory.ListItems(r.Context(), repository.ItemFilter{
		Search:       q.Get("search"),
		Category:     q.Get("category"),
		JobTypeID:    jobTypeID,
		LowStockOnly: queryBool(r, "lowStock"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

// LowStock godoc
// @Summary   Items whose available stock is below their threshold
// @Tags      inventory
// @Produce   json
// @Success   200  {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /inventory/low-stock [get]
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context(), repository.ItemFilter{LowStockOnly: true})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.inventory.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req types.ItemRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		writeErrorStr(w, r, "name is required")
		return
	}
	item, err := h.inventory.CreateItem(r.Context(), itemInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.ItemRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.inventory.UpdateItem(r.Context(), id, itemInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.inventory.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *InventoryHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	units, err := h.inventory.ListUnits(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, units)
}

func (h *InventoryHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.UnitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SerialNumber == nil {
		writeErrorStr(w, r, "serialNumber is required")
		return
	}
	u, err := h.inventory.CreateUnit(r.Context(), itemID, &services.UnitInput{
		SerialNumber: req.SerialNumber,
		AssetTag:     req.AssetTag,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (h *InventoryHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.inventory.GetUnit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (h *InventoryHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.UnitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.inventory.UpdateUnit(r.Context(), id, &services.UnitInput{
		SerialNumber: req.SerialNumber,
		AssetTag:     req.AssetTag,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (h *InventoryHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.inventory.DeleteUnit(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *InventoryHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	var f repository.AssignmentFilter
	var err error
	if f.ItemID, err = queryID(r, "itemId"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.ProjectID, err = queryID(r, "projectId"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.MilestoneID, err = queryID(r, "milestoneId"); err != nil {
		writeError(w, r, err)
		return
	}
	f.Status = r.URL.Query().Get("status")
	items, err := h.inventory.ListAssignments(r.Context(), currentUser(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

// Assign godoc
// @Summary   Allocate stock or a serial unit to a project or milestone
// @Tags      inventory
// @Accept    json
// @Produce   json
// @Param     body  body      types.AssignRequest  true  "assignment"
// @Success   201   {object}  types.APIResponse
// @Failure   400   {object}  types.APIResponse  "insufficient inventory"
// @Security  BearerAuth
// @Router    /inventory/assignments [post]
func (h *InventoryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req types.AssignRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.inventory.Assign(r.Context(), currentUser(r), &services.AssignInput{
		ItemID:      req.ItemID,
		UnitID:      req.UnitID,
		Quantity:    req.Quantity,
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

func (h *InventoryHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.AssignmentUpdateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.inventory.UpdateAssignment(r.Context(), currentUser(r), id, &services.AssignmentUpdate{Status: req.Status, Notes: req.Notes})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

func (h *InventoryHandler) ReturnAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.inventory.ReturnAssignment(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *InventoryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("inventory-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := h.inventory.ExportCSV(r.Context(), w); err != nil {
		// headers are gone once rows stream; all we can do is log
		logger.L().Error("inventory export failed", zap.Error(err))
	}
}

// ImportCSV accepts a multipart "file" field or a raw text/csv body.
func (h *InventoryHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUpload)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid multipart upload"))
			return
		}
		defer r.MultipartForm.RemoveAll()
		f, _, err := r.FormFile("file")
		if err != nil {
			writeErrorStr(w, r, "file field is required")
			return
		}
		defer f.Close()
		src = f
	}
	res, err := h.inventory.ImportCSV(r.Context(), src)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *InventoryHandler) ItemLabel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.inventory.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	caption := []string{item.Name}
	if item.SKU != "" {
		caption = append(caption, "SKU "+item.SKU)
	}
	h.writeLabel(w, r, labels.ItemURL(h.baseURL, item.ID, nil), caption...)
}

func (h *InventoryHandler) UnitLabel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	unit, err := h.inventory.GetUnit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.inventory.GetItem(r.Context(), unit.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLabel(w, r, labels.ItemURL(h.baseURL, item.ID, &unit.ID), item.Name, "S/N "+unit.SerialNumber)
}

func (h *InventoryHandler) writeLabel(w http.ResponseWriter, r *http.Request, content string, caption ...string) {
	png, err := labels.Render(content, caption...)
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInternal, "render label failed"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(png)
}
