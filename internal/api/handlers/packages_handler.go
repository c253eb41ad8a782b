package handlers

import (
	"net/http"

	"github.com/voltworks/portal/internal/api/types"
	"github.com/voltworks/portal/internal/services"
)

type PackagesHandler struct {
	inventory services.InventoryService
}

func NewPackagesHandler(inv services.InventoryService) *PackagesHandler {
	return &PackagesHandler{inventory: inv}
}

func packageInput(req *types.PackageRequest) *services.PackageInput {
	in := &services.PackageInput{Name: req.Name, Description: req.Description}
	if req.Items != nil {
		in.Items = make([]services.PackageItemInput, 0, len(req.Items))
		for _, it := range req.Items {
			in.Items = append(in.Items, services.PackageItemInput{ItemID: it.ItemID, Quantity: it.Quantity})
		}
	}
	return in
}

func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListPackages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items)
}

func (h *PackagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.inventory.GetPackage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *PackagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.PackageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil {
		writeErrorStr(w, r, "name is required")
		return
	}
	p, err := h.inventory.CreatePackage(r.Context(), packageInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *PackagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.PackageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.inventory.UpdatePackage(r.Context(), id, packageInput(&req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *PackagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.inventory.DeletePackage(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// Apply godoc
// @Summary   Assign every item of a package to a milestone, all or nothing
// @Tags      inventory
// @Accept    json
// @Produce   json
// @Param     id    path      string                     true  "package id"
// @Param     body  body      types.ApplyPackageRequest  true  "target milestone"
// @Success   201   {object}  types.APIResponse
// @Failure   400   {object}  types.APIResponse
// @Security  BearerAuth
// @Router    /inventory/packages/{id}/apply [post]
func (h *PackagesHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.ApplyPackageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.inventory.ApplyPackage(r.Context(), currentUser(r), id, req.MilestoneID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}
