package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
)

// listVMs handles GET /api/vms
func (h *Handler) listVMs(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.clusterStorage(w)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := &model.VMFilter{
		HypervisorID: q.Get("hypervisor"),
		State:        model.VMState(q.Get("state")),
		Type:         model.VMType(q.Get("type")),
	}
	filter.Limit, filter.Offset = pagination(q.Get("limit"), q.Get("offset"))

	vms, total, err := cs.ListVMs(filter)
	if err != nil {
		log.Error("Failed to list virtual machines", "error", err)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vms":   vms,
		"total": total,
	})
}

// getVM handles GET /api/vms/{id}. The response embeds the stored
// snapshots of the machine.
func (h *Handler) getVM(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.clusterStorage(w)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid VM ID")
		return
	}

	vm, err := cs.GetVM(id)
	if err != nil {
		if errors.Is(err, storage.ErrVMNotFound) {
			h.writeError(w, http.StatusNotFound, "virtual machine not found")
			return
		}
		log.Error("Failed to get virtual machine", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	snapshots, err := cs.ListVMSnapshots(vm.ID)
	if err != nil {
		log.Error("Failed to list snapshots", "error", err, "vm_id", vm.ID)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vm":        vm,
		"snapshots": snapshots,
	})
}

// listVMSnapshots handles GET /api/vms/{id}/snapshots
func (h *Handler) listVMSnapshots(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.clusterStorage(w)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid VM ID")
		return
	}

	if _, err := cs.GetVM(id); err != nil {
		if errors.Is(err, storage.ErrVMNotFound) {
			h.writeError(w, http.StatusNotFound, "virtual machine not found")
			return
		}
		h.internalError(w, err)
		return
	}

	snapshots, err := cs.ListVMSnapshots(id)
	if err != nil {
		log.Error("Failed to list snapshots", "error", err, "vm_id", id)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshots)
}

// vmStats handles GET /api/vms/stats
func (h *Handler) vmStats(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.clusterStorage(w)
	if !ok {
		return
	}

	stats, err := cs.VMStats()
	if err != nil {
		log.Error("Failed to compute VM stats", "error", err)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// listHypervisors handles GET /api/hypervisors
func (h *Handler) listHypervisors(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.clusterStorage(w)
	if !ok {
		return
	}

	hypervisors, err := cs.ListHypervisors()
	if err != nil {
		log.Error("Failed to list hypervisors", "error", err)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, hypervisors)
}

// getHypervisor handles GET /api/hypervisors/{id}
func (h *Handler) getHypervisor(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.clusterStorage(w)
	if !ok {
		return
	}

	id := r.PathValue("id")
	hv, err := cs.GetHypervisor(id)
	if err != nil {
		if errors.Is(err, storage.ErrHypervisorNotFound) {
			h.writeError(w, http.StatusNotFound, "hypervisor not found")
			return
		}
		log.Error("Failed to get hypervisor", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, hv)
}
