package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/mac"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
)

// listHosts handles GET /api/hosts
func (h *Handler) listHosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &model.HostFilter{
		LocationID: q.Get("location"),
		Status:     model.HostStatus(q.Get("status")),
	}
	filter.Limit, filter.Offset = pagination(q.Get("limit"), q.Get("offset"))

	hosts, total, err := h.storage.ListHosts(filter)
	if err != nil {
		log.Error("Failed to list hosts", "error", err)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"hosts": hosts,
		"total": total,
	})
}

// getHost handles GET /api/hosts/{id}
func (h *Handler) getHost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostID(w, r)
	if !ok {
		return
	}

	host, err := h.storage.GetHost(id)
	if err != nil {
		if errors.Is(err, storage.ErrHostNotFound) {
			h.writeError(w, http.StatusNotFound, "host not found")
			return
		}
		log.Error("Failed to get host", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, host)
}

// createHost handles POST /api/hosts
func (h *Handler) createHost(w http.ResponseWriter, r *http.Request) {
	var host model.Host
	if err := json.NewDecoder(r.Body).Decode(&host); err != nil {
		log.Warn("Invalid host creation request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	normalized, err := mac.Normalize(host.MACAddress)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid MAC address: "+host.MACAddress)
		return
	}
	host.MACAddress = normalized

	if err := h.storage.CreateHost(&host); err != nil {
		if errors.Is(err, storage.ErrDuplicateMAC) {
			h.writeError(w, http.StatusConflict, "host with this MAC address already exists")
			return
		}
		log.Error("Failed to create host", "error", err, "mac", host.MACAddress)
		h.internalError(w, err)
		return
	}

	log.Info("Created host", "id", host.ID, "mac", host.MACAddress)
	h.writeJSON(w, http.StatusCreated, host)
}

// updateHost handles PATCH /api/hosts/{id}. Only the fields present in
// the request body change, everything else keeps its stored value.
func (h *Handler) updateHost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostID(w, r)
	if !ok {
		return
	}

	var update model.HostUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Warn("Invalid host update request body", "error", err, "id", id)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	host, err := h.storage.GetHost(id)
	if err != nil {
		if errors.Is(err, storage.ErrHostNotFound) {
			h.writeError(w, http.StatusNotFound, "host not found")
			return
		}
		h.internalError(w, err)
		return
	}

	applyHostUpdate(host, &update)

	if err := h.storage.UpdateHost(host); err != nil {
		if errors.Is(err, storage.ErrHostNotFound) {
			h.writeError(w, http.StatusNotFound, "host not found")
			return
		}
		log.Error("Failed to update host", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	log.Info("Updated host", "id", host.ID, "name", host.EffectiveName())
	h.writeJSON(w, http.StatusOK, host)
}

// deleteHost handles DELETE /api/hosts/{id}
func (h *Handler) deleteHost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostID(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteHost(id); err != nil {
		if errors.Is(err, storage.ErrHostNotFound) {
			h.writeError(w, http.StatusNotFound, "host not found")
			return
		}
		log.Error("Failed to delete host", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	log.Info("Deleted host", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// hostStats handles GET /api/hosts/stats
func (h *Handler) hostStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storage.HostStats()
	if err != nil {
		log.Error("Failed to compute host stats", "error", err)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) hostID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid host ID")
		return 0, false
	}
	return id, true
}

func applyHostUpdate(host *model.Host, update *model.HostUpdate) {
	if update.Hostname != nil {
		host.Hostname = update.Hostname
	}
	if update.DisplayName != nil {
		host.DisplayName = update.DisplayName
	}
	if update.IPAddress != nil {
		host.IPAddress = update.IPAddress
	}
	if update.HostType != nil {
		host.HostType = *update.HostType
	}
	if update.LocationID != nil {
		if *update.LocationID == "" {
			host.LocationID = nil
		} else {
			host.LocationID = update.LocationID
		}
	}
	if update.Vendor != nil {
		host.Vendor = update.Vendor
	}
	if update.Model != nil {
		host.Model = update.Model
	}
	if update.Notes != nil {
		host.Notes = update.Notes
	}
}

// pagination parses limit and offset query parameters
func pagination(limitStr, offsetStr string) (int, int) {
	limit := 0
	offset := 0
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if offsetStr != "" {
		if n, err := strconv.Atoi(offsetStr); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
