// Package api implements the HTTP API over the inventory storage and
// the sync engine
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
)

// Syncer is the part of the sync engine the API triggers
type Syncer interface {
	SyncHosts(ctx context.Context, integrationID string) (*model.HostSyncResult, error)
	SyncAllHosts(ctx context.Context) []model.HostSyncResult
	SyncCluster(ctx context.Context, hypervisorID string) (*model.ClusterSyncResult, error)
	SyncAllClusters(ctx context.Context) []model.ClusterSyncResult
}

// Handler contains the API handlers
type Handler struct {
	storage storage.Storage
	syncer  Syncer
}

// NewHandler creates a new API handler
func NewHandler(storage storage.Storage, syncer Syncer) *Handler {
	return &Handler{storage: storage, syncer: syncer}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Host routes
	mux.HandleFunc("GET /api/hosts", h.listHosts)
	mux.HandleFunc("POST /api/hosts", h.createHost)
	mux.HandleFunc("GET /api/hosts/stats", h.hostStats)
	mux.HandleFunc("GET /api/hosts/{id}", h.getHost)
	mux.HandleFunc("PATCH /api/hosts/{id}", h.updateHost)
	mux.HandleFunc("DELETE /api/hosts/{id}", h.deleteHost)

	// Virtual machine routes
	mux.HandleFunc("GET /api/vms", h.listVMs)
	mux.HandleFunc("GET /api/vms/stats", h.vmStats)
	mux.HandleFunc("GET /api/vms/{id}", h.getVM)
	mux.HandleFunc("GET /api/vms/{id}/snapshots", h.listVMSnapshots)

	// Hypervisor routes
	mux.HandleFunc("GET /api/hypervisors", h.listHypervisors)
	mux.HandleFunc("GET /api/hypervisors/{id}", h.getHypervisor)

	// Location routes
	mux.HandleFunc("GET /api/locations", h.listLocations)
	mux.HandleFunc("POST /api/locations", h.createLocation)
	mux.HandleFunc("GET /api/locations/{id}", h.getLocation)
	mux.HandleFunc("PUT /api/locations/{id}", h.updateLocation)
	mux.HandleFunc("DELETE /api/locations/{id}", h.deleteLocation)

	// Sync routes
	mux.HandleFunc("POST /api/sync/hosts", h.syncHosts)
	mux.HandleFunc("POST /api/sync/hosts/{integration}", h.syncHosts)
	mux.HandleFunc("POST /api/sync/vms", h.syncVMs)
	mux.HandleFunc("POST /api/sync/vms/{integration}", h.syncVMs)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal server error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

// generateID generates a UUIDv7 for a new entity
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// clusterStorage returns the cluster capability of the storage backend
func (h *Handler) clusterStorage(w http.ResponseWriter) (storage.ClusterStorage, bool) {
	cs, ok := h.storage.(storage.ClusterStorage)
	if !ok {
		h.writeError(w, http.StatusNotImplemented, "storage does not support clusters")
	}
	return cs, ok
}

// locationStorage returns the location capability of the storage backend
func (h *Handler) locationStorage(w http.ResponseWriter) (storage.LocationStorage, bool) {
	ls, ok := h.storage.(storage.LocationStorage)
	if !ok {
		h.writeError(w, http.StatusNotImplemented, "storage does not support locations")
	}
	return ls, ok
}
