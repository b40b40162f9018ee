package api

import (
	"errors"
	"net/http"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/secrets"
	"github.com/druroland/myriad/internal/sync"
)

// syncHosts handles POST /api/sync/hosts and
// POST /api/sync/hosts/{integration}. Without an integration path
// segment every configured discovery source runs.
func (h *Handler) syncHosts(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}

	integration := r.PathValue("integration")
	if integration == "" {
		results := h.syncer.SyncAllHosts(r.Context())
		h.writeJSON(w, http.StatusOK, results)
		return
	}

	result, err := h.syncer.SyncHosts(r.Context(), integration)
	if err != nil {
		h.syncError(w, err, integration)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// syncVMs handles POST /api/sync/vms and POST /api/sync/vms/{integration}
func (h *Handler) syncVMs(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}

	integration := r.PathValue("integration")
	if integration == "" {
		results := h.syncer.SyncAllClusters(r.Context())
		h.writeJSON(w, http.StatusOK, results)
		return
	}

	result, err := h.syncer.SyncCluster(r.Context(), integration)
	if err != nil {
		h.syncError(w, err, integration)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// syncError maps sync failures onto HTTP status codes. Configuration
// problems are client errors, unreachable integrations map to 502.
func (h *Handler) syncError(w http.ResponseWriter, err error, integration string) {
	switch {
	case errors.Is(err, sync.ErrIntegrationNotFound),
		errors.Is(err, secrets.ErrInvalidReference),
		errors.Is(err, secrets.ErrCredentialsNotFound):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sync.ErrConnectionFailed):
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error("Sync failed", "integration", integration, "error", err)
		h.internalError(w, err)
	}
}
