package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
)

// listLocations handles GET /api/locations
func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.locationStorage(w)
	if !ok {
		return
	}

	locations, err := ls.ListLocations()
	if err != nil {
		log.Error("Failed to list locations", "error", err)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, locations)
}

// getLocation handles GET /api/locations/{id}
func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.locationStorage(w)
	if !ok {
		return
	}

	id := r.PathValue("id")
	location, err := ls.GetLocation(id)
	if err != nil {
		if errors.Is(err, storage.ErrLocationNotFound) {
			h.writeError(w, http.StatusNotFound, "location not found")
			return
		}
		log.Error("Failed to get location", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, location)
}

// createLocation handles POST /api/locations
func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.locationStorage(w)
	if !ok {
		return
	}

	var location model.Location
	if err := json.NewDecoder(r.Body).Decode(&location); err != nil {
		log.Warn("Invalid location creation request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if location.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if location.ID == "" {
		location.ID = generateID()
	}

	if err := ls.CreateLocation(&location); err != nil {
		log.Error("Failed to create location", "error", err, "name", location.Name)
		h.internalError(w, err)
		return
	}

	log.Info("Created location", "id", location.ID, "name", location.Name)
	h.writeJSON(w, http.StatusCreated, location)
}

// updateLocation handles PUT /api/locations/{id}
func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.locationStorage(w)
	if !ok {
		return
	}

	var location model.Location
	if err := json.NewDecoder(r.Body).Decode(&location); err != nil {
		log.Warn("Invalid location update request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	location.ID = r.PathValue("id")
	if location.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := ls.UpdateLocation(&location); err != nil {
		if errors.Is(err, storage.ErrLocationNotFound) {
			h.writeError(w, http.StatusNotFound, "location not found")
			return
		}
		log.Error("Failed to update location", "error", err, "id", location.ID)
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, location)
}

// deleteLocation handles DELETE /api/locations/{id}
func (h *Handler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.locationStorage(w)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := ls.DeleteLocation(id); err != nil {
		if errors.Is(err, storage.ErrLocationNotFound) {
			h.writeError(w, http.StatusNotFound, "location not found")
			return
		}
		log.Error("Failed to delete location", "error", err, "id", id)
		h.internalError(w, err)
		return
	}

	log.Info("Deleted location", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
