package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// PLACE HANDLERS
// =============================================================================

// ListPlaces returns all places, newest first.
// GET /api/places
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := h.Store.ListPlaces(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to list places")
		return
	}
	dtos := make([]PlaceDTO, len(places))
	for i, p := range places {
		dtos[i] = toPlaceDTO(p, h.loc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlace returns a single place.
// GET /api/places/{id}
func (h *Handler) GetPlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid place ID", err)
		return
	}
	p, err := h.Store.GetPlace(r.Context(), fuel.PlaceID(id))
	if err != nil {
		h.fail(w, r, err, "Failed to get place")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Place not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPlaceDTO(*p, h.loc))
}

// ListPlaceMachinery returns the machines located at a place.
// GET /api/places/{id}/machinery
func (h *Handler) ListPlaceMachinery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid place ID", err)
		return
	}
	machines, err := h.Store.ListMachineryByPlace(r.Context(), fuel.PlaceID(id))
	if err != nil {
		h.fail(w, r, err, "Failed to list machinery")
		return
	}
	writeJSON(w, http.StatusOK, h.machineryDTOs(machines))
}

// CreatePlace creates a new place.
// POST /api/places
func (h *Handler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Ledger.CreatePlace(r.Context(), fuel.Place{
		Name:        req.Name,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err, "Failed to create place")
		return
	}
	writeJSON(w, http.StatusCreated, toPlaceDTO(*p, h.loc))
}

// UpdatePlace replaces a place.
// PUT /api/places/{id}
func (h *Handler) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid place ID", err)
		return
	}
	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Ledger.UpdatePlace(r.Context(), fuel.Place{
		ID:          fuel.PlaceID(id),
		Name:        req.Name,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err, "Failed to update place")
		return
	}
	writeJSON(w, http.StatusOK, toPlaceDTO(*p, h.loc))
}

// DeletePlace removes a place that no machine references.
// DELETE /api/places/{id}
func (h *Handler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid place ID", err)
		return
	}
	if err := h.Ledger.DeletePlace(r.Context(), fuel.PlaceID(id)); err != nil {
		h.fail(w, r, err, "Failed to delete place")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Place deleted successfully"})
}

// =============================================================================
// MACHINERY HANDLERS
// =============================================================================

func (h *Handler) machineryDTOs(machines []fuel.Machinery) []MachineryDTO {
	dtos := make([]MachineryDTO, len(machines))
	for i, m := range machines {
		dtos[i] = toMachineryDTO(m, h.loc)
	}
	return dtos
}

// ListMachinery returns all machines with their place names.
// GET /api/machinery
func (h *Handler) ListMachinery(w http.ResponseWriter, r *http.Request) {
	machines, err := h.Store.ListMachinery(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to list machinery")
		return
	}
	writeJSON(w, http.StatusOK, h.machineryDTOs(machines))
}

// GetMachinery returns a single machine.
// GET /api/machinery/{id}
func (h *Handler) GetMachinery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid machinery ID", err)
		return
	}
	m, err := h.Store.GetMachinery(r.Context(), fuel.MachineryID(id))
	if err != nil {
		h.fail(w, r, err, "Failed to get machinery")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Machinery not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMachineryDTO(*m, h.loc))
}

func (req MachineryRequest) toMachinery(id fuel.MachineryID) fuel.Machinery {
	m := fuel.Machinery{
		ID:          id,
		Name:        req.Name,
		Type:        strings.TrimSpace(req.Type),
		Description: req.Description,
		Capacity:    fuel.ZeroLitres(),
	}
	if req.PlaceID != nil {
		p := fuel.PlaceID(*req.PlaceID)
		m.PlaceID = &p
	}
	if req.Capacity != nil {
		m.Capacity = fuel.Litres{Value: *req.Capacity}
	}
	return m
}

// CreateMachinery creates a machine at an existing place.
// POST /api/machinery
func (h *Handler) CreateMachinery(w http.ResponseWriter, r *http.Request) {
	var req MachineryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := h.Ledger.CreateMachinery(r.Context(), req.toMachinery(0))
	if err != nil {
		h.fail(w, r, err, "Failed to create machinery")
		return
	}
	writeJSON(w, http.StatusCreated, toMachineryDTO(*m, h.loc))
}

// UpdateMachinery replaces a machine.
// PUT /api/machinery/{id}
func (h *Handler) UpdateMachinery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid machinery ID", err)
		return
	}
	var req MachineryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := h.Ledger.UpdateMachinery(r.Context(), req.toMachinery(fuel.MachineryID(id)))
	if err != nil {
		h.fail(w, r, err, "Failed to update machinery")
		return
	}
	writeJSON(w, http.StatusOK, toMachineryDTO(*m, h.loc))
}

// DeleteMachinery removes a machine with no recorded events.
// DELETE /api/machinery/{id}
func (h *Handler) DeleteMachinery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid machinery ID", err)
		return
	}
	if err := h.Ledger.DeleteMachinery(r.Context(), fuel.MachineryID(id)); err != nil {
		h.fail(w, r, err, "Failed to delete machinery")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Machinery deleted successfully"})
}
