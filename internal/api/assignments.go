package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
)

// handleListAssignments returns every assignment, optionally filtered by
// ?circuit_id= or ?panel_id=.
func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	circuitID := r.URL.Query().Get("circuit_id")
	panelID := r.URL.Query().Get("panel_id")

	all := s.design.Assignments()
	out := make([]circuit.Assignment, 0, len(all))
	for _, a := range all {
		if circuitID != "" && a.CircuitID != circuitID {
			continue
		}
		if panelID != "" && a.PanelID != panelID {
			continue
		}
		out = append(out, a)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assignments": out,
		"count":       len(out),
	})
}

// handleGetAssignment returns one assignment with its device record.
func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}

	detail, err := s.design.Assignment(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleRemoveDevice removes a device from the design.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	res, err := s.design.RemoveDevice(r.Context(), id)
	s.writeResult(w, r, res, err)
}

// moveDeviceRequest is the body of POST /assignments/{id}/move.
type moveDeviceRequest struct {
	CircuitID string `json:"circuit_id"`
}

// handleMoveDevice moves a device onto another circuit.
func (s *Server) handleMoveDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}

	var req moveDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CircuitID == "" {
		writeBadRequest(w, "circuit_id is required")
		return
	}

	res, err := s.design.MoveDevice(r.Context(), id, req.CircuitID)
	s.writeResult(w, r, res, err)
}

// handleLockAddress locks a device at its current address.
func (s *Server) handleLockAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	res, err := s.design.LockAddress(r.Context(), id)
	s.writeResult(w, r, res, err)
}

// handleUnlockAddress returns a locked or manual device to auto.
func (s *Server) handleUnlockAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	res, err := s.design.UnlockAddress(r.Context(), id)
	s.writeResult(w, r, res, err)
}

// handleReleaseAddress clears an auto device's address.
func (s *Server) handleReleaseAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	res, err := s.design.ReleaseAddress(r.Context(), id)
	s.writeResult(w, r, res, err)
}

// setAddressRequest is the body of PUT /assignments/{id}/address.
type setAddressRequest struct {
	Address *int `json:"address"`
}

// handleSetManualAddress gives a device a user-chosen address.
func (s *Server) handleSetManualAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}

	var req setAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Address == nil {
		writeBadRequest(w, "address is required")
		return
	}

	res, err := s.design.SetManualAddress(r.Context(), id, *req.Address)
	s.writeResult(w, r, res, err)
}

// elementID parses the {id} URL parameter as an element ID.
func elementID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid element id")
		return 0, false
	}
	return id, true
}
