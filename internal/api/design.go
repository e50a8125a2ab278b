package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-firealarm/internal/design"
	"github.com/nerrad567/gray-logic-firealarm/internal/snapshot"
)

// handleRun replaces the design with one computed from a snapshot body.
// The body uses the snapshot file format, as YAML or JSON.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	snap, err := snapshot.Parse(data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.design.Run(r.Context(), snap.Devices, snap.Metadata)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleListCircuits returns a summary of every circuit.
func (s *Server) handleListCircuits(w http.ResponseWriter, _ *http.Request) {
	summaries := s.design.Summaries()
	writeJSON(w, http.StatusOK, map[string]any{
		"circuits": summaries,
		"count":    len(summaries),
	})
}

// handleValidateCircuit checks one circuit's capacity and addressing.
func (s *Server) handleValidateCircuit(w http.ResponseWriter, r *http.Request) {
	report, err := s.design.Validate(chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleValidateAll checks every circuit and panel.
func (s *Server) handleValidateAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.design.ValidateAll())
}

// writeResult writes the result of an edit.
//
// A committed edit is 200 even when it carries issues. A rejected edit is 422
// with the same body, so the caller sees why.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res design.Result, err error) {
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !res.Committed && !res.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readBody reads the whole request body, writing the error response itself
// when the body is missing or too large.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return nil, false
		}
		writeBadRequest(w, "failed to read request body")
		return nil, false
	}
	if len(data) == 0 {
		writeBadRequest(w, "request body is required")
		return nil, false
	}
	return data, true
}
