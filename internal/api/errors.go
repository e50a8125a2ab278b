package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-firealarm/internal/assignment"
	"github.com/nerrad567/gray-logic-firealarm/internal/circuit"
	"github.com/nerrad567/gray-logic-firealarm/internal/design"
	"github.com/nerrad567/gray-logic-firealarm/internal/snapshot"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeTooLarge    = "payload_too_large"
	ErrCodeUnavailable = "service_unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps an error from the design service to a response.
// Unknown errors are logged and reported as 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, assignment.ErrAssignmentNotFound),
		errors.Is(err, design.ErrCircuitNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, assignment.ErrDuplicateElement),
		errors.Is(err, snapshot.ErrDuplicateDevice),
		errors.Is(err, design.ErrCircuitExists):
		writeConflict(w, err.Error())
	case errors.Is(err, snapshot.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, err.Error())
	case errors.Is(err, design.ErrSameCircuit),
		errors.Is(err, design.ErrSamePanel),
		errors.Is(err, design.ErrInvalidPanel),
		errors.Is(err, circuit.ErrInvalidDevice),
		errors.Is(err, circuit.ErrInvalidCircuitID),
		errors.Is(err, circuit.ErrInvalidAssignment),
		errors.Is(err, snapshot.ErrInvalidFile),
		errors.Is(err, snapshot.ErrNoDevices):
		writeBadRequest(w, err.Error())
	default:
		s.logger.Error("design operation failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r),
		)
		writeInternalError(w, "design operation failed")
	}
}
