package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-firealarm/internal/audit"
)

// handleListChanges returns committed design changes, most recent first.
//
// Query parameters: operation, circuit_id, limit (default 50, max 200), offset.
func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	if s.changes == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "change history not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Operation: q.Get("operation"),
		CircuitID: q.Get("circuit_id"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "invalid limit")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "invalid offset")
			return
		}
	}

	result, err := s.changes.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list design changes", "error", err)
		writeInternalError(w, "failed to list design changes")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
