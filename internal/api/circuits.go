package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-firealarm/internal/design"
	"github.com/nerrad567/gray-logic-firealarm/internal/snapshot"
)

// handleInsertDevice adds a new device to a circuit.
// The body is one device entry in the snapshot format.
func (s *Server) handleInsertDevice(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, md, err := snapshot.ParseDevice(data, nil)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.design.InsertDevice(r.Context(), rec, md, chi.URLParam(r, "id"))
	s.writeResult(w, r, res, err)
}

// moveBranchRequest is the body of POST /circuits/{id}/move.
type moveBranchRequest struct {
	PanelID string `json:"panel_id"`
}

// handleMoveBranch moves a whole circuit onto another panel.
func (s *Server) handleMoveBranch(w http.ResponseWriter, r *http.Request) {
	var req moveBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.PanelID == "" {
		writeBadRequest(w, "panel_id is required")
		return
	}

	res, err := s.design.MoveBranch(r.Context(), chi.URLParam(r, "id"), req.PanelID)
	s.writeResult(w, r, res, err)
}

// branchHandler adapts a whole-branch addressing operation to a handler.
func (s *Server) branchHandler(op func(ctx context.Context, circuitID string) (design.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := op(r.Context(), chi.URLParam(r, "id"))
		s.writeResult(w, r, res, err)
	}
}

func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	s.branchHandler(s.design.AutoAssign)(w, r)
}

func (s *Server) handleGapFill(w http.ResponseWriter, r *http.Request) {
	s.branchHandler(s.design.GapFill)(w, r)
}

func (s *Server) handleResequence(w http.ResponseWriter, r *http.Request) {
	s.branchHandler(s.design.Resequence)(w, r)
}

func (s *Server) handleResolveConflicts(w http.ResponseWriter, r *http.Request) {
	s.branchHandler(s.design.ResolveConflicts)(w, r)
}
