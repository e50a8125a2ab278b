package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus scrape endpoint
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Full design run from a device snapshot
		r.Post("/design/run", s.handleRun)

		r.Get("/validation", s.handleValidateAll)
		r.Get("/changes", s.handleListChanges)

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", s.handleListAssignments)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAssignment)
				r.Delete("/", s.handleRemoveDevice)
				r.Post("/move", s.handleMoveDevice)
				r.Post("/lock", s.handleLockAddress)
				r.Post("/unlock", s.handleUnlockAddress)
				r.Post("/release", s.handleReleaseAddress)
				r.Put("/address", s.handleSetManualAddress)
			})
		})

		r.Route("/circuits", func(r chi.Router) {
			r.Get("/", s.handleListCircuits)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/validation", s.handleValidateCircuit)
				r.Post("/devices", s.handleInsertDevice)
				r.Post("/move", s.handleMoveBranch)
				r.Post("/auto-assign", s.handleAutoAssign)
				r.Post("/gap-fill", s.handleGapFill)
				r.Post("/resequence", s.handleResequence)
				r.Post("/resolve-conflicts", s.handleResolveConflicts)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
