package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tunerd/internal/tuner"
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

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/signal-types", s.handleSignalTypes)

		r.Route("/tuners", func(r chi.Router) {
			r.Get("/", s.handleListTuners)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", s.handleGetTuner)
				r.Patch("/", s.handleUpdateTuner)
				r.Delete("/", s.handleDeleteTuner)
				r.Get("/frontends", s.handleListFrontends)
				r.Get("/frontends/{index}/status", s.handleFrontendStatus)
			})
		})

		r.Post("/discovery/scan", s.handleScan)

		r.Get(s.wsCfg.Path, s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status. The service is degraded
// while the tuner manager is not running.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	running := s.tuners.Running()
	if !running {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            status,
		"version":           s.version,
		"running":           running,
		"devices":           len(s.tuners.Devices()),
		"websocket_clients": s.hub.ClientCount(),
	})
}

// handleSignalTypes lists the accepted fe_override values.
func (s *Server) handleSignalTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"signal_types": tuner.SignalLabels(),
		"default":      tuner.DefaultSignalType.String(),
	})
}
