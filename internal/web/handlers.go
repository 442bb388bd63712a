package web

import (
	"context"
	"net/http"
	"time"
)

// handleTable returns the dense matrix.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.service.RenderTable(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, table)
}

// handleHealth reports whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
