package web

import (
	"net/http"

	"github.com/JonMunkholm/attrmatrix/internal/core"
)

// handleExport returns the matrix as an export document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Export(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

// importRequest carries the snapshot under "data", as produced by export.
type importRequest struct {
	Data *core.Snapshot `json:"data"`
}

type importResponse struct {
	Message string            `json:"message"`
	Result  core.ImportResult `json:"result"`
}

// handleImport merges a snapshot into the matrix.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, s.cfg.Import.MaxBodySize, &req); err != nil {
		badBody(w, err, "Invalid data format")
		return
	}

	var snap core.Snapshot
	if req.Data != nil {
		snap = *req.Data
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.Import(ctx, snap)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, importResponse{Message: "Data imported successfully", Result: result})
}

// handleImportStatus reports the import limiter state.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}
