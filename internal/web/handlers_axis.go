package web

import (
	"net/http"

	"github.com/JonMunkholm/attrmatrix/internal/core"
)

// handleListAxisSettings returns every axis setting with its criteria resolved.
func (s *Server) handleListAxisSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.ListAxisSettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if settings == nil {
		settings = []core.AxisSettingView{}
	}
	writeJSON(w, settings)
}

// handleCreateAxisSetting binds four criteria to a new named setting.
func (s *Server) handleCreateAxisSetting(w http.ResponseWriter, r *http.Request) {
	var in core.AxisInput
	if err := decodeJSON(w, r, maxJSONBody, &in); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.CreateAxisSetting(ctx, in); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Axis settings created successfully")
}

// handleUpdateAxisSetting replaces the name and criteria of a setting.
func (s *Server) handleUpdateAxisSetting(w http.ResponseWriter, r *http.Request) {
	var in core.AxisInput
	if err := decodeJSON(w, r, maxJSONBody, &in); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		axisNotFound(w)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.UpdateAxisSetting(ctx, id, in); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Axis settings updated successfully")
}

// handleDeleteAxisSetting removes a setting. Its criteria are untouched.
func (s *Server) handleDeleteAxisSetting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		axisNotFound(w)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteAxisSetting(ctx, id); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Axis setting deleted successfully")
}

// axisNotFound answers an id that cannot name any setting.
func axisNotFound(w http.ResponseWriter) {
	writeJSONStatus(w, http.StatusNotFound, ErrorResponse{Error: "Axis setting not found", Code: core.CodeNotFound})
}
