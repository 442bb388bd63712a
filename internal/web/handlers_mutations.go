package web

import (
	"net/http"

	"github.com/JonMunkholm/attrmatrix/internal/core"
)

type addColumnRequest struct {
	ColumnName string `json:"column_name"`
}

// handleAddColumn creates a criterion.
func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.AddColumn(ctx, req.ColumnName); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Criteria added")
}

// handleDeleteColumn removes a criterion and its cells.
func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteColumn(ctx, pathParam(r, "name")); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Column deleted successfully")
}

type addRowRequest struct {
	Name string `json:"name"`
}

// handleAddRow creates a formula.
func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var req addRowRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.AddRow(ctx, req.Name); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Formula added")
}

type renameRowRequest struct {
	NewName string `json:"new_name"`
}

// handleRenameRow renames a formula.
func (s *Server) handleRenameRow(w http.ResponseWriter, r *http.Request) {
	var req renameRowRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.RenameRow(ctx, pathParam(r, "name"), req.NewName); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Row name updated successfully")
}

// handleDeleteRow removes a formula and its cells.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteRow(ctx, pathParam(r, "name")); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Row deleted successfully")
}

// setCellRequest addresses a cell by row name; the field is called row_id
// for compatibility with existing clients.
type setCellRequest struct {
	RowID      string `json:"row_id"`
	ColumnName string `json:"column_name"`
	Value      any    `json:"value"`
}

// handleSetCell writes one cell.
func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	var req setCellRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	value, err := core.NormalizeValue(req.Value)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	created, err := s.service.SetCell(ctx, req.RowID, req.ColumnName, &value)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if created {
		writeMessage(w, "Cell created and updated")
		return
	}
	writeMessage(w, "Cell updated")
}

type annotationRequest struct {
	RowID      string `json:"row_id"`
	Annotation string `json:"annotation"`
}

// handleUpdateAnnotation replaces the annotation of a formula.
func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.UpdateAnnotation(ctx, req.RowID, req.Annotation); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, "Annotation updated")
}
