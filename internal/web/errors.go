package web

// errors.go maps core errors to HTTP responses.
//
// The technical error is logged with the request id; the client receives the
// user message from core.MapError together with its support code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/JonMunkholm/attrmatrix/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Action string `json:"action,omitempty"`
}

// statusFor returns the HTTP status of err.
func statusFor(err error) int {
	if core.IsTransient(err) {
		return http.StatusServiceUnavailable
	}
	switch core.KindOf(err) {
	case core.ErrInvalidInput:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrDuplicateName:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Debug("request rejected", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSONStatus(w, status, ErrorResponse{Error: msg.Message, Code: msg.Code, Action: msg.Action})
}

// writeError writes a fixed message for failures detected in the web layer
// itself, such as an undecodable body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, ErrorResponse{Error: message})
}

// tooLarge reports whether err came from an oversized body.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeMessage writes the {"message": ...} success body.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, map[string]string{"message": message})
}
