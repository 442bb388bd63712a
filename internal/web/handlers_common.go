package web

// Shared request helpers used across handlers.

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds every request body except imports, which use
// config.ImportConfig.MaxBodySize.
const maxJSONBody = 1 << 20

// decodeJSON decodes the request body into v. Numbers are kept as
// json.Number so cell values keep their exact text.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

// pathParam returns the unescaped URL parameter key. Names may contain any
// character, including an escaped slash.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// idParam parses the integer URL parameter key.
func idParam(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}

// badBody answers a body that could not be decoded.
func badBody(w http.ResponseWriter, err error, message string) {
	if tooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, message)
}
