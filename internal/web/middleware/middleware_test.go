package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/auth"
	"github.com/JonMunkholm/attrmatrix/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (*auth.Claims, error) {
	if u, ok := s[token]; ok {
		return &auth.Claims{Username: u}, nil
	}
	return nil, errors.New("bad token")
}

func TestRequireAuth(t *testing.T) {
	var gotUser string
	h := RequireAuth(stubVerifier{"good": "admin"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = logging.UsernameFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "Authentication required"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"valid", "Bearer good", http.StatusOK, ""},
		{"lowercase scheme", "bearer good", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/table", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
				assert.Empty(t, gotUser)
			} else {
				assert.Equal(t, "admin", gotUser)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted ignores header", nil, "1.2.3.4:5555", map[string]string{"X-Real-IP": "9.9.9.9"}, "1.2.3.4:5555"},
		{"trusted cidr real ip", []string{"10.0.0.0/8"}, "10.1.2.3:80", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
		{"trusted single forwarded", []string{"127.0.0.1"}, "127.0.0.1:80", map[string]string{"X-Forwarded-For": "8.8.8.8, 10.0.0.1"}, "8.8.8.8"},
		{"invalid header kept", []string{"127.0.0.1"}, "127.0.0.1:80", map[string]string{"X-Real-IP": "nonsense"}, "127.0.0.1:80"},
		{"invalid entry skipped", []string{"bogus"}, "127.0.0.1:80", map[string]string{"X-Real-IP": "9.9.9.9"}, "127.0.0.1:80"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

type observation struct {
	method, route string
	status        int
}

type recordingObserver struct{ got []observation }

func (o *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	o.got = append(o.got, observation{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Delete("/api/row/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/row/foo", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, obs.got, 2)
	assert.Equal(t, observation{"DELETE", "/api/row/{name}", http.StatusNoContent}, obs.got[0])
	assert.Equal(t, http.StatusNotFound, obs.got[1].status)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:999"
	assert.Equal(t, "1.2.3.4", ClientIP(req))
	req.RemoteAddr = "5.6.7.8"
	assert.Equal(t, "5.6.7.8", ClientIP(req))
}
