package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/auth"
	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/JonMunkholm/attrmatrix/internal/metrics"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/JonMunkholm/attrmatrix/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse"

type testServer struct {
	*Server
	token string
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxBodySize:   64 << 10,
			MaxConcurrent: 1,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       5 * time.Second,
		},
		CORS:    config.CORSConfig{DevOrigin: "http://localhost:5173"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	m := metrics.New()
	svc := core.NewService(memory.New(), cfg.Import, core.WithRecorder(m))
	authn := auth.New(config.AuthConfig{
		JWTSecret:         "web-test-secret",
		AdminPasswordHash: string(hash),
		TokenTTL:          time.Hour,
	})
	srv := NewServer(svc, authn, m, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	token, err := authn.Issue()
	require.NoError(t, err)
	return &testServer{Server: srv, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doToken(t, method, path, body, ts.token)
}

func (ts *testServer) doToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]any](t, rec)["message"].(string)
}

func errorText(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[ErrorResponse](t, rec).Error
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.doToken(t, http.MethodPost, "/api/auth/login", map[string]string{"password": testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[loginResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "admin", resp.Username)

	rec = ts.doToken(t, http.MethodGet, "/api/auth/verify", nil, resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"authenticated": true, "username": "admin"}, decode[map[string]any](t, rec))

	rec = ts.doToken(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", errorText(t, rec))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.doToken(t, http.MethodGet, "/api/table", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", errorText(t, rec))

	rec = ts.doToken(t, http.MethodGet, "/api/table", nil, "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", errorText(t, rec))
}

func TestMatrixFlow(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(t, http.MethodPost, "/api/column", map[string]string{"column_name": "Hot"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Criteria added", message(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/row", map[string]string{"name": "麻黄"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Formula added", message(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/row", map[string]string{"name": "麻黄"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/cell", `{"row_id":"麻黄","column_name":"Hot","value":"7"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Cell updated", message(t, rec))

	rec = ts.do(t, http.MethodPut, "/api/annotation", map[string]string{"row_id": "麻黄", "annotation": "warm"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Annotation updated", message(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/table", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	table := decode[core.Table](t, rec)
	assert.Equal(t, []string{"Hot"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "warm", table.Rows[0].Annotation)
	assert.Equal(t, map[string]int{"Hot": 7}, table.Rows[0].Attributes)

	rec = ts.do(t, http.MethodPut, "/api/row/%E9%BA%BB%E9%BB%84/name", map[string]string{"new_name": "桂枝"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Row name updated successfully", message(t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/column/Hot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Column deleted successfully", message(t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/row/%E6%A1%82%E6%9E%9D", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Row deleted successfully", message(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/table", nil)
	assert.JSONEq(t, `{"columns":[],"rows":[]}`, rec.Body.String())
}

func TestSetCell(t *testing.T) {
	ts := newTestServer(t, testConfig())
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/column", map[string]string{"column_name": "C"}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/row", map[string]string{"name": "R"}).Code)

	tests := []struct {
		name   string
		body   string
		status int
		text   string
	}{
		{"number", `{"row_id":"R","column_name":"C","value":-3}`, http.StatusOK, "Cell updated"},
		{"null", `{"row_id":"R","column_name":"C","value":null}`, http.StatusOK, "Cell updated"},
		{"empty string", `{"row_id":"R","column_name":"C","value":""}`, http.StatusOK, "Cell updated"},
		{"fraction", `{"row_id":"R","column_name":"C","value":1.5}`, http.StatusBadRequest, ""},
		{"word", `{"row_id":"R","column_name":"C","value":"abc"}`, http.StatusBadRequest, ""},
		{"unknown row", `{"row_id":"X","column_name":"C","value":1}`, http.StatusNotFound, "Formula or column not found"},
		{"malformed", `{"row_id":`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, "/api/cell", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.text, message(t, rec))
			} else if tt.text != "" {
				assert.Equal(t, tt.text, errorText(t, rec))
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	ts := newTestServer(t, testConfig())

	tests := []struct {
		method, path string
		body         any
		status       int
		text         string
	}{
		{http.MethodPost, "/api/column", map[string]string{"column_name": " "}, http.StatusBadRequest, "Criteria name required"},
		{http.MethodPost, "/api/row", map[string]string{}, http.StatusBadRequest, "Formula name required"},
		{http.MethodPut, "/api/row/x/name", map[string]string{}, http.StatusBadRequest, "New name required"},
		{http.MethodPut, "/api/row/x/name", map[string]string{"new_name": "y"}, http.StatusNotFound, "Row not found"},
		{http.MethodDelete, "/api/row/x", nil, http.StatusNotFound, "Row not found"},
		{http.MethodDelete, "/api/column/x", nil, http.StatusNotFound, "Column not found"},
		{http.MethodPut, "/api/annotation", map[string]string{"row_id": "x"}, http.StatusNotFound, "Row not found"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.text, errorText(t, rec))
		})
	}
}

func TestPathParamEscapedSlash(t *testing.T) {
	ts := newTestServer(t, testConfig())
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/row", map[string]string{"name": "a/b"}).Code)

	rec := ts.do(t, http.MethodDelete, "/api/row/a%2Fb", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAxisSettings(t *testing.T) {
	ts := newTestServer(t, testConfig())
	for _, c := range []string{"A", "B", "C", "D"} {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/column", map[string]string{"column_name": c}).Code)
	}
	in := core.AxisInput{Name: "main", XNegative: "A", XPositive: "B", YNegative: "C", YPositive: "D"}

	rec := ts.do(t, http.MethodPost, "/api/axis-settings", in)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Axis settings created successfully", message(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/axis-settings", in)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Axis setting already exists", errorText(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/axis-settings", core.AxisInput{Name: "partial", XNegative: "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All axes are required", errorText(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/axis-settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.AxisSettingView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "main", list[0].Name)
	require.NotNil(t, list[0].Axes.YPositive)
	assert.Equal(t, "D", list[0].Axes.YPositive.Name)
	id := list[0].ID

	in.XNegative = "D"
	in.YPositive = "A"
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/axis-settings/%d", id), in)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Axis settings updated successfully", message(t, rec))

	in.XNegative = "Missing"
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/axis-settings/%d", id), in)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "One or more criteria not found", errorText(t, rec))

	for _, path := range []string{"/api/axis-settings/abc", "/api/axis-settings/999"} {
		rec = ts.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Axis setting not found", errorText(t, rec))
	}

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/axis-settings/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Axis setting deleted successfully", message(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/axis-settings", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExportImport(t *testing.T) {
	ts := newTestServer(t, testConfig())
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/column", map[string]string{"column_name": "Hot"}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/row", map[string]string{"name": "R"}).Code)

	rec := ts.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[core.ExportDocument](t, rec)
	assert.Equal(t, "1.0", doc.Version)
	_, err := time.Parse(time.RFC3339, doc.Timestamp)
	assert.NoError(t, err)

	other := newTestServer(t, testConfig())
	rec = other.do(t, http.MethodPost, "/api/import", map[string]any{"data": doc.Data})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[importResponse](t, rec)
	assert.Equal(t, "Data imported successfully", resp.Message)
	assert.Equal(t, 1, resp.Result.ColumnsCreated)
	assert.Equal(t, 1, resp.Result.RowsCreated)

	rec = other.do(t, http.MethodGet, "/api/export", nil)
	assert.Equal(t, doc.Data, decode[core.ExportDocument](t, rec).Data)
}

func TestImport_Rejects(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxBodySize = 128
	ts := newTestServer(t, cfg)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"no data", `{}`, http.StatusBadRequest},
		{"missing rows", `{"data":{"columns":[]}}`, http.StatusBadRequest},
		{"wrong type", `{"data":{"columns":"x","rows":[]}}`, http.StatusBadRequest},
		{"too large", `{"data":{"columns":["` + strings.Repeat("x", 200) + `"],"rows":[]}}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/import", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusBadRequest {
				assert.True(t, strings.HasPrefix(errorText(t, rec), "Invalid data format"))
			}
		})
	}

	rec := ts.do(t, http.MethodPost, "/api/import",
		`{"data":{"columns":["C"],"rows":[{"name":"R","attributes":{"C":5000000000}}]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(errorText(t, rec), "Invalid number"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", core.ErrInvalidInput), http.StatusBadRequest},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrDuplicateName, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("import: %w", core.ErrTooManyImports), http.StatusServiceUnavailable},
		{fmt.Errorf("query: %w", store.ErrTimeout), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ts.do(t, http.MethodGet, "/api/table", nil)
	rec = ts.doToken(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `attrmatrix_http_requests_total{method="GET",route="/api/table",status="200"} 1`)
	assert.Contains(t, body, `attrmatrix_operations_total{op="render table",result="ok"} 1`)
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	ts := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/table", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = ts.do(t, http.MethodGet, "/api/table", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, LoginPerMinute: 2}
	ts := newTestServer(t, cfg)

	login := map[string]string{"password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, ts.doToken(t, http.MethodPost, "/api/auth/login", login, "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.doToken(t, http.MethodPost, "/api/auth/login", login, "").Code)

	rec := ts.doToken(t, http.MethodPost, "/api/auth/login", login, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/table", nil).Code)
}

func TestRateLimiter_Window(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "limits are per IP")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a"), "window reset")

	now = now.Add(3 * time.Minute)
	rl.sweep()
	assert.Empty(t, rl.visitors)
}
