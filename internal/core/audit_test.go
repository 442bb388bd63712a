package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLog redirects the default logger to a JSON buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestOriginFrom(t *testing.T) {
	assert.Equal(t, Origin{}, OriginFrom(context.Background()))

	want := Origin{IP: "203.0.113.7", UserAgent: "curl/8.5"}
	assert.Equal(t, want, OriginFrom(WithOrigin(context.Background(), want)))
}

func TestLogAudit_IncludesOrigin(t *testing.T) {
	buf := captureLog(t)
	svc, _ := newTestService(t)

	ctx := WithOrigin(context.Background(), Origin{IP: "203.0.113.7", UserAgent: "curl/8.5"})
	svc.LogAudit(ctx, AuditLogParams{Action: ActionRowDelete, RowKey: "R1", RowsAffected: 3})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "audit", rec["msg"])
	assert.Equal(t, "row_delete", rec["action"])
	assert.Equal(t, "R1", rec["row"])
	assert.Equal(t, "203.0.113.7", rec["ip"])
	assert.Equal(t, "curl/8.5", rec["user_agent"])
	assert.EqualValues(t, 3, rec["rows_affected"])
}

func TestLogAudit_OmitsEmptyOrigin(t *testing.T) {
	buf := captureLog(t)
	svc, _ := newTestService(t)

	svc.LogAudit(WithOrigin(context.Background(), Origin{UserAgent: "cli"}), AuditLogParams{Action: ActionReset})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "ip")
	assert.Equal(t, "cli", rec["user_agent"])
	assert.Equal(t, string(SeverityCritical), rec["severity"])
}
