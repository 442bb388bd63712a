package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{fmt.Errorf("x: %w", core.ErrInvalidInput), ResultInvalid},
		{core.ErrNotFound, ResultNotFound},
		{core.ErrDuplicateName, ResultDuplicate},
		{errors.New("boom"), ResultInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Result(tt.err), "Result(%v)", tt.err)
	}
}

func TestObserveOperation(t *testing.T) {
	m := New()
	m.ObserveOperation("add row", nil)
	m.ObserveOperation("add row", nil)
	m.ObserveOperation("add row", core.ErrDuplicateName)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("add row", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add row", ResultDuplicate)))
}

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/table", 200, 15*time.Millisecond)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/table", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestSpellAndImport(t *testing.T) {
	m := New()
	m.SpellFailed()
	m.ObserveImportRows(12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.spellFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.importRows))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOperation("import", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `attrmatrix_operations_total{op="import",result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SpellFailed()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.spellFailures))
}
