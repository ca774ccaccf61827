package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveExport(t *testing.T) {
	m := New()

	m.ObserveExport("transactions", "csv", "http", 3, nil)
	m.ObserveExport("transactions", "csv", "http", 2, nil)
	m.ObserveExport("transactions", "csv", "http", 9, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("transactions", "csv", "http", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("transactions", "csv", "http", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.exportRows.WithLabelValues("transactions", "csv")))
}

func TestObserveRefresh(t *testing.T) {
	m := New()

	m.ObserveRefresh("manual", nil)
	m.ObserveRefresh("poll", errors.New("unavailable"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("manual", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("poll", "error")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveExport("accounts", "xlsx", "dir", 1, nil)
		m.ObserveRefresh("poll", nil)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveExport("accounts", "csv", "stream", 4, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "finance_dashboard_exports_total")
	assert.Contains(t, rec.Body.String(), `entity="accounts"`)
}
