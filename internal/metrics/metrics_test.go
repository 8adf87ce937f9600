package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScanAndRender(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveScan(ScanIncluded)
	m.ObserveScan(ScanIncluded)
	m.ObserveScan(ScanFailed)
	m.ObserveRender(RenderSucceeded, 200*time.Millisecond)
	m.ObserveRender(RenderSkipped, 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.scanFiles.WithLabelValues(ScanIncluded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.scanFiles.WithLabelValues(ScanFailed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.renderJobs.WithLabelValues(RenderSucceeded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.renderJobs.WithLabelValues(RenderSkipped)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.renderDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveScan(ScanIncluded)
	m.ObserveRender(RenderFailed, time.Second)
	m.ObserveHTTPRequest(http.MethodGet, http.StatusOK, time.Millisecond)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	t.Parallel()

	m := New()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))

	for _, path := range []string{"/", "/", "/missing"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "404")), 0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveScan(ScanExcluded)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `ogcards_scan_files_total{outcome="excluded"} 1`), body)
}
