package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Interaction(ActionLike)
	m.Interaction(ActionLike)
	m.Interaction(ActionDownload)
	m.StoreConflict("book")
	m.RateLimited("download")
	m.BlobFailure("upload")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.interactions.WithLabelValues(ActionLike)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeConflicts.WithLabelValues("book")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("download")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blobFailures.WithLabelValues("upload")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/books", http.StatusOK, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `inkcircle_http_request_duration_seconds_count{method="GET",route="/api/v1/books",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Interaction(ActionVisit)
		m.StoreConflict("user")
		m.RateLimited("auth")
		m.BlobFailure("delete")
		m.ObserveHTTP("GET", "", 200, time.Second)
	})
	assert.Nil(t, m.Registry())
}
