package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExposesDomainMetrics(t *testing.T) {
	c := NewCollector("avsnode", WithCommonMetrics(false))

	c.Tx().Submitted.Inc()
	c.Tx().Failed.WithLabelValues("reverted").Inc()
	c.Quorum().Rounds.WithLabelValues("finalized").Inc()
	c.API().HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	assert.Same(t, c.Tx(), c.Tx())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Tx().Submitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Tx().Failed.WithLabelValues("reverted")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "triggerx_txmgr_submitted_total 1")
	assert.Contains(t, rec.Body.String(), `triggerx_quorum_rounds_total{outcome="finalized"} 1`)
	assert.Contains(t, rec.Body.String(), `triggerx_api_http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestCollector_CommonMetricsLifecycle(t *testing.T) {
	c := NewCollector("avsnode", WithNamespace("test"))
	c.Start()
	c.Stop()
	c.Stop()

	require.NotNil(t, c.Common())
	assert.Greater(t, testutil.ToFloat64(c.Common().GoroutinesActive), 0.0)
}

func TestNewTxMetrics_PrivateRegistry(t *testing.T) {
	a := NewTxMetrics(nil, "")
	b := NewTxMetrics(nil, "")
	a.Submitted.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Submitted))
}

func TestCollector_RuntimeCollectors(t *testing.T) {
	c := NewCollector("avsnode", WithCommonMetrics(false))
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	bare := NewCollector("avsnode", WithCommonMetrics(false), WithRuntimeCollectors(false))
	rec = httptest.NewRecorder()
	bare.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotContains(t, rec.Body.String(), "go_goroutines")
}
