package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch("ok")
	m.ObserveFetch("ok")
	m.ObserveFetch("failed")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("failed")))

	m.ObservePublishStep("create_thread", "failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishSteps.WithLabelValues("create_thread", "failed")))

	at := time.Unix(1_700_000_000, 0)
	m.ObserveCycle("publish", "skipped", at)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("publish", "skipped")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastCycle.WithLabelValues("publish")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("ok")
		m.ObservePublishStep("post_primary", "ok")
		m.ObserveCycle("collect", "done", time.Now())
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveFetch("empty")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `activity_bot_fetch_total{outcome="empty"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
