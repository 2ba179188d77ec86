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

func TestMetrics_Record(t *testing.T) {
	m := New("test")

	m.ObserveJob("fact", JobPosted, 20*time.Millisecond)
	m.ObserveJob("fact", JobPosted, 10*time.Millisecond)
	m.ObserveJob("image", JobFailed, time.Millisecond)
	m.IncDelivery("ok")
	m.ObserveFetch("safebooru", "empty")
	m.SetHistory(map[string]int{"urls": 12, "facts": 3})
	m.SetQueueDepth(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("fact", JobPosted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("image", JobFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetches.WithLabelValues("safebooru", "empty")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.HistoryEntries.WithLabelValues("urls")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveJob("fact", JobPosted, time.Second)
		m.IncDelivery("ok")
		m.ObserveFetch("a", "ok")
		m.SetHistory(map[string]int{"urls": 1})
		m.SetQueueDepth(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New("v1.2.3")
	m.IncDelivery("ok")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `mikubot_deliveries_total{status="ok"} 1`)
	assert.Contains(t, string(body), `mikubot_build_info{version="v1.2.3"} 1`)
}
