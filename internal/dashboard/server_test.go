package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/qepting91/mikubot/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStats map[string]int

func (f fakeStats) Stats(context.Context) map[string]int { return f }

type fakeJobs struct {
	triggered []string
}

func (f *fakeJobs) Trigger(name string) (bool, error) {
	switch name {
	case "fact", "image":
		f.triggered = append(f.triggered, name)
		return true, nil
	case "batch":
		return false, fmt.Errorf("%w: %s", scheduler.ErrFeedDisabled, name)
	default:
		return false, fmt.Errorf("%w: %s", scheduler.ErrUnknownJob, name)
	}
}

func (f *fakeJobs) Status() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "fact", Runs: 2, LastOutcome: metrics.JobPosted}}
}

func setupServer(t *testing.T, cfg Config, jobs Jobs) *Server {
	t.Helper()
	if cfg.PostLog == "" {
		cfg.PostLog = filepath.Join(t.TempDir(), "posts.ndjson")
	}
	stats := fakeStats{"urls": 3, "facts": 1}
	return NewServer(cfg, stats, jobs, metrics.New("test"), slog.New(slog.DiscardHandler))
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s := setupServer(t, Config{}, &fakeJobs{})
	w := do(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","mode":"running"}`, w.Body.String())
}

func TestServer_Status(t *testing.T) {
	s := setupServer(t, Config{Channel: "@mikuchannel", FeedEnabled: true, Version: "v1"}, &fakeJobs{})
	w := do(s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status      string         `json:"status"`
		Channel     string         `json:"channel"`
		FeedEnabled bool           `json:"feed_enabled"`
		History     map[string]int `json:"history"`
		Jobs        []struct {
			Name string `json:"name"`
			Runs int    `json:"runs"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body.Status)
	assert.Equal(t, "@mikuchannel", body.Channel)
	assert.True(t, body.FeedEnabled)
	assert.Equal(t, 3, body.History["urls"])
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, 2, body.Jobs[0].Runs)
}

func TestServer_Trigger(t *testing.T) {
	jobs := &fakeJobs{}
	s := setupServer(t, Config{}, jobs)

	tests := []struct {
		job  string
		want int
	}{
		{job: "fact", want: http.StatusAccepted},
		{job: "batch", want: http.StatusConflict},
		{job: "dance", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.job, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/trigger/"+tt.job)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, []string{"fact"}, jobs.triggered)

	w := do(s, http.MethodGet, "/api/trigger/fact")
	assert.Equal(t, http.StatusNotFound, w.Code, "triggers are POST only")
}

func TestServer_MonitorOnly(t *testing.T) {
	s := setupServer(t, Config{MonitorOnly: true}, nil)

	w := do(s, http.MethodPost, "/api/trigger/fact")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(s, http.MethodGet, "/status")
	assert.Contains(t, w.Body.String(), `"status":"monitor-only"`)
}

func TestServer_ChartsAndMetrics(t *testing.T) {
	log := filepath.Join(t.TempDir(), "posts.ndjson")
	lines := `{"job":"image","source":"Safebooru - Post #1"}
{"job":"fact","source":"waifu.im - Unknown"}
{"job":"feed","source":"Reddit r/MikuNakano - u/a"}
`
	require.NoError(t, os.WriteFile(log, []byte(lines), 0o644))
	s := setupServer(t, Config{PostLog: log}, &fakeJobs{})

	w := do(s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Posts by Source")
	assert.Contains(t, w.Body.String(), "MikuNakano")

	w = do(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mikubot_http_requests_total{endpoint="/",method="GET",status="200"} 1`)
}

func TestSourceLabel(t *testing.T) {
	tests := map[string]string{
		"Safebooru - Post #12":                    "Safebooru",
		"waifu.im - https://pixiv.net/a/1":        "waifu.im",
		"Reddit r/MikuNakano - u/artist":          "Reddit r/MikuNakano",
		"waifu.pics (Fallback - may not be Miku)": "waifu.pics (fallback)",
		"waifu.pics":                              "waifu.pics",
		"":                                        "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, sourceLabel(in), in)
	}
}
