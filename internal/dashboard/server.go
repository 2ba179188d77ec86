package dashboard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/qepting91/mikubot/internal/scheduler"
	"github.com/qepting91/mikubot/internal/storage"
)

type HistoryStats interface {
	Stats(ctx context.Context) map[string]int
}

// Jobs is the scheduler as seen by the status server.
type Jobs interface {
	Trigger(name string) (bool, error)
	Status() []scheduler.JobStatus
}

type Config struct {
	Channel     string
	PostLog     string
	FeedEnabled bool
	DryRun      bool
	// MonitorOnly is set when another instance owns the bot; triggers are
	// refused.
	MonitorOnly bool
	Version     string
}

type Server struct {
	cfg     Config
	history HistoryStats
	jobs    Jobs
	metrics *metrics.Metrics
	logger  *slog.Logger
	started time.Time
	engine  *gin.Engine
}

// NewServer wires the routes. jobs may be nil in monitor-only mode.
func NewServer(cfg Config, hist HistoryStats, jobs Jobs, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		history: hist,
		jobs:    jobs,
		metrics: m,
		logger:  logger,
		started: time.Now(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), m.Middleware())
	r.GET("/health", s.health)
	r.GET("/status", s.status)
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/", s.charts)
	r.POST("/api/trigger/:job", s.trigger)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) mode() string {
	if s.cfg.MonitorOnly {
		return "monitor-only"
	}
	return "running"
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.mode()})
}

func (s *Server) status(c *gin.Context) {
	var jobs []scheduler.JobStatus
	if s.jobs != nil {
		jobs = s.jobs.Status()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       s.mode(),
		"version":      s.cfg.Version,
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"channel":      s.cfg.Channel,
		"feed_enabled": s.cfg.FeedEnabled,
		"dry_run":      s.cfg.DryRun,
		"history":      s.history.Stats(c.Request.Context()),
		"jobs":         jobs,
	})
}

func (s *Server) trigger(c *gin.Context) {
	if s.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "another instance is running the scheduler"})
		return
	}

	job := c.Param("job")
	queued, err := s.jobs.Trigger(job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, scheduler.ErrFeedDisabled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("Job triggered", "job", job, "queued", queued)
	c.JSON(http.StatusAccepted, gin.H{"job": job, "queued": queued})
}

func (s *Server) charts(c *gin.Context) {
	posts, err := storage.LoadPosts(s.cfg.PostLog)
	if err != nil {
		s.logger.Warn("Reading post log failed", "path", s.cfg.PostLog, "err", err)
	}

	page := components.NewPage()
	page.SetPageTitle("mikubot")
	page.AddCharts(
		historyBar(s.history.Stats(c.Request.Context())),
		sourcePie(posts),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func historyBar(stats map[string]int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "History Size"}),
		charts.WithThemeOpts(opts.Theme{Theme: types.ThemeWesteros}),
	)

	cats := make([]string, 0, len(stats))
	for k := range stats {
		cats = append(cats, k)
	}
	sort.Strings(cats)

	items := make([]opts.BarData, 0, len(cats))
	for _, k := range cats {
		items = append(items, opts.BarData{Value: stats[k]})
	}
	bar.SetXAxis(cats).AddSeries("Entries", items)
	return bar
}

func sourcePie(posts []storage.PublishedPost) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Posts by Source"}),
		charts.WithThemeOpts(opts.Theme{Theme: types.ThemeWesteros}),
	)

	counts := make(map[string]int)
	for _, p := range posts {
		counts[sourceLabel(p.Source)]++
	}
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)

	items := make([]opts.PieData, 0, len(names))
	for _, k := range names {
		items = append(items, opts.PieData{Name: k, Value: counts[k]})
	}
	pie.AddSeries("Posts", items)
	return pie
}

// sourceLabel groups attributions by provider, e.g. "Safebooru - Post #1"
// and "Safebooru - Post #2" both count as "Safebooru".
func sourceLabel(src string) string {
	if name, _, ok := strings.Cut(src, " (Fallback"); ok {
		return name + " (fallback)"
	}
	if name, _, ok := strings.Cut(src, " - "); ok {
		return name
	}
	if src == "" {
		return "unknown"
	}
	return src
}
