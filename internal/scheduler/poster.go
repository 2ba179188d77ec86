package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qepting91/mikubot/internal/dedup"
	"github.com/qepting91/mikubot/internal/delivery"
	"github.com/qepting91/mikubot/internal/domain"
	"github.com/qepting91/mikubot/internal/history"
	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/qepting91/mikubot/internal/storage"
)

// Job names.
const (
	JobFact  = "fact"
	JobImage = "image"
	JobBatch = "batch"
	JobNew   = "new"
	JobFeed  = "feed"
)

// feedAttempts is the dedup budget of the single feed post.
const feedAttempts = 5

var feedJobs = map[string]bool{JobBatch: true, JobNew: true, JobFeed: true}

// ErrNothingNew means a feed job found nothing worth posting this cycle.
var ErrNothingNew = errors.New("nothing new to post")

// HistoryStore is the part of history.Store the poster uses.
type HistoryStore interface {
	dedup.FactHistory
	AddToHistory(ctx context.Context, category, token string, rec *domain.ContentRecord)
	Refresh(ctx context.Context, category, token string)
	Stats(ctx context.Context) map[string]int
}

// Library supplies facts and short captions.
type Library interface {
	dedup.FactSource
	RandomCaption() string
}

// FeedCrawler is the Reddit crawler as seen by the feed jobs.
type FeedCrawler interface {
	domain.Source
	PollNew(ctx context.Context, lookback time.Duration) []domain.ContentRecord
	GetBatch(ctx context.Context, limit int) []domain.ContentRecord
}

type Config struct {
	Channel string

	FactInterval  time.Duration
	ImageInterval time.Duration
	FeedInterval  time.Duration
	BatchInterval time.Duration
	CheckInterval time.Duration

	// PostDelay separates consecutive posts of one batch.
	PostDelay     time.Duration
	DedupAttempts int
	BatchSize     int
	Lookback      time.Duration

	// DryRun skips history writes; the deliverer is expected to only log.
	DryRun bool
}

// Draft is a record ready for delivery, plus the fact it carries if any.
type Draft struct {
	Record      domain.ContentRecord
	Fact        string
	FactRotated bool
}

// Poster builds posts from the sources and publishes them.
type Poster struct {
	cfg       Config
	images    domain.Source
	crawler   FeedCrawler
	library   Library
	history   HistoryStore
	deliverer delivery.Deliverer

	postLog chan<- storage.PublishedPost
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type PosterOption func(*Poster)

// WithCrawler enables the feed jobs.
func WithCrawler(c FeedCrawler) PosterOption {
	return func(p *Poster) { p.crawler = c }
}

// WithPostLog sends every delivered post to ch.
func WithPostLog(ch chan<- storage.PublishedPost) PosterOption {
	return func(p *Poster) { p.postLog = ch }
}

func WithMetrics(m *metrics.Metrics) PosterOption {
	return func(p *Poster) { p.metrics = m }
}

func WithPosterLogger(l *slog.Logger) PosterOption {
	return func(p *Poster) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithPosterClock(now func() time.Time) PosterOption {
	return func(p *Poster) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPoster(cfg Config, images domain.Source, lib Library, hist HistoryStore, d delivery.Deliverer, opts ...PosterOption) *Poster {
	if cfg.DedupAttempts < 1 {
		cfg.DedupAttempts = 10
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 3
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = time.Hour
	}

	p := &Poster{
		cfg:       cfg,
		images:    images,
		library:   lib,
		history:   hist,
		deliverer: d,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poster) FeedEnabled() bool { return p.crawler != nil }

// Jobs lists the periodic jobs with their first-run offsets. Feed jobs are
// only included when a crawler is configured.
func (p *Poster) Jobs() []Job {
	jobs := []Job{
		{Name: JobFact, Interval: p.cfg.FactInterval, First: 5 * time.Second, Run: p.PostFact},
		{Name: JobImage, Interval: p.cfg.ImageInterval, First: p.cfg.ImageInterval / 2, Run: p.PostImage},
	}
	if p.crawler == nil {
		return jobs
	}
	return append(jobs,
		Job{Name: JobFeed, Interval: p.cfg.FeedInterval, First: p.cfg.FeedInterval / 4, Run: p.PostFeed},
		Job{Name: JobBatch, Interval: p.cfg.BatchInterval, First: p.cfg.BatchInterval, Run: p.PostBatch},
		Job{Name: JobNew, Interval: p.cfg.CheckInterval, First: p.cfg.CheckInterval, Run: p.PostNew},
	)
}

// FetchFactPost pairs an unposted fact with an unposted image.
func (p *Poster) FetchFactPost(ctx context.Context) (Draft, error) {
	fact, rotated, err := dedup.PickFact(ctx, p.library, p.history, p.cfg.DedupAttempts)
	if err != nil {
		return Draft{}, fmt.Errorf("picking fact: %w", err)
	}
	if rotated {
		p.logger.Info("All facts posted, reusing the oldest", "fact", truncate(fact, 40))
	}

	img, err := dedup.FetchUnique(ctx, p.images, p.history, p.cfg.DedupAttempts)
	if err != nil {
		return Draft{}, fmt.Errorf("fetching image: %w", err)
	}

	rec := *img
	rec.Caption = fact
	return Draft{Record: rec, Fact: fact, FactRotated: rotated}, nil
}

// FetchImagePost pairs a random short caption with an unposted image.
func (p *Poster) FetchImagePost(ctx context.Context) (Draft, error) {
	img, err := dedup.FetchUnique(ctx, p.images, p.history, p.cfg.DedupAttempts)
	if err != nil {
		return Draft{}, fmt.Errorf("fetching image: %w", err)
	}
	rec := *img
	rec.Caption = p.library.RandomCaption()
	return Draft{Record: rec}, nil
}

// FetchFeedPost picks an unposted image from a random feed.
func (p *Poster) FetchFeedPost(ctx context.Context) (Draft, error) {
	if p.crawler == nil {
		return Draft{}, ErrFeedDisabled
	}
	rec, err := dedup.FetchUnique(ctx, p.crawler, p.history, feedAttempts)
	if err != nil {
		return Draft{}, fmt.Errorf("fetching feed post: %w", err)
	}
	return Draft{Record: *rec}, nil
}

func (p *Poster) PostFact(ctx context.Context) error {
	d, err := p.FetchFactPost(ctx)
	if err != nil {
		return err
	}
	return p.publish(ctx, JobFact, d)
}

func (p *Poster) PostImage(ctx context.Context) error {
	d, err := p.FetchImagePost(ctx)
	if err != nil {
		return err
	}
	return p.publish(ctx, JobImage, d)
}

func (p *Poster) PostFeed(ctx context.Context) error {
	d, err := p.FetchFeedPost(ctx)
	if err != nil {
		return err
	}
	return p.publish(ctx, JobFeed, d)
}

// PostBatch posts up to BatchSize feed images, staged discoveries first.
func (p *Poster) PostBatch(ctx context.Context) error {
	if p.crawler == nil {
		return ErrFeedDisabled
	}
	return p.publishAll(ctx, JobBatch, p.crawler.GetBatch(ctx, p.cfg.BatchSize))
}

// PostNew posts images that appeared in the feeds since the last check.
func (p *Poster) PostNew(ctx context.Context) error {
	if p.crawler == nil {
		return ErrFeedDisabled
	}
	return p.publishAll(ctx, JobNew, p.crawler.PollNew(ctx, p.cfg.Lookback))
}

// publishAll delivers recs in order with PostDelay between them. The first
// delivery failure abandons the rest of the cycle.
func (p *Poster) publishAll(ctx context.Context, job string, recs []domain.ContentRecord) error {
	posted := 0
	for _, rec := range recs {
		// another job may have posted it since the crawler looked
		if p.history.IsInHistory(ctx, history.CategoryURLs, rec.ImageURL, &rec) {
			p.logger.Debug("Skipping already posted feed item", "job", job, "id", rec.ID)
			continue
		}
		if posted > 0 {
			if err := sleep(ctx, p.cfg.PostDelay); err != nil {
				return err
			}
		}
		if err := p.publish(ctx, job, Draft{Record: rec}); err != nil {
			return err
		}
		posted++
	}
	if posted == 0 {
		return ErrNothingNew
	}
	p.logger.Info("Posted feed items", "job", job, "count", posted)
	return nil
}

// publish delivers the draft and only then records it in history.
func (p *Poster) publish(ctx context.Context, job string, d Draft) error {
	rec := d.Record
	if err := p.deliverer.Deliver(ctx, p.cfg.Channel, rec); err != nil {
		p.metrics.IncDelivery("failed")
		if errors.Is(err, delivery.ErrPermission) {
			p.logger.Error("Bot cannot post to the channel", "job", job, "channel", p.cfg.Channel, "err", err, "hint", delivery.PermissionHint)
		}
		return fmt.Errorf("delivering %s post: %w", job, err)
	}
	p.metrics.IncDelivery("ok")

	if !p.cfg.DryRun {
		p.history.AddToHistory(ctx, history.CategoryURLs, rec.ImageURL, &rec)
		if d.Fact != "" {
			if d.FactRotated {
				p.history.Refresh(ctx, history.CategoryFacts, d.Fact)
			} else {
				p.history.AddToHistory(ctx, history.CategoryFacts, d.Fact, nil)
			}
		}
		p.metrics.SetHistory(p.history.Stats(ctx))
	}

	if p.postLog != nil {
		entry := storage.NewPublishedPost(job, p.cfg.Channel, rec, p.now())
		entry.DryRun = p.cfg.DryRun
		select {
		case p.postLog <- entry:
		case <-ctx.Done():
		}
	}

	p.logger.Info("Published post", "job", job, "source", rec.Source, "image_url", truncate(rec.ImageURL, 60))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
