package collector

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
	"github.com/qepting91/mikubot/internal/history"
)

const (
	newListingLimit   = 10
	batchListingLimit = 25
	singleListing     = 50
	topPeriod         = "week"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// HistoryChecker is the part of the history store the crawler reads.
type HistoryChecker interface {
	IsInHistory(ctx context.Context, category, token string, rec *domain.ContentRecord) bool
}

// Crawler watches a set of subreddits for Miku images. It remembers the
// newest post seen per feed and stages newly discovered posts so a later
// batch can pick them up first.
type Crawler struct {
	collector domain.Collector
	history   HistoryChecker
	targets   []domain.Target
	keywords  []string
	rng       *lockedRand
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	lastSeen  map[string]string
	stagedIDs []string
	staged    map[string]domain.ContentRecord
}

type CrawlerOption func(*Crawler)

func WithCrawlerLogger(l *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithCrawlerRand(r *rand.Rand) CrawlerOption {
	return func(c *Crawler) { c.rng = newLockedRand(r) }
}

func WithClock(now func() time.Time) CrawlerOption {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCrawler(col domain.Collector, hist HistoryChecker, targets []domain.Target, keywords []string, opts ...CrawlerOption) *Crawler {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			kws = append(kws, kw)
		}
	}

	c := &Crawler{
		collector: col,
		history:   hist,
		targets:   targets,
		keywords:  kws,
		rng:       newLockedRand(nil),
		logger:    slog.Default(),
		now:       time.Now,
		lastSeen:  make(map[string]string),
		staged:    make(map[string]domain.ContentRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Crawler) Name() string { return "reddit" }

// Init records the newest post of every feed as its baseline. Feeds that
// fail here are baselined by the first PollNew instead.
func (c *Crawler) Init(ctx context.Context) {
	for _, t := range c.targets {
		c.baseline(ctx, t.Subreddit)
	}
}

func (c *Crawler) baseline(ctx context.Context, sub string) {
	posts, err := c.collector.FetchNewPosts(ctx, sub, 1)
	if err != nil {
		c.logger.Error("Error initializing tracking", "subreddit", sub, "err", err)
		return
	}
	if len(posts) == 0 {
		return
	}
	c.setMarker(sub, posts[0].ID)
	c.logger.Info("Initialized tracking", "subreddit", sub, "post_id", posts[0].ID)
}

// PollNew returns topical posts that appeared since the last poll and are
// younger than lookback, oldest first. Returned posts are also staged for
// the next GetBatch.
func (c *Crawler) PollNew(ctx context.Context, lookback time.Duration) []domain.ContentRecord {
	cutoff := c.now().Add(-lookback)
	var out []domain.ContentRecord

	for _, t := range c.targets {
		marker, ok := c.marker(t.Subreddit)
		if !ok {
			c.baseline(ctx, t.Subreddit)
			continue
		}

		posts, err := c.collector.FetchNewPosts(ctx, t.Subreddit, newListingLimit)
		if err != nil {
			c.logger.Error("Error checking for new posts", "subreddit", t.Subreddit, "err", err)
			continue
		}
		if len(posts) == 0 {
			continue
		}

		var fresh []domain.Post
		for _, p := range posts {
			if p.ID == marker {
				break
			}
			if !p.Created.IsZero() && p.Created.Before(cutoff) {
				break
			}
			fresh = append(fresh, p)
		}
		c.setMarker(t.Subreddit, posts[0].ID)

		for i := len(fresh) - 1; i >= 0; i-- {
			p := fresh[i]
			if !c.isTopical(t, p) {
				continue
			}
			rec := recordFromPost(t.Subreddit, p)
			if c.history.IsInHistory(ctx, history.CategoryURLs, rec.ImageURL, &rec) {
				continue
			}
			c.stage(rec)
			out = append(out, rec)
			c.logger.Info("New Miku post detected", "subreddit", t.Subreddit, "title", truncate(p.Title, 30))
		}
	}
	return out
}

// GetBatch collects up to limit unposted records: staged posts first in the
// order they were found, then each feed's hot and top-of-week listings.
func (c *Crawler) GetBatch(ctx context.Context, limit int) []domain.ContentRecord {
	if limit <= 0 {
		return nil
	}
	batch := make([]domain.ContentRecord, 0, limit)
	seen := make(map[string]bool)

	add := func(rec domain.ContentRecord) {
		key := history.NormalizeURL(rec.ImageURL)
		if seen[key] || (rec.ID != "" && seen["id:"+rec.ID]) {
			return
		}
		if c.history.IsInHistory(ctx, history.CategoryURLs, rec.ImageURL, &rec) {
			return
		}
		seen[key] = true
		if rec.ID != "" {
			seen["id:"+rec.ID] = true
		}
		batch = append(batch, rec)
	}

	for len(batch) < limit {
		rec, ok := c.dequeue()
		if !ok {
			break
		}
		add(rec)
	}

	for _, t := range c.targets {
		if len(batch) >= limit {
			break
		}
		hot, err := c.collector.FetchHotPosts(ctx, t.Subreddit, batchListingLimit)
		if err != nil {
			c.logger.Error("Error getting batch posts", "subreddit", t.Subreddit, "ranking", "hot", "err", err)
		}
		c.collectTopical(t, hot, limit, &batch, add)

		if len(batch) >= limit {
			break
		}
		top, err := c.collector.FetchTopPosts(ctx, t.Subreddit, topPeriod, batchListingLimit)
		if err != nil {
			c.logger.Error("Error getting batch posts", "subreddit", t.Subreddit, "ranking", "top", "err", err)
		}
		c.collectTopical(t, top, limit, &batch, add)
	}
	return batch
}

func (c *Crawler) collectTopical(t domain.Target, posts []domain.Post, limit int, batch *[]domain.ContentRecord, add func(domain.ContentRecord)) {
	for _, p := range posts {
		if len(*batch) >= limit {
			return
		}
		if c.isTopical(t, p) {
			add(recordFromPost(t.Subreddit, p))
		}
	}
}

// FetchOne picks a random topical image from a random feed's hot listing.
func (c *Crawler) FetchOne(ctx context.Context) (*domain.ContentRecord, error) {
	if len(c.targets) == 0 {
		return nil, nil
	}
	t := c.targets[c.rng.Intn(len(c.targets))]

	posts, err := c.collector.FetchHotPosts(ctx, t.Subreddit, singleListing)
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", t.Subreddit, err)
	}

	var candidates []domain.Post
	for _, p := range posts {
		if c.isTopical(t, p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		c.logger.Warn("No Miku image posts found", "subreddit", t.Subreddit)
		return nil, nil
	}

	rec := recordFromPost(t.Subreddit, candidates[c.rng.Intn(len(candidates))])
	return &rec, nil
}

// StagedCount reports how many discovered posts wait for a batch.
func (c *Crawler) StagedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stagedIDs)
}

func (c *Crawler) isTopical(t domain.Target, p domain.Post) bool {
	if !hasImageExtension(p.URL) {
		return false
	}
	if t.AlwaysTopical {
		return true
	}
	title := strings.ToLower(p.Title)
	for _, kw := range c.keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

func hasImageExtension(raw string) bool {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func recordFromPost(sub string, p domain.Post) domain.ContentRecord {
	return domain.ContentRecord{
		ImageURL:  p.URL,
		Caption:   p.Title,
		Source:    fmt.Sprintf("Reddit r/%s - u/%s", sub, p.Author),
		ID:        p.ID,
		Permalink: p.Permalink,
	}
}

func (c *Crawler) marker(sub string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.lastSeen[sub]
	return id, ok
}

func (c *Crawler) setMarker(sub, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen[sub] = id
}

func (c *Crawler) stage(rec domain.ContentRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.staged[rec.ID]; ok {
		return
	}
	c.staged[rec.ID] = rec
	c.stagedIDs = append(c.stagedIDs, rec.ID)
}

func (c *Crawler) dequeue() (domain.ContentRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stagedIDs) == 0 {
		return domain.ContentRecord{}, false
	}
	id := c.stagedIDs[0]
	c.stagedIDs = c.stagedIDs[1:]
	rec := c.staged[id]
	delete(c.staged, id)
	return rec, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
