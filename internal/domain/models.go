package domain

import (
	"context"
	"time"
)

// Target is a monitored feed (a subreddit).
type Target struct {
	Subreddit string
	// AlwaysTopical marks feeds where every image post counts as on-topic.
	AlwaysTopical bool
}

// Post is a normalized listing item returned by every Collector.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subreddit string    `json:"subreddit"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Permalink string    `json:"permalink"`
	Score     int       `json:"score"`
	Created   time.Time `json:"created"`
}

// ContentRecord is a single postable unit. Treat it as a value; it is not
// mutated after a source creates it.
type ContentRecord struct {
	ImageURL  string `json:"image_url"`
	Caption   string `json:"caption"`
	Source    string `json:"source"`
	ID        string `json:"id,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

// Collector lists posts of a feed in the three rankings the crawler uses.
type Collector interface {
	FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	FetchHotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	FetchTopPosts(ctx context.Context, subreddit string, period string, limit int) ([]Post, error)
}

// Source produces one content record per call. A nil record with a nil
// error means the source had nothing to offer.
type Source interface {
	Name() string
	FetchOne(ctx context.Context) (*ContentRecord, error)
}
