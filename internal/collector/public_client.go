package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
)

const redditBaseURL = "https://www.reddit.com"

// PublicClient reads the unauthenticated .json listings.
type PublicClient struct {
	fetcher *httpFetcher
}

type redditJSONResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Subreddit  string  `json:"subreddit"`
				Author     string  `json:"author"`
				URL        string  `json:"url"`
				Permalink  string  `json:"permalink"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewPublicClient(opts ...Option) *PublicClient {
	// Public JSON Limit: 1 req / 2 seconds (Stricter)
	return &PublicClient{fetcher: newFetcher(redditBaseURL, 2*time.Second, opts)}
}

func (pc *PublicClient) FetchNewPosts(ctx context.Context, sub string, limit int) ([]domain.Post, error) {
	return pc.listing(ctx, fmt.Sprintf("/r/%s/new.json?limit=%d", url.PathEscape(sub), limit))
}

func (pc *PublicClient) FetchHotPosts(ctx context.Context, sub string, limit int) ([]domain.Post, error) {
	return pc.listing(ctx, fmt.Sprintf("/r/%s/hot.json?limit=%d", url.PathEscape(sub), limit))
}

func (pc *PublicClient) FetchTopPosts(ctx context.Context, sub, period string, limit int) ([]domain.Post, error) {
	return pc.listing(ctx, fmt.Sprintf("/r/%s/top.json?t=%s&limit=%d", url.PathEscape(sub), url.QueryEscape(period), limit))
}

func (pc *PublicClient) listing(ctx context.Context, path string) ([]domain.Post, error) {
	var rResp redditJSONResponse
	if err := pc.fetcher.getJSON(ctx, path, &rResp); err != nil {
		return nil, fmt.Errorf("reddit public listing: %w", err)
	}

	posts := make([]domain.Post, 0, len(rResp.Data.Children))
	for _, child := range rResp.Data.Children {
		d := child.Data
		posts = append(posts, domain.Post{
			ID:        d.ID,
			Title:     d.Title,
			Subreddit: d.Subreddit,
			Author:    d.Author,
			URL:       d.URL,
			Permalink: absolutePermalink(d.Permalink),
			Score:     d.Score,
			Created:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

// absolutePermalink turns the relative permalinks Reddit returns into
// links a channel reader can open.
func absolutePermalink(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return redditBaseURL + p
}
