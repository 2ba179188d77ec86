package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/mikubot/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient lists posts through the authenticated Reddit API.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

func NewAPIClient(id, secret, user, pass, userAgent string, timeout time.Duration) (*APIClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds,
		reddit.WithUserAgent(userAgent),
		reddit.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reddit client: %w", err)
	}

	// 100 requests / 10 mins = ~1 request every 600ms
	limiter := rate.NewLimiter(rate.Every(600*time.Millisecond), 1)

	return &APIClient{client: client, limiter: limiter}, nil
}

func (ac *APIClient) FetchNewPosts(ctx context.Context, sub string, limit int) ([]domain.Post, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	posts, _, err := ac.client.Subreddit.NewPosts(ctx, sub, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("authenticated api error: %w", err)
	}
	return fromRedditPosts(posts), nil
}

func (ac *APIClient) FetchHotPosts(ctx context.Context, sub string, limit int) ([]domain.Post, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	posts, _, err := ac.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("authenticated api error: %w", err)
	}
	return fromRedditPosts(posts), nil
}

func (ac *APIClient) FetchTopPosts(ctx context.Context, sub, period string, limit int) ([]domain.Post, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	posts, _, err := ac.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: limit},
		Time:        period,
	})
	if err != nil {
		return nil, fmt.Errorf("authenticated api error: %w", err)
	}
	return fromRedditPosts(posts), nil
}

func fromRedditPosts(posts []*reddit.Post) []domain.Post {
	result := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p == nil {
			continue
		}
		var created time.Time
		if p.Created != nil {
			created = p.Created.Time
		}
		result = append(result, domain.Post{
			ID:        p.ID,
			Title:     p.Title,
			Subreddit: p.SubredditName,
			Author:    p.Author,
			URL:       p.URL,
			Permalink: absolutePermalink(p.Permalink),
			Score:     p.Score,
			Created:   created,
		})
	}
	return result
}
