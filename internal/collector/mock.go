package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/qepting91/mikubot/internal/domain"
)

// MockClient implements domain.Collector with fake data so the whole
// pipeline can run offline. Every listing is the same deterministic set.
type MockClient struct {
	now func() time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{now: time.Now}
}

func (mc *MockClient) FetchNewPosts(_ context.Context, sub string, limit int) ([]domain.Post, error) {
	return mc.posts(sub, "new", limit), nil
}

func (mc *MockClient) FetchHotPosts(_ context.Context, sub string, limit int) ([]domain.Post, error) {
	return mc.posts(sub, "hot", limit), nil
}

func (mc *MockClient) FetchTopPosts(_ context.Context, sub, period string, limit int) ([]domain.Post, error) {
	return mc.posts(sub, "top-"+period, limit), nil
}

func (mc *MockClient) posts(sub, ranking string, limit int) []domain.Post {
	now := mc.now().UTC()
	posts := make([]domain.Post, 0, limit)
	for i := 0; i < limit; i++ {
		id := fmt.Sprintf("mock_%s_%s_%d", sub, ranking, i)
		posts = append(posts, domain.Post{
			ID:        id,
			Title:     fmt.Sprintf("[%s] Simulated Miku fan art #%d", sub, i),
			Subreddit: sub,
			Author:    "simulated_user",
			URL:       fmt.Sprintf("https://example.com/mock/%s.jpg", id),
			Permalink: fmt.Sprintf("%s/r/%s/comments/%s/", redditBaseURL, sub, id),
			Score:     (limit - i) * 10,
			Created:   now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return posts
}
