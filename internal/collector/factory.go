package collector

import (
	"errors"
	"fmt"

	"github.com/qepting91/mikubot/internal/config"
	"github.com/qepting91/mikubot/internal/domain"
)

// ErrNoCredentials means api mode was selected without Reddit OAuth
// credentials. The bot keeps running without the feed jobs.
var ErrNoCredentials = errors.New("reddit api credentials not configured")

// NewCollector selects the listing implementation based on FEED_MODE.
func NewCollector(cfg *config.Config) (domain.Collector, error) {
	r := cfg.Reddit
	timeout := cfg.Sources.HTTPTimeout

	switch cfg.Feed.Mode {
	case config.FeedModeAPI:
		if r.ClientID == "" || r.ClientSecret == "" {
			return nil, ErrNoCredentials
		}
		return NewAPIClient(r.ClientID, r.ClientSecret, r.Username, r.Password, r.UserAgent, timeout)
	case config.FeedModePublic:
		if r.UserAgent == "" {
			return nil, fmt.Errorf("REDDIT_USER_AGENT is required for public mode")
		}
		return NewPublicClient(WithUserAgent(r.UserAgent), WithTimeout(timeout)), nil
	case config.FeedModeRSS:
		return NewRSSClient(WithUserAgent(r.UserAgent), WithTimeout(timeout)), nil
	case config.FeedModeMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown FEED_MODE: %s (use 'api', 'public', 'rss' or 'mock')", cfg.Feed.Mode)
	}
}
