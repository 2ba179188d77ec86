package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Schedule.FactInterval)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.ImageInterval)
	assert.Equal(t, time.Hour, cfg.Schedule.FeedInterval)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.BatchInterval)
	assert.Equal(t, 2*time.Minute, cfg.Schedule.CheckInterval)
	assert.Equal(t, 10, cfg.Schedule.DedupAttempts)
	assert.Equal(t, 3, cfg.Feed.BatchSize)
	assert.Equal(t, FeedModeAPI, cfg.Feed.Mode)
	assert.Equal(t, BackendFile, cfg.History.Backend)
	assert.Equal(t, "post_history.json", cfg.History.File)
	assert.Equal(t, 1000, cfg.History.MaxEntries)
	assert.Equal(t, 20*time.Second, cfg.Sources.HTTPTimeout)
	assert.False(t, cfg.DryRun)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "@mikuchannel")
	t.Setenv("FACT_POST_INTERVAL", "1800")
	t.Setenv("IMAGE_POST_INTERVAL", "90s")
	t.Setenv("REDDIT_POST_INTERVAL", "600")
	t.Setenv("FEED_MODE", "RSS")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("HISTORY_BACKEND", "redis")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "@mikuchannel", cfg.Telegram.ChannelID)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.FactInterval, "bare integers are seconds")
	assert.Equal(t, 90*time.Second, cfg.Schedule.ImageInterval)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.FeedInterval, "alias variable")
	assert.Equal(t, FeedModeRSS, cfg.Feed.Mode)
	assert.Equal(t, BackendRedis, cfg.History.Backend)
	assert.True(t, cfg.DryRun)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mikubot.toml")
	content := `
log_level = "debug"

[schedule]
fact_interval = 120
image_interval = "5m"

[feed]
mode = "mock"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.Schedule.FactInterval)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ImageInterval)
	assert.Equal(t, FeedModeMock, cfg.Feed.Mode)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mikubot.toml")
	require.NoError(t, os.WriteFile(path, []byte("[feed]\nmode = \"mock\"\n"), 0o600))
	t.Setenv("FEED_MODE", "public")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FeedModePublic, cfg.Feed.Mode)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown feed mode", key: "FEED_MODE", value: "carrier-pigeon"},
		{name: "unknown backend", key: "HISTORY_BACKEND", value: "postgres"},
		{name: "zero interval", key: "FEED_CHECK_INTERVAL", value: "0"},
		{name: "zero attempts", key: "DEDUP_ATTEMPTS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestFeedEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "api without credentials", cfg: Config{Feed: FeedConfig{Mode: FeedModeAPI}}, want: false},
		{
			name: "api with credentials",
			cfg: Config{
				Feed:   FeedConfig{Mode: FeedModeAPI},
				Reddit: RedditConfig{ClientID: "id", ClientSecret: "secret"},
			},
			want: true,
		},
		{name: "public", cfg: Config{Feed: FeedConfig{Mode: FeedModePublic}}, want: true},
		{name: "rss", cfg: Config{Feed: FeedConfig{Mode: FeedModeRSS}}, want: true},
		{name: "mock", cfg: Config{Feed: FeedConfig{Mode: FeedModeMock}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.FeedEnabled())
		})
	}
}
