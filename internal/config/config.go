package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Feed collector modes.
const (
	FeedModeAPI    = "api"
	FeedModePublic = "public"
	FeedModeRSS    = "rss"
	FeedModeMock   = "mock"
)

// History backends.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Reddit   RedditConfig   `mapstructure:"reddit"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	History  HistoryConfig  `mapstructure:"history"`
	Server   ServerConfig   `mapstructure:"server"`
	LogLevel string         `mapstructure:"log_level"`
	DryRun   bool           `mapstructure:"dry_run"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	ChannelID   string `mapstructure:"channel_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	UserAgent    string `mapstructure:"user_agent"`
}

type FeedConfig struct {
	Mode         string        `mapstructure:"mode"`
	TargetsFile  string        `mapstructure:"targets_file"`
	KeywordsFile string        `mapstructure:"keywords_file"`
	BatchSize    int           `mapstructure:"batch_size"`
	Lookback     time.Duration `mapstructure:"lookback"`
}

type ScheduleConfig struct {
	FactInterval  time.Duration `mapstructure:"fact_interval"`
	ImageInterval time.Duration `mapstructure:"image_interval"`
	FeedInterval  time.Duration `mapstructure:"feed_interval"`
	BatchInterval time.Duration `mapstructure:"batch_interval"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	PostDelay     time.Duration `mapstructure:"post_delay"`
	DedupAttempts int           `mapstructure:"dedup_attempts"`
}

type SourcesConfig struct {
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	WaifuImURL   string        `mapstructure:"waifu_im_url"`
	SafebooruURL string        `mapstructure:"safebooru_url"`
	WaifuPicsURL string        `mapstructure:"waifu_pics_url"`
}

type HistoryConfig struct {
	Backend       string `mapstructure:"backend"`
	File          string `mapstructure:"file"`
	BoltPath      string `mapstructure:"bolt_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisKey      string `mapstructure:"redis_key"`
	MaxEntries    int    `mapstructure:"max_entries"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port"`
	PostLog string `mapstructure:"post_log"`
}

// FeedEnabled reports whether the Reddit crawler can run. The API mode needs
// OAuth credentials; the other modes need none.
func (c *Config) FeedEnabled() bool {
	switch c.Feed.Mode {
	case FeedModeAPI:
		return c.Reddit.ClientID != "" && c.Reddit.ClientSecret != ""
	case FeedModePublic, FeedModeRSS, FeedModeMock:
		return true
	default:
		return false
	}
}

// envBindings maps config keys to the environment variables that set them.
// Later names are accepted as aliases.
var envBindings = map[string][]string{
	"telegram.bot_token":      {"TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN"},
	"telegram.channel_id":     {"TELEGRAM_CHANNEL_ID"},
	"telegram.api_endpoint":   {"TELEGRAM_API_ENDPOINT"},
	"reddit.client_id":        {"REDDIT_CLIENT_ID"},
	"reddit.client_secret":    {"REDDIT_CLIENT_SECRET"},
	"reddit.username":         {"REDDIT_USERNAME"},
	"reddit.password":         {"REDDIT_PASSWORD"},
	"reddit.user_agent":       {"REDDIT_USER_AGENT"},
	"feed.mode":               {"FEED_MODE"},
	"feed.targets_file":       {"FEED_TARGETS_FILE"},
	"feed.keywords_file":      {"FEED_KEYWORDS_FILE"},
	"feed.batch_size":         {"FEED_BATCH_SIZE"},
	"feed.lookback":           {"FEED_LOOKBACK"},
	"schedule.fact_interval":  {"FACT_POST_INTERVAL", "MAIN_POST_INTERVAL"},
	"schedule.image_interval": {"IMAGE_POST_INTERVAL"},
	"schedule.feed_interval":  {"FEED_POST_INTERVAL", "REDDIT_POST_INTERVAL"},
	"schedule.batch_interval": {"FEED_BATCH_INTERVAL"},
	"schedule.check_interval": {"FEED_CHECK_INTERVAL"},
	"schedule.post_delay":     {"POST_DELAY"},
	"schedule.dedup_attempts": {"DEDUP_ATTEMPTS"},
	"sources.http_timeout":    {"HTTP_TIMEOUT"},
	"sources.waifu_im_url":    {"WAIFU_IM_URL"},
	"sources.safebooru_url":   {"SAFEBOORU_URL"},
	"sources.waifu_pics_url":  {"WAIFU_PICS_URL"},
	"history.backend":         {"HISTORY_BACKEND"},
	"history.file":            {"HISTORY_FILE"},
	"history.bolt_path":       {"HISTORY_BOLT_PATH"},
	"history.redis_addr":      {"REDIS_ADDR"},
	"history.redis_password":  {"REDIS_PASSWORD"},
	"history.redis_key":       {"REDIS_KEY"},
	"history.max_entries":     {"HISTORY_MAX_ENTRIES"},
	"server.port":             {"PORT"},
	"server.post_log":         {"POST_LOG_FILE"},
	"log_level":               {"LOG_LEVEL"},
	"dry_run":                 {"DRY_RUN"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.api_endpoint", "https://api.telegram.org/bot%s/%s")
	v.SetDefault("reddit.user_agent", "MikuBot/1.0")
	v.SetDefault("feed.mode", FeedModeAPI)
	v.SetDefault("feed.batch_size", 3)
	v.SetDefault("feed.lookback", time.Hour)
	v.SetDefault("schedule.fact_interval", 30*time.Minute)
	v.SetDefault("schedule.image_interval", 15*time.Minute)
	v.SetDefault("schedule.feed_interval", time.Hour)
	v.SetDefault("schedule.batch_interval", 10*time.Minute)
	v.SetDefault("schedule.check_interval", 2*time.Minute)
	v.SetDefault("schedule.post_delay", time.Second)
	v.SetDefault("schedule.dedup_attempts", 10)
	v.SetDefault("sources.http_timeout", 20*time.Second)
	v.SetDefault("sources.waifu_im_url", "https://api.waifu.im")
	v.SetDefault("sources.safebooru_url", "https://safebooru.org")
	v.SetDefault("sources.waifu_pics_url", "https://api.waifu.pics")
	v.SetDefault("history.backend", BackendFile)
	v.SetDefault("history.file", "post_history.json")
	v.SetDefault("history.bolt_path", "data/history.db")
	v.SetDefault("history.redis_addr", "localhost:6379")
	v.SetDefault("history.max_entries", 1000)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.post_log", "data/posts.ndjson")
	v.SetDefault("log_level", "info")
	v.SetDefault("dry_run", false)
}

// Load reads an optional .env file, an optional TOML config file and the
// environment, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	// a missing .env is normal in containers
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		v.SetConfigName("mikubot")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Feed.Mode = strings.ToLower(strings.TrimSpace(cfg.Feed.Mode))
	cfg.History.Backend = strings.ToLower(strings.TrimSpace(cfg.History.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secondsToDurationHook accepts bare integers as seconds, the unit the
// interval variables have always used.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		durationType := reflect.TypeOf(time.Duration(0))
		if to != durationType || from == durationType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			s := strings.TrimSpace(data.(string))
			if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
				return time.Duration(secs) * time.Second, nil
			}
		case reflect.Int, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		}
		return data, nil
	}
}

func (c *Config) Validate() error {
	intervals := map[string]time.Duration{
		"fact interval":  c.Schedule.FactInterval,
		"image interval": c.Schedule.ImageInterval,
		"feed interval":  c.Schedule.FeedInterval,
		"batch interval": c.Schedule.BatchInterval,
		"check interval": c.Schedule.CheckInterval,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Schedule.PostDelay < 0 {
		return fmt.Errorf("post delay must not be negative, got %s", c.Schedule.PostDelay)
	}
	if c.Schedule.DedupAttempts < 1 {
		return fmt.Errorf("dedup attempts must be at least 1, got %d", c.Schedule.DedupAttempts)
	}
	if c.Feed.BatchSize < 1 {
		return fmt.Errorf("feed batch size must be at least 1, got %d", c.Feed.BatchSize)
	}

	switch c.Feed.Mode {
	case FeedModeAPI, FeedModePublic, FeedModeRSS, FeedModeMock:
	default:
		return fmt.Errorf("unknown FEED_MODE: %s (use 'api', 'public', 'rss' or 'mock')", c.Feed.Mode)
	}

	switch c.History.Backend {
	case BackendFile, BackendBolt, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND: %s (use 'file', 'bolt', 'redis' or 'memory')", c.History.Backend)
	}
	return nil
}
