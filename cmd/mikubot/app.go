package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/qepting91/mikubot/internal/collector"
	"github.com/qepting91/mikubot/internal/config"
	"github.com/qepting91/mikubot/internal/content"
	"github.com/qepting91/mikubot/internal/delivery"
	"github.com/qepting91/mikubot/internal/domain"
	"github.com/qepting91/mikubot/internal/history"
	"github.com/qepting91/mikubot/internal/ingest"
	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/qepting91/mikubot/internal/scheduler"
	"github.com/qepting91/mikubot/internal/storage"
)

// app holds the wired components shared by run and trigger.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	history   *history.Store
	crawler   *collector.Crawler
	telegram  *delivery.Telegram
	deliverer delivery.Deliverer
	poster    *scheduler.Poster
	dryRun    bool

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, postLog chan<- storage.PublishedPost) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: m}

	store, err := a.openHistory()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.history = store
	m.SetHistory(store.Stats(ctx))

	if err := a.openDeliverer(); err != nil {
		a.Close()
		return nil, err
	}

	crawler, err := a.newCrawler()
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []scheduler.PosterOption{
		scheduler.WithPosterLogger(logger),
		scheduler.WithMetrics(m),
	}
	if postLog != nil {
		opts = append(opts, scheduler.WithPostLog(postLog))
	}
	if crawler != nil {
		a.crawler = crawler
		opts = append(opts, scheduler.WithCrawler(crawler))
	}

	s := cfg.Schedule
	a.poster = scheduler.NewPoster(scheduler.Config{
		Channel:       cfg.Telegram.ChannelID,
		FactInterval:  s.FactInterval,
		ImageInterval: s.ImageInterval,
		FeedInterval:  s.FeedInterval,
		BatchInterval: s.BatchInterval,
		CheckInterval: s.CheckInterval,
		PostDelay:     s.PostDelay,
		DedupAttempts: s.DedupAttempts,
		BatchSize:     cfg.Feed.BatchSize,
		Lookback:      cfg.Feed.Lookback,
		DryRun:        a.dryRun,
	}, a.imageSelector(), content.NewLibrary(newRand()), store, a.deliverer, opts...)

	return a, nil
}

func (a *app) openHistory() (*history.Store, error) {
	h := a.cfg.History
	var backend history.Backend

	switch h.Backend {
	case config.BackendFile:
		backend = history.NewFileBackend(h.File)
	case config.BackendBolt:
		b, err := history.NewBoltBackend(h.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("opening history database: %w", err)
		}
		a.closers = append(a.closers, b.Close)
		backend = b
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: h.RedisAddr, Password: h.RedisPassword})
		a.closers = append(a.closers, client.Close)
		backend = history.NewRedisBackend(client, h.RedisKey)
	case config.BackendMemory:
		backend = &history.MemoryBackend{}
	default:
		return nil, fmt.Errorf("unknown history backend: %s", h.Backend)
	}

	a.logger.Info("History store ready", "backend", h.Backend)
	return history.NewStore(backend,
		history.WithMaxEntries(h.MaxEntries),
		history.WithLogger(a.logger),
	), nil
}

func (a *app) openDeliverer() error {
	t := a.cfg.Telegram
	if a.cfg.DryRun || t.BotToken == "" {
		if !a.cfg.DryRun {
			a.logger.Warn("TELEGRAM_BOT_TOKEN not set, posts will only be logged")
		}
		a.dryRun = true
		a.deliverer = delivery.LogDeliverer{Logger: a.logger}
		return nil
	}
	if t.ChannelID == "" {
		return errors.New("TELEGRAM_CHANNEL_ID is required")
	}

	tg, err := delivery.NewTelegram(delivery.TelegramConfig{
		Token:    t.BotToken,
		Endpoint: t.APIEndpoint,
		Timeout:  a.cfg.Sources.HTTPTimeout,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	a.telegram = tg
	a.deliverer = tg
	return nil
}

func (a *app) imageSelector() *collector.Selector {
	src := a.cfg.Sources
	opts := func(base string) []collector.Option {
		return []collector.Option{
			collector.WithBaseURL(base),
			collector.WithTimeout(src.HTTPTimeout),
			collector.WithUserAgent(a.cfg.Reddit.UserAgent),
		}
	}

	primaries := []domain.Source{
		collector.NewSafebooru(newRand(), opts(src.SafebooruURL)...),
		collector.NewWaifuIm(newRand(), opts(src.WaifuImURL)...),
	}
	fallbacks := []domain.Source{
		collector.NewWaifuPics(opts(src.WaifuPicsURL)...),
	}
	return collector.NewSelector(primaries, fallbacks, newRand(),
		collector.WithSelectorLogger(a.logger),
		collector.WithFetchHook(a.metrics.ObserveFetch),
	)
}

// newCrawler returns nil when the feed is not usable with this config.
func (a *app) newCrawler() (*collector.Crawler, error) {
	if !a.cfg.FeedEnabled() {
		a.logger.Warn("Reddit credentials not configured, feed jobs disabled", "mode", a.cfg.Feed.Mode)
		return nil, nil
	}

	col, err := collector.NewCollector(a.cfg)
	if err != nil {
		return nil, err
	}

	targets, err := ingest.LoadTargets(a.cfg.Feed.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("loading feed targets: %w", err)
	}
	keywords, err := ingest.LoadKeywords(a.cfg.Feed.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("loading keywords: %w", err)
	}

	a.logger.Info("Collector initialized", "mode", a.cfg.Feed.Mode, "targets", len(targets), "keywords", len(keywords))
	return collector.NewCrawler(col, a.history, targets, keywords,
		collector.WithCrawlerLogger(a.logger),
		collector.WithCrawlerRand(newRand()),
	), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Closing resource failed", "err", err)
		}
	}
	a.closers = nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
