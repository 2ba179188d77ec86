package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/qepting91/mikubot/internal/dashboard"
	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/qepting91/mikubot/internal/scheduler"
	"github.com/qepting91/mikubot/internal/storage"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and the status server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(parent context.Context) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(version)

	// the writer goroutine owns the post log
	postLog := make(chan storage.PublishedPost, 100)
	var writerWg sync.WaitGroup
	writer := &storage.WriterService{FilePath: cfg.Server.PostLog, Logger: logger}
	writerWg.Add(1)
	go writer.Start(&writerWg, postLog)

	a, err := newApp(ctx, cfg, logger, m, postLog)
	if err != nil {
		close(postLog)
		writerWg.Wait()
		return err
	}
	defer a.Close()

	monitorOnly := false
	if a.telegram != nil {
		conflict, err := a.telegram.CheckConflict(ctx)
		switch {
		case err != nil:
			logger.Warn("Could not check for another running instance", "err", err)
		case conflict:
			logger.Warn("Another instance is already running this bot, starting in monitor-only mode")
			monitorOnly = true
		}
	}

	var (
		jobs     dashboard.Jobs
		schedWg  sync.WaitGroup
		serverWg sync.WaitGroup
	)
	if !monitorOnly {
		if a.crawler != nil {
			a.crawler.Init(ctx)
		}
		sched := scheduler.New(a.poster.Jobs(),
			scheduler.WithLogger(logger),
			scheduler.WithSchedulerMetrics(m),
		)
		jobs = sched
		schedWg.Add(1)
		go func() {
			defer schedWg.Done()
			sched.Run(ctx)
		}()
	}

	srv := dashboard.NewServer(dashboard.Config{
		Channel:     cfg.Telegram.ChannelID,
		PostLog:     cfg.Server.PostLog,
		FeedEnabled: a.poster.FeedEnabled(),
		DryRun:      a.dryRun,
		MonitorOnly: monitorOnly,
		Version:     version,
	}, a.history, jobs, m, logger)

	serverWg.Add(1)
	go func() {
		defer serverWg.Done()
		if err := srv.ListenAndServe(ctx, ":"+cfg.Server.Port); err != nil {
			logger.Error("Status server failed", "err", err)
		}
	}()

	logger.Info("Bot started", "channel", cfg.Telegram.ChannelID, "feed_enabled", a.poster.FeedEnabled(), "monitor_only", monitorOnly, "dry_run", a.dryRun)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	schedWg.Wait()
	serverWg.Wait()
	close(postLog)
	writerWg.Wait()
	logger.Info("Shutdown complete")
	return nil
}
