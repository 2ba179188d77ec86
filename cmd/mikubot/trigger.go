package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/qepting91/mikubot/internal/scheduler"
	"github.com/qepting91/mikubot/internal/storage"
	"github.com/spf13/cobra"
)

func newTriggerCmd() *cobra.Command {
	jobs := []string{scheduler.JobFact, scheduler.JobImage, scheduler.JobFeed, scheduler.JobBatch, scheduler.JobNew}
	return &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Run one job now and exit (" + strings.Join(jobs, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := triggerJob(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s job finished\n", args[0])
			return nil
		},
	}
}

func triggerJob(ctx context.Context, job string) error {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	postLog := make(chan storage.PublishedPost, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go (&storage.WriterService{FilePath: cfg.Server.PostLog, Logger: logger}).Start(&wg, postLog)
	defer func() {
		close(postLog)
		wg.Wait()
	}()

	a, err := newApp(ctx, cfg, logger, metrics.New(version), postLog)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.poster.Jobs(), scheduler.WithLogger(logger))
	return sched.RunNow(ctx, job)
}
