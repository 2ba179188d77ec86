package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qepting91/mikubot/internal/dedup"
	"github.com/qepting91/mikubot/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TriggerValidatesNames(t *testing.T) {
	s := New([]Job{{Name: JobFact, Run: func(context.Context) error { return nil }}}, WithLogger(quiet))

	_, err := s.Trigger("nope")
	assert.ErrorIs(t, err, ErrUnknownJob)

	_, err = s.Trigger(JobBatch)
	assert.ErrorIs(t, err, ErrFeedDisabled)

	assert.ErrorIs(t, s.RunNow(context.Background(), JobNew), ErrFeedDisabled)
}

func TestScheduler_TriggerDoesNotQueueTwice(t *testing.T) {
	s := New([]Job{{Name: JobFact, Run: func(context.Context) error { return nil }}}, WithLogger(quiet))

	queued, err := s.Trigger(JobFact)
	require.NoError(t, err)
	assert.True(t, queued)

	queued, err = s.Trigger(JobFact)
	require.NoError(t, err)
	assert.False(t, queued, "a pending job is not queued again")

	st := s.Status()
	require.Len(t, st, 1)
	assert.True(t, st[0].Pending)
}

func TestScheduler_RunsTimersThroughOneWorker(t *testing.T) {
	var running, maxRunning, runs atomic.Int32
	job := func(context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		runs.Add(1)
		return nil
	}

	s := New([]Job{
		{Name: JobFact, Interval: time.Millisecond, Run: job},
		{Name: JobImage, Interval: time.Millisecond, Run: job},
	}, WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 6 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, int32(1), maxRunning.Load(), "jobs never overlap")
}

func TestScheduler_InFlightJobFinishesAfterShutdown(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var jobErr atomic.Value

	s := New([]Job{{
		Name:     JobFact,
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			if ctx.Err() != nil {
				jobErr.Store(ctx.Err())
			}
			return nil
		},
	}}, WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while a job was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	assert.Nil(t, jobErr.Load(), "the job context is not cancelled by shutdown")
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New([]Job{{Name: JobImage, Run: func(context.Context) error { panic("boom") }}}, WithLogger(quiet))

	err := s.RunNow(context.Background(), JobImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	st := s.Status()
	require.Len(t, st, 1)
	assert.Equal(t, 1, st[0].Runs)
	assert.Equal(t, metrics.JobFailed, st[0].LastOutcome)
}

func TestScheduler_StatusAndMetrics(t *testing.T) {
	m := metrics.New("test")
	results := []error{nil, fmt.Errorf("fetching image: %w", dedup.ErrDuplicatesExhausted)}
	var call int
	var mu sync.Mutex

	s := New([]Job{{
		Name:     JobImage,
		Interval: 15 * time.Minute,
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			err := results[call]
			call++
			return err
		},
	}}, WithLogger(quiet), WithSchedulerMetrics(m))

	require.NoError(t, s.RunNow(context.Background(), JobImage))
	assert.ErrorIs(t, s.RunNow(context.Background(), JobImage), dedup.ErrDuplicatesExhausted)

	st := s.Status()
	require.Len(t, st, 1)
	assert.Equal(t, 2, st[0].Runs)
	assert.Equal(t, metrics.JobDuplicate, st[0].LastOutcome)
	assert.NotEmpty(t, st[0].LastError)
	assert.Equal(t, []string{JobImage}, s.JobNames())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.JobPosted},
		{fmt.Errorf("x: %w", dedup.ErrDuplicatesExhausted), metrics.JobDuplicate},
		{fmt.Errorf("x: %w", dedup.ErrSourceExhausted), metrics.JobSkipped},
		{ErrNothingNew, metrics.JobSkipped},
		{errors.New("telegram down"), metrics.JobFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err))
	}
}
