// Package scheduler runs the posting jobs. Timers feed job names into one
// queue and a single worker runs them, so two jobs never post or touch
// history at the same time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/qepting91/mikubot/internal/dedup"
	"github.com/qepting91/mikubot/internal/metrics"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrFeedDisabled = errors.New("feed jobs are disabled: no reddit collector configured")
)

type Job struct {
	Name     string
	Interval time.Duration
	// First is the delay before the first run.
	First time.Duration
	Run   func(ctx context.Context) error
}

// JobStatus is the last known state of a job.
type JobStatus struct {
	Name        string        `json:"name"`
	Interval    time.Duration `json:"interval"`
	Runs        int           `json:"runs"`
	LastRun     time.Time     `json:"last_run,omitzero"`
	LastOutcome string        `json:"last_outcome,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	Pending     bool          `json:"pending"`
}

type Scheduler struct {
	jobs  map[string]Job
	order []string
	queue chan string

	// runMu serializes the worker with RunNow.
	runMu sync.Mutex

	mu      sync.Mutex
	pending map[string]bool
	status  map[string]*JobStatus

	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSchedulerMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(jobs []Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:    make(map[string]Job, len(jobs)),
		queue:   make(chan string, len(jobs)),
		pending: make(map[string]bool),
		status:  make(map[string]*JobStatus),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j.Name)
		s.status[j.Name] = &JobStatus{Name: j.Name, Interval: j.Interval}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts a timer per job and the worker. It blocks until ctx is done
// and the job in flight, if any, has finished.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, name := range s.order {
		job := s.jobs[name]
		if job.Interval <= 0 {
			s.logger.Warn("Job has no interval, only runs on demand", "job", name)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(ctx, job)
		}()
		s.logger.Info("Scheduled job", "job", name, "interval", job.Interval.String(), "first", job.First.String())
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.work(ctx)
	}()

	wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	timer := time.NewTimer(job.First)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.enqueue(job.Name)
			timer.Reset(job.Interval)
		}
	}
}

func (s *Scheduler) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-s.queue:
			s.mu.Lock()
			delete(s.pending, name)
			s.mu.Unlock()
			s.metrics.SetQueueDepth(len(s.queue))

			// shutdown must not cut a delivery in half
			s.execute(context.WithoutCancel(ctx), name)
		}
	}
}

// enqueue adds name to the queue unless it is already waiting there.
func (s *Scheduler) enqueue(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[name] {
		s.logger.Debug("Job already pending", "job", name)
		return false
	}
	s.pending[name] = true
	// the queue holds one slot per job, so this never blocks
	s.queue <- name
	s.metrics.SetQueueDepth(len(s.queue))
	return true
}

func (s *Scheduler) lookup(name string) (Job, error) {
	job, ok := s.jobs[name]
	if ok {
		return job, nil
	}
	if feedJobs[name] {
		return Job{}, fmt.Errorf("%w: %s", ErrFeedDisabled, name)
	}
	return Job{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// Trigger queues an extra run of the named job. It returns false when a run
// was already pending.
func (s *Scheduler) Trigger(name string) (bool, error) {
	if _, err := s.lookup(name); err != nil {
		return false, err
	}
	return s.enqueue(name), nil
}

// RunNow runs the job synchronously and returns its error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	if _, err := s.lookup(name); err != nil {
		return err
	}
	return s.execute(ctx, name)
}

func (s *Scheduler) execute(ctx context.Context, name string) (err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	job := s.jobs[name]
	start := s.now()
	logger := s.logger.With("job", name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
			logger.Error("Job panicked", "panic", r, "stack", string(debug.Stack()))
		}
		outcome := classify(err)
		s.metrics.ObserveJob(name, outcome, s.now().Sub(start))
		s.record(name, start, outcome, err)
	}()

	logger.Debug("Running job")
	err = job.Run(ctx)
	switch classify(err) {
	case metrics.JobPosted:
		logger.Info("Job finished", "took", s.now().Sub(start).String())
	case metrics.JobDuplicate:
		logger.Warn("Skipping post, no unseen content", "err", err)
	case metrics.JobSkipped:
		logger.Info("Skipping post", "reason", err.Error())
	default:
		logger.Error("Job failed", "err", err)
	}
	return err
}

func classify(err error) string {
	switch {
	case err == nil:
		return metrics.JobPosted
	case errors.Is(err, dedup.ErrDuplicatesExhausted):
		return metrics.JobDuplicate
	case errors.Is(err, dedup.ErrSourceExhausted), errors.Is(err, ErrNothingNew):
		return metrics.JobSkipped
	default:
		return metrics.JobFailed
	}
}

func (s *Scheduler) record(name string, at time.Time, outcome string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	if !ok {
		return
	}
	st.Runs++
	st.LastRun = at
	st.LastOutcome = outcome
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
}

// Status returns a snapshot of every job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.status))
	for name, st := range s.status {
		cp := *st
		cp.Pending = s.pending[name]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) JobNames() []string {
	return append([]string(nil), s.order...)
}
