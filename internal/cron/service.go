package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
)

const defaultInterval = time.Hour

var (
	// ErrLockHeld is returned by RunOnce when another replica owns the lock.
	ErrLockHeld = errors.New("cron lock held by another worker")
	// ErrLockLost aborts a cycle when the lock expired between jobs.
	ErrLockLost = errors.New("cron lock lost mid-cycle")
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service ticks every Interval and runs the jobs that are due under the
// worker lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
	lastRun  map[string]time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry, _ = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
		lastRun:  map[string]time.Time{},
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// RunOnce runs the named jobs, or every job when names is empty, ignoring
// cadence. Job failures are combined into the returned error.
func (s *Service) RunOnce(ctx context.Context, names ...string) error {
	jobs := s.registry.Jobs()
	if len(names) > 0 {
		jobs = make([]Job, 0, len(names))
		for _, name := range names {
			job, ok := s.registry.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown cron job %q (known: %v)", name, s.registry.Names())
			}
			jobs = append(jobs, job)
		}
	}
	acquired, failures, err := s.execute(ctx, jobs)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}
	return failures
}

// runCycle only fails on lock problems; job failures are logged and counted
// so one broken job never starves the rest.
func (s *Service) runCycle(ctx context.Context) error {
	due := s.dueJobs(s.now())
	if len(due) == 0 {
		s.logg.Info(ctx, "no cron jobs due")
		return nil
	}
	_, _, err := s.execute(ctx, due)
	return err
}

func (s *Service) dueJobs(now time.Time) []Job {
	var due []Job
	for _, job := range s.registry.Jobs() {
		cadenced, ok := job.(Cadenced)
		if !ok || cadenced.Every() <= 0 {
			due = append(due, job)
			continue
		}
		last, ran := s.lastRun[job.Name()]
		if !ran || now.Sub(last) >= cadenced.Every() {
			due = append(due, job)
		}
	}
	return due
}

func (s *Service) execute(ctx context.Context, jobs []Job) (acquired bool, failures error, err error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		return false, nil, nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(s.logg.WithField(ctx, "jobs", len(jobs)), "scheduled run starting")
	for i, job := range jobs {
		if i > 0 {
			held, extErr := s.lock.Extend(ctx)
			if extErr != nil {
				return true, failures, fmt.Errorf("lock extend: %w", extErr)
			}
			if !held {
				return true, failures, ErrLockLost
			}
		}
		failures = multierr.Append(failures, s.runJob(ctx, job))
	}
	s.logg.Info(ctx, "scheduled run complete")
	return true, failures, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   name,
		"event": "cron.job",
	})
	s.logg.Info(jobCtx, "job start")
	start := s.now()
	err := job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.lastRun[name] = start
	s.metrics.ObserveDuration(name, duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(name, start)
	return nil
}
