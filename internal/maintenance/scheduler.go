// Package maintenance runs periodic housekeeping for the task store and the
// per-sender rate limiter.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alekspetrov/taskbot/internal/logging"
)

// Config holds maintenance configuration.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron spec or @every descriptor
	// LimiterIdle is how long a sender's rate limiter may sit unused before
	// it is dropped.
	LimiterIdle time.Duration `yaml:"limiter_idle"`
}

// DefaultConfig returns default maintenance configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Schedule:    "@every 6h",
		LimiterIdle: time.Hour,
	}
}

// Store is the maintenance surface of the task store.
type Store interface {
	Count(ctx context.Context) (int, error)
	Optimize(ctx context.Context) error
}

// Limiter drops idle per-sender state.
type Limiter interface {
	Cleanup(maxIdle time.Duration) int
}

// Report summarizes one maintenance run.
type Report struct {
	Tasks           int
	LimitersDropped int
	Duration        time.Duration
}

// Scheduler runs maintenance on a cron schedule.
type Scheduler struct {
	store   Store
	limiter Limiter
	config  *Config
	onRun   func(Report)

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	entryID cron.EntryID
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. limiter and onRun may be nil.
func NewScheduler(store Store, limiter Limiter, config *Config, onRun func(Report)) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scheduler{
		store:   store,
		limiter: limiter,
		config:  config,
		onRun:   onRun,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logging.WithComponent("maintenance"),
	}
}

// Start schedules the job. It is a no-op when disabled or already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Maintenance scheduler disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.RunNow(ctx); err != nil {
			s.logger.Error("Maintenance run failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.config.Schedule, err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.running = true

	s.logger.Info("Maintenance scheduler started",
		slog.String("schedule", s.config.Schedule),
		slog.Time("next_run", s.cron.Entry(s.entryID).Next),
	)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("Maintenance scheduler stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run, or the zero time when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RunNow performs one maintenance pass immediately.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report

	if err := s.store.Optimize(ctx); err != nil {
		return report, fmt.Errorf("optimize store: %w", err)
	}

	n, err := s.store.Count(ctx)
	if err != nil {
		return report, fmt.Errorf("count tasks: %w", err)
	}
	report.Tasks = n

	if s.limiter != nil {
		report.LimitersDropped = s.limiter.Cleanup(s.config.LimiterIdle)
	}
	report.Duration = time.Since(start)

	s.logger.Info("Maintenance completed",
		slog.Int("tasks", report.Tasks),
		slog.Int("limiters_dropped", report.LimitersDropped),
		slog.Duration("duration", report.Duration),
	)

	if s.onRun != nil {
		s.onRun(report)
	}
	return report, nil
}
