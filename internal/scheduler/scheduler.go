package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"engagement_tracker/internal/domain"
)

const DefaultRunTimeout = 5 * time.Minute

// ErrRunInProgress is returned when a run is requested while another one is
// still executing.
var ErrRunInProgress = errors.New("run already in progress")

// Runner defines the interface for one scheduler invocation.
type Runner interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
}

type Config struct {
	// Spec is a six-field cron expression (seconds first).
	Spec       string
	RunTimeout time.Duration
	RunOnStart bool
}

// Scheduler triggers runs from a cron schedule and on demand. At most one run
// executes at a time.
type Scheduler struct {
	runner     Runner
	spec       string
	runTimeout time.Duration
	runOnStart bool
	cron       *cron.Cron
	mu         sync.Mutex
	logger     *slog.Logger
}

func NewScheduler(runner Runner, cfg Config, logger *slog.Logger) *Scheduler {
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Scheduler{
		runner:     runner,
		spec:       cfg.Spec,
		runTimeout: timeout,
		runOnStart: cfg.RunOnStart,
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		logger:     logger,
	}
}

// Start registers the schedule and blocks until ctx is done. In-flight runs
// are waited for before it returns.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runScheduled(ctx)
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "run_timeout", s.runTimeout)

	var wg sync.WaitGroup
	if s.runOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runScheduled(ctx)
		}()
	}

	<-ctx.Done()

	<-s.cron.Stop().Done()
	wg.Wait()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// TriggerNow executes a run immediately, or returns ErrRunInProgress.
func (s *Scheduler) TriggerNow(ctx context.Context) (*domain.RunSummary, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	return s.runner.Run(runCtx)
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	summary, err := s.TriggerNow(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("previous run still in progress, skipping tick")
	case err != nil:
		s.logger.Error("run failed", "error", err)
	default:
		s.logger.Debug("scheduled run finished",
			"run_id", summary.RunID,
			"status", summary.Status,
		)
	}
}
