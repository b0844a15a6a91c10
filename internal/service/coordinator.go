package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"engagement_tracker/internal/domain"
)

type CoordinatorConfig struct {
	// EnabledPlatforms restricts measurement to these platforms. Empty means all.
	EnabledPlatforms []domain.Platform
}

// Coordinator runs one full scheduler invocation: select, execute, summarize.
type Coordinator struct {
	selector *DueSelector
	engine   *BatchEngine
	runs     RunStore
	logger   *slog.Logger
	enabled  map[domain.Platform]bool
	clock    func() time.Time
}

func NewCoordinator(
	selector *DueSelector,
	engine *BatchEngine,
	runs RunStore,
	logger *slog.Logger,
	cfg CoordinatorConfig,
) *Coordinator {
	var enabled map[domain.Platform]bool
	if len(cfg.EnabledPlatforms) > 0 {
		enabled = make(map[domain.Platform]bool, len(cfg.EnabledPlatforms))
		for _, p := range cfg.EnabledPlatforms {
			enabled[p] = true
		}
	}
	return &Coordinator{
		selector: selector,
		engine:   engine,
		runs:     runs,
		logger:   logger,
		enabled:  enabled,
		clock:    time.Now,
	}
}

// Run executes one invocation. The only returned error is a failure to scan
// the due set; every per-post problem is reported inside the summary.
func (c *Coordinator) Run(ctx context.Context) (*domain.RunSummary, error) {
	runID := uuid.NewString()
	startedAt := c.clock().UTC()
	logger := c.logger.With("run_id", runID)

	logger.Info("starting scrape run")

	due, err := c.selector.SelectDue(ctx, startedAt)
	if err != nil {
		logger.Error("due-set scan failed", "error", err)
		msg := err.Error()
		c.recordRun(ctx, logger, &domain.ScrapeRun{
			RunID:        runID,
			StartedAt:    startedAt,
			FinishedAt:   c.clock().UTC(),
			Status:       domain.RunFailed,
			ErrorMessage: &msg,
		})
		return nil, fmt.Errorf("select due posts: %w", err)
	}

	toRun, skipped := c.filterPlatforms(due)

	result := c.engine.Execute(ctx, toRun, startedAt)
	for _, o := range skipped {
		result.Add(o)
	}

	status := domain.RunCompleted
	if result.Cancelled > 0 || ctx.Err() != nil {
		status = domain.RunCancelled
	}

	finishedAt := c.clock().UTC()
	summary := &domain.RunSummary{
		RunID:      runID,
		Status:     status,
		StartedAt:  startedAt,
		TotalDue:   len(due),
		Successful: result.Successful,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		Cancelled:  result.Cancelled,
		DurationMs: finishedAt.Sub(startedAt).Milliseconds(),
		Batches:    result.Batches,
		Outcomes:   result.Outcomes,
	}

	logger.Info("scrape run completed",
		"status", summary.Status,
		"total_due", summary.TotalDue,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cancelled", summary.Cancelled,
		"duration_ms", summary.DurationMs,
	)

	c.recordRun(ctx, logger, &domain.ScrapeRun{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Status:     status,
		TotalDue:   summary.TotalDue,
		Successful: summary.Successful,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Cancelled:  summary.Cancelled,
	})

	return summary, nil
}

func (c *Coordinator) filterPlatforms(due []domain.TrackedPost) ([]domain.TrackedPost, []domain.PostOutcome) {
	if c.enabled == nil {
		return due, nil
	}

	toRun := make([]domain.TrackedPost, 0, len(due))
	var skipped []domain.PostOutcome
	for _, p := range due {
		if c.enabled[p.Platform] {
			toRun = append(toRun, p)
			continue
		}
		skipped = append(skipped, domain.PostOutcome{
			PostID:   p.ID,
			URL:      p.URL,
			Platform: p.Platform,
			Status:   domain.OutcomeSkipped,
			Reason:   "platform disabled",
		})
	}
	return toRun, skipped
}

func (c *Coordinator) recordRun(ctx context.Context, logger *slog.Logger, run *domain.ScrapeRun) {
	if c.runs == nil {
		return
	}
	if err := c.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to record scrape run", "error", err)
	}
}
