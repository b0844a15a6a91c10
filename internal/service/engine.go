package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"engagement_tracker/internal/cadence"
	"engagement_tracker/internal/domain"
	"engagement_tracker/internal/phase"
	"engagement_tracker/internal/sanitize"
)

const (
	DefaultBatchSize      = 10
	DefaultPersistTimeout = 15 * time.Second
)

type EngineConfig struct {
	BatchSize      int
	PersistTimeout time.Duration
}

// BatchEngine measures a due set in sequential batches, fetching the posts of
// one batch concurrently.
type BatchEngine struct {
	fetcher    Fetcher
	posts      PostStore
	history    HistoryStore
	txManager  TransactionManager
	notifier   PhaseNotifier
	classifier *phase.Classifier
	logger     *slog.Logger
	config     EngineConfig
}

func NewBatchEngine(
	fetcher Fetcher,
	posts PostStore,
	history HistoryStore,
	txManager TransactionManager,
	notifier PhaseNotifier,
	classifier *phase.Classifier,
	logger *slog.Logger,
	cfg EngineConfig,
) *BatchEngine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}
	return &BatchEngine{
		fetcher:    fetcher,
		posts:      posts,
		history:    history,
		txManager:  txManager,
		notifier:   notifier,
		classifier: classifier,
		logger:     logger,
		config:     cfg,
	}
}

// Execute runs the pipeline for every post in due. Per-post failures are
// recorded as outcomes and never abort the run. Once ctx is done, posts that
// have not started are reported as cancelled.
func (e *BatchEngine) Execute(ctx context.Context, due []domain.TrackedPost, now time.Time) *domain.ProcessingResult {
	result := &domain.ProcessingResult{
		Outcomes: make([]domain.PostOutcome, 0, len(due)),
	}

	batches := partition(due, e.config.BatchSize)
	for i, batch := range batches {
		var outcomes []domain.PostOutcome
		if ctx.Err() != nil {
			outcomes = cancelledOutcomes(batch)
		} else {
			outcomes = e.runBatch(ctx, batch, now)
		}

		stats := domain.BatchStats{Index: i, Size: len(batch)}
		for _, o := range outcomes {
			switch o.Status {
			case domain.OutcomeSuccess:
				stats.Successful++
			case domain.OutcomeFailed:
				stats.Failed++
			case domain.OutcomeCancelled:
				stats.Cancelled++
			}
			result.Add(o)
		}
		result.Batches = append(result.Batches, stats)

		e.logger.Info("batch completed",
			"batch", i+1,
			"batches", len(batches),
			"size", stats.Size,
			"successful", stats.Successful,
			"failed", stats.Failed,
			"cancelled", stats.Cancelled,
		)
	}

	return result
}

func (e *BatchEngine) runBatch(ctx context.Context, batch []domain.TrackedPost, now time.Time) []domain.PostOutcome {
	outcomes := make([]domain.PostOutcome, len(batch))

	var g errgroup.Group
	g.SetLimit(e.config.BatchSize)
	for i := range batch {
		g.Go(func() error {
			outcomes[i] = e.processPost(ctx, &batch[i], now)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (e *BatchEngine) processPost(ctx context.Context, post *domain.TrackedPost, now time.Time) (outcome domain.PostOutcome) {
	outcome = domain.PostOutcome{
		PostID:   post.ID,
		URL:      post.URL,
		Platform: post.Platform,
	}
	logger := e.logger.With("post_id", post.ID, "platform", post.Platform)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("post pipeline panicked", "panic", r)
			outcome = failedOutcome(outcome, domain.FailureInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	if ctx.Err() != nil {
		outcome.Status = domain.OutcomeCancelled
		outcome.Reason = "run cancelled"
		return outcome
	}

	fetched, err := e.fetcher.Fetch(ctx, post.URL)
	if err != nil {
		if ctx.Err() != nil {
			outcome.Status = domain.OutcomeCancelled
			outcome.Reason = "run cancelled during fetch"
			return outcome
		}
		kind := failureKind(err)
		logger.Warn("fetch failed", "kind", kind, "error", err)
		return failedOutcome(outcome, kind, err.Error())
	}
	if fetched == nil || fetched.Platform != post.Platform {
		reason := "fetcher returned no result"
		if fetched != nil {
			reason = fmt.Sprintf("platform mismatch: expected %s, got %s", post.Platform, fetched.Platform)
		}
		logger.Warn("fetch result rejected", "reason", reason)
		return failedOutcome(outcome, domain.FailureMalformed, reason)
	}

	previous := post.Snapshot()
	clean := sanitize.Sanitize(engagementCounters(fetched), &previous)
	for _, w := range clean.Warnings {
		logger.Warn("data quality warning", "warning", w)
	}

	nextPhase := e.classifier.Classify(post.Phase, clean.Views, clean.Comments)

	update := domain.SnapshotUpdate{
		PostID:           post.ID,
		Counters:         clean.Counters,
		LastScrapedAt:    now,
		LastDailyViews:   previous.Views,
		DailyViewsGrowth: max(0, clean.Views-previous.Views),
		Phase:            nextPhase,
	}
	sample := &domain.MetricsSample{
		PostID:     post.ID,
		Views:      clean.Views,
		Likes:      clean.Likes,
		Comments:   clean.Comments,
		Shares:     clean.Shares,
		BucketAt:   cadence.Bucket(post.Cadence, now),
		RecordedAt: now,
	}

	// Resolved measurements are written even if the run is cancelled meanwhile.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.PersistTimeout)
	defer cancel()

	if err := e.persist(persistCtx, update, sample); err != nil {
		logger.Error("persist measurement failed",
			"error", err,
			"views", clean.Views,
			"likes", clean.Likes,
			"comments", clean.Comments,
			"shares", clean.Shares,
		)
		return failedOutcome(outcome, domain.FailurePersistence, err.Error())
	}

	counters := clean.Counters
	outcome.Status = domain.OutcomeSuccess
	outcome.Counters = &counters
	outcome.Warnings = clean.Warnings
	outcome.PhaseFrom = post.Phase
	outcome.PhaseTo = nextPhase

	if outcome.PhaseChanged() {
		logger.Info("phase changed", "from", post.Phase, "to", nextPhase)
		e.notify(persistCtx, logger, domain.PhaseTransition{
			PostID:   post.ID,
			URL:      post.URL,
			Platform: post.Platform,
			From:     post.Phase,
			To:       nextPhase,
			Views:    clean.Views,
			Comments: clean.Comments,
		})
	}

	logger.Debug("post measured",
		"views", clean.Views,
		"growth", update.DailyViewsGrowth,
		"bucket", sample.BucketAt,
	)

	return outcome
}

// persist writes the snapshot and the history sample in one transaction.
func (e *BatchEngine) persist(ctx context.Context, update domain.SnapshotUpdate, sample *domain.MetricsSample) error {
	return e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.posts.UpdateSnapshot(txCtx, update); err != nil {
			return fmt.Errorf("update snapshot: %w", err)
		}
		if err := e.history.Append(txCtx, sample); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
}

func (e *BatchEngine) notify(ctx context.Context, logger *slog.Logger, transition domain.PhaseTransition) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyPhaseChange(ctx, transition); err != nil {
		logger.Error("phase notification failed", "error", err)
	}
}

// engagementCounters drops shares for platforms that do not track them.
func engagementCounters(res *domain.FetchResult) domain.RawCounters {
	raw := res.Counters
	if res.Platform != domain.PlatformTikTok {
		raw.Shares = 0
	}
	return raw
}

func failureKind(err error) domain.FailureKind {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureNetwork
	}
	return domain.FailureInternal
}

func failedOutcome(o domain.PostOutcome, kind domain.FailureKind, reason string) domain.PostOutcome {
	o.Status = domain.OutcomeFailed
	o.FailureKind = kind
	o.Reason = reason
	o.Counters = nil
	o.Warnings = nil
	o.PhaseFrom = ""
	o.PhaseTo = ""
	return o
}

func cancelledOutcomes(batch []domain.TrackedPost) []domain.PostOutcome {
	outcomes := make([]domain.PostOutcome, len(batch))
	for i, p := range batch {
		outcomes[i] = domain.PostOutcome{
			PostID:   p.ID,
			URL:      p.URL,
			Platform: p.Platform,
			Status:   domain.OutcomeCancelled,
			Reason:   "run cancelled before batch",
		}
	}
	return outcomes
}

func partition(posts []domain.TrackedPost, size int) [][]domain.TrackedPost {
	var batches [][]domain.TrackedPost
	for start := 0; start < len(posts); start += size {
		end := min(start+size, len(posts))
		batches = append(batches, posts[start:end])
	}
	return batches
}
