package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"engagement_tracker/internal/domain"
)

type PostStore interface {
	ListSchedulable(ctx context.Context) ([]domain.TrackedPost, error)
	UpdateSnapshot(ctx context.Context, update domain.SnapshotUpdate) error
}

type HistoryStore interface {
	Append(ctx context.Context, sample *domain.MetricsSample) error
}

type RunStore interface {
	Record(ctx context.Context, run *domain.ScrapeRun) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Fetcher measures a post by URL. Failures are returned as *domain.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.FetchResult, error)
}

type PhaseNotifier interface {
	NotifyPhaseChange(ctx context.Context, transition domain.PhaseTransition) error
}
