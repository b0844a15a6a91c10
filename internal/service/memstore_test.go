package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"engagement_tracker/internal/domain"
)

type historyKey struct {
	postID int64
	bucket time.Time
}

// memStore is an in-memory PostStore, HistoryStore, RunStore and
// TransactionManager with the same collapse semantics as the postgres stores.
type memStore struct {
	mu      sync.Mutex
	posts   map[int64]*domain.TrackedPost
	history map[historyKey]domain.MetricsSample
	runs    []domain.ScrapeRun
}

func newMemStore(posts ...domain.TrackedPost) *memStore {
	m := &memStore{
		posts:   make(map[int64]*domain.TrackedPost),
		history: make(map[historyKey]domain.MetricsSample),
	}
	for i := range posts {
		p := posts[i]
		m.posts[p.ID] = &p
	}
	return m
}

func (m *memStore) ListSchedulable(_ context.Context) ([]domain.TrackedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.TrackedPost
	for _, p := range m.posts {
		if p.IsActive && p.TrackingMode != domain.TrackingDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) UpdateSnapshot(_ context.Context, u domain.SnapshotUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[u.PostID]
	if !ok {
		return errors.New("post not found")
	}
	at := u.LastScrapedAt
	p.CurrentViews = u.Counters.Views
	p.CurrentLikes = u.Counters.Likes
	p.CurrentComments = u.Counters.Comments
	p.CurrentShares = u.Counters.Shares
	p.LastScrapedAt = &at
	p.LastDailyViews = u.LastDailyViews
	p.DailyViewsGrowth = u.DailyViewsGrowth
	p.Phase = u.Phase
	return nil
}

func (m *memStore) Append(_ context.Context, sample *domain.MetricsSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[historyKey{postID: sample.PostID, bucket: sample.BucketAt}] = *sample
	return nil
}

func (m *memStore) Record(_ context.Context, run *domain.ScrapeRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, *run)
	return nil
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) post(id int64) domain.TrackedPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.posts[id]
}

func (m *memStore) samplesFor(id int64) []domain.MetricsSample {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.MetricsSample
	for k, v := range m.history {
		if k.postID == id {
			out = append(out, v)
		}
	}
	return out
}
