package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"engagement_tracker/internal/cadence"
	"engagement_tracker/internal/domain"
)

type DueSelector struct {
	posts  PostStore
	policy *cadence.Policy
	logger *slog.Logger
}

func NewDueSelector(posts PostStore, policy *cadence.Policy, logger *slog.Logger) *DueSelector {
	return &DueSelector{
		posts:  posts,
		policy: policy,
		logger: logger,
	}
}

// SelectDue returns the schedulable posts that are due at now. It does not
// write to the store.
func (s *DueSelector) SelectDue(ctx context.Context, now time.Time) ([]domain.TrackedPost, error) {
	posts, err := s.posts.ListSchedulable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedulable posts: %w", err)
	}

	due := make([]domain.TrackedPost, 0, len(posts))
	for i := range posts {
		decision := s.policy.IsDue(&posts[i], now)
		if !decision.Due {
			s.logger.Debug("post not due",
				"post_id", posts[i].ID,
				"cadence", posts[i].Cadence,
				"reason", decision.Reason,
			)
			continue
		}
		due = append(due, posts[i])
	}

	s.logger.Info("selected due posts",
		"scanned", len(posts),
		"due", len(due),
	)

	return due, nil
}
