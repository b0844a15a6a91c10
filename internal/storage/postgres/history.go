package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"engagement_tracker/internal/domain"
)

type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append inserts a sample, collapsing onto the existing row when the
// (post_id, bucket_at) pair is already present.
func (s *HistoryStore) Append(ctx context.Context, sample *domain.MetricsSample) error {
	query := `
		INSERT INTO metrics_history (
			post_id, views, likes, comments, shares, bucket_at, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (post_id, bucket_at) DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			recorded_at = EXCLUDED.recorded_at
		RETURNING id`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		sample.PostID,
		sample.Views,
		sample.Likes,
		sample.Comments,
		sample.Shares,
		sample.BucketAt,
		sample.RecordedAt,
	).Scan(&sample.ID)
}

// ListByPost returns the history of a post ordered by bucket.
func (s *HistoryStore) ListByPost(ctx context.Context, postID int64) ([]domain.MetricsSample, error) {
	query := `
		SELECT id, post_id, views, likes, comments, shares, bucket_at, recorded_at
		FROM metrics_history
		WHERE post_id = $1
		ORDER BY bucket_at`

	var samples []domain.MetricsSample
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &samples, query, postID)
	return samples, err
}
