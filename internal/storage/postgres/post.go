package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"engagement_tracker/internal/domain"
)

var ErrPostNotFound = errors.New("post not found")

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `
	id, url, platform, is_active, COALESCE(tracking_mode, '') AS tracking_mode,
	cadence, created_at, last_scraped_at,
	current_views, current_likes, current_comments, current_shares,
	last_daily_views, daily_views_growth, phase`

// ListSchedulable returns active posts that are not deleted.
func (s *PostStore) ListSchedulable(ctx context.Context) ([]domain.TrackedPost, error) {
	query := `SELECT` + postColumns + `
		FROM tracked_posts
		WHERE is_active = TRUE
		  AND (tracking_mode IS NULL OR tracking_mode <> 'deleted')
		ORDER BY id`

	var posts []domain.TrackedPost
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &posts, query); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) GetByID(ctx context.Context, id int64) (*domain.TrackedPost, error) {
	query := `SELECT` + postColumns + ` FROM tracked_posts WHERE id = $1`

	var post domain.TrackedPost
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// Insert registers a new tracked post. It is the ingestion path used by
// operators and tests; the scheduler never calls it.
func (s *PostStore) Insert(ctx context.Context, post *domain.TrackedPost) (int64, error) {
	query := `
		INSERT INTO tracked_posts (
			url, platform, is_active, tracking_mode, cadence, last_scraped_at,
			current_views, current_likes, current_comments, current_shares, phase
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id`

	phase := post.Phase
	if phase == "" {
		phase = domain.PhaseNone
	}

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		post.URL,
		post.Platform,
		post.IsActive,
		string(post.TrackingMode),
		post.Cadence,
		post.LastScrapedAt,
		post.CurrentViews,
		post.CurrentLikes,
		post.CurrentComments,
		post.CurrentShares,
		phase,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	post.ID = id
	return id, nil
}

// UpdateSnapshot writes the measured counters, timestamps and phase of one
// post.
func (s *PostStore) UpdateSnapshot(ctx context.Context, u domain.SnapshotUpdate) error {
	query := `
		UPDATE tracked_posts SET
			current_views = $1,
			current_likes = $2,
			current_comments = $3,
			current_shares = $4,
			last_scraped_at = $5,
			last_daily_views = $6,
			daily_views_growth = $7,
			phase = $8,
			updated_at = NOW()
		WHERE id = $9`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		u.Counters.Views,
		u.Counters.Likes,
		u.Counters.Comments,
		u.Counters.Shares,
		u.LastScrapedAt,
		u.LastDailyViews,
		u.DailyViewsGrowth,
		u.Phase,
		u.PostID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update post %d: %w", u.PostID, ErrPostNotFound)
	}
	return nil
}
