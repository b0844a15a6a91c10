package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"engagement_tracker/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Record(ctx context.Context, run *domain.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (
			run_id, started_at, finished_at, status,
			total_due, successful, failed, skipped, cancelled, error_message
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING id`

	return s.db.QueryRowxContext(ctx, query,
		run.RunID,
		run.StartedAt,
		run.FinishedAt,
		run.Status,
		run.TotalDue,
		run.Successful,
		run.Failed,
		run.Skipped,
		run.Cancelled,
		run.ErrorMessage,
	).Scan(&run.ID)
}

// Latest returns the most recent run, or nil when none has been recorded.
func (s *RunStore) Latest(ctx context.Context) (*domain.ScrapeRun, error) {
	query := `
		SELECT id, run_id, started_at, finished_at, status,
		       total_due, successful, failed, skipped, cancelled, error_message
		FROM scrape_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1`

	var run domain.ScrapeRun
	err := s.db.GetContext(ctx, &run, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
