//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"engagement_tracker/internal/domain"
	"engagement_tracker/internal/testutil"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_tracked_posts.up.sql"),
			filepath.Join(migrationsPath, "002_create_metrics_history.up.sql"),
			filepath.Join(migrationsPath, "003_create_scrape_runs.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM metrics_history")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM tracked_posts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM scrape_runs")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertPost(url string, mutate func(p *domain.TrackedPost)) int64 {
	post := &domain.TrackedPost{
		URL:      url,
		Platform: domain.PlatformTikTok,
		IsActive: true,
		Cadence:  domain.CadenceHourly,
	}
	if mutate != nil {
		mutate(post)
	}
	id, err := NewPostStore(s.db).Insert(s.ctx, post)
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) TestPostStore_ListSchedulable_ExcludesInactiveAndDeleted() {
	active := s.insertPost("https://tiktok.com/@a/video/1", nil)
	orphaned := s.insertPost("https://tiktok.com/@a/video/2", func(p *domain.TrackedPost) {
		p.TrackingMode = domain.TrackingOrphaned
	})
	s.insertPost("https://tiktok.com/@a/video/3", func(p *domain.TrackedPost) {
		p.IsActive = false
	})
	s.insertPost("https://tiktok.com/@a/video/4", func(p *domain.TrackedPost) {
		p.TrackingMode = domain.TrackingDeleted
	})

	posts, err := NewPostStore(s.db).ListSchedulable(s.ctx)
	s.NoError(err)
	s.Require().Len(posts, 2)
	s.Equal(active, posts[0].ID)
	s.Equal(domain.TrackingNormal, posts[0].TrackingMode)
	s.Equal(domain.PhaseNone, posts[0].Phase)
	s.Nil(posts[0].LastScrapedAt)
	s.Equal(orphaned, posts[1].ID)
	s.Equal(domain.TrackingOrphaned, posts[1].TrackingMode)
}

func (s *PostgresIntegrationSuite) TestPostStore_UpdateSnapshot() {
	store := NewPostStore(s.db)
	id := s.insertPost("https://tiktok.com/@a/video/1", nil)
	scrapedAt := testutil.At(2025, time.June, 1, 12, 15)

	err := store.UpdateSnapshot(s.ctx, domain.SnapshotUpdate{
		PostID:           id,
		Counters:         domain.Counters{Views: 6000, Likes: 500, Comments: 6, Shares: 3},
		LastScrapedAt:    scrapedAt,
		LastDailyViews:   4000,
		DailyViewsGrowth: 2000,
		Phase:            domain.PhaseInPhase1,
	})
	s.NoError(err)

	post, err := store.GetByID(s.ctx, id)
	s.NoError(err)
	s.Equal(int64(6000), post.CurrentViews)
	s.Equal(int64(500), post.CurrentLikes)
	s.Equal(int64(6), post.CurrentComments)
	s.Equal(int64(3), post.CurrentShares)
	s.Equal(int64(4000), post.LastDailyViews)
	s.Equal(int64(2000), post.DailyViewsGrowth)
	s.Equal(domain.PhaseInPhase1, post.Phase)
	s.Require().NotNil(post.LastScrapedAt)
	s.True(scrapedAt.Equal(*post.LastScrapedAt))
}

func (s *PostgresIntegrationSuite) TestPostStore_UpdateSnapshot_UnknownPost() {
	err := NewPostStore(s.db).UpdateSnapshot(s.ctx, domain.SnapshotUpdate{
		PostID: 424242,
		Phase:  domain.PhaseNone,
	})
	s.ErrorIs(err, ErrPostNotFound)
}

func (s *PostgresIntegrationSuite) TestHistoryStore_Append_CollapsesWithinBucket() {
	store := NewHistoryStore(s.db)
	id := s.insertPost("https://tiktok.com/@a/video/1", nil)
	bucket := testutil.At(2025, time.June, 1, 12, 0)

	first := &domain.MetricsSample{
		PostID:     id,
		Views:      1000,
		BucketAt:   bucket,
		RecordedAt: bucket.Add(5 * time.Minute),
	}
	s.NoError(store.Append(s.ctx, first))
	s.Greater(first.ID, int64(0))

	second := &domain.MetricsSample{
		PostID:     id,
		Views:      1200,
		Likes:      40,
		BucketAt:   bucket,
		RecordedAt: bucket.Add(40 * time.Minute),
	}
	s.NoError(store.Append(s.ctx, second))
	s.Equal(first.ID, second.ID)

	next := &domain.MetricsSample{
		PostID:     id,
		Views:      1500,
		BucketAt:   bucket.Add(time.Hour),
		RecordedAt: bucket.Add(65 * time.Minute),
	}
	s.NoError(store.Append(s.ctx, next))

	samples, err := store.ListByPost(s.ctx, id)
	s.NoError(err)
	s.Require().Len(samples, 2)
	s.Equal(int64(1200), samples[0].Views)
	s.Equal(int64(40), samples[0].Likes)
	s.Equal(int64(1500), samples[1].Views)
}

func (s *PostgresIntegrationSuite) TestRunStore_RecordAndLatest() {
	store := NewRunStore(s.db)

	latest, err := store.Latest(s.ctx)
	s.NoError(err)
	s.Nil(latest)

	started := testutil.At(2025, time.June, 1, 12, 0)
	s.NoError(store.Record(s.ctx, &domain.ScrapeRun{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Status:     domain.RunCompleted,
		TotalDue:   3,
		Successful: 3,
	}))
	failed := &domain.ScrapeRun{
		RunID:        "run-2",
		StartedAt:    started.Add(time.Hour),
		FinishedAt:   started.Add(time.Hour),
		Status:       domain.RunFailed,
		ErrorMessage: testutil.Ptr("connection refused"),
	}
	s.NoError(store.Record(s.ctx, failed))
	s.Greater(failed.ID, int64(0))

	latest, err = store.Latest(s.ctx)
	s.NoError(err)
	s.Require().NotNil(latest)
	s.Equal("run-2", latest.RunID)
	s.Equal(domain.RunFailed, latest.Status)
	s.Require().NotNil(latest.ErrorMessage)
	s.Equal("connection refused", *latest.ErrorMessage)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	posts := NewPostStore(s.db)
	history := NewHistoryStore(s.db)
	id := s.insertPost("https://tiktok.com/@a/video/1", nil)
	now := testutil.At(2025, time.June, 1, 12, 15)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := posts.UpdateSnapshot(ctx, domain.SnapshotUpdate{
			PostID:        id,
			Counters:      domain.Counters{Views: 100},
			LastScrapedAt: now,
			Phase:         domain.PhaseNone,
		}); err != nil {
			return err
		}
		return history.Append(ctx, &domain.MetricsSample{
			PostID:     id,
			Views:      100,
			BucketAt:   now.Truncate(time.Hour),
			RecordedAt: now,
		})
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM metrics_history WHERE post_id = $1", id)
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	posts := NewPostStore(s.db)
	history := NewHistoryStore(s.db)
	id := s.insertPost("https://tiktok.com/@a/video/1", func(p *domain.TrackedPost) {
		p.CurrentViews = 50
	})
	now := testutil.At(2025, time.June, 1, 12, 15)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := posts.UpdateSnapshot(ctx, domain.SnapshotUpdate{
			PostID:        id,
			Counters:      domain.Counters{Views: 100},
			LastScrapedAt: now,
			Phase:         domain.PhaseNone,
		}); err != nil {
			return err
		}
		// unknown post violates the foreign key
		return history.Append(ctx, &domain.MetricsSample{
			PostID:     id + 1000,
			Views:      100,
			BucketAt:   now.Truncate(time.Hour),
			RecordedAt: now,
		})
	})
	s.Error(err)

	post, err := posts.GetByID(s.ctx, id)
	s.NoError(err)
	s.Equal(int64(50), post.CurrentViews)
	s.Nil(post.LastScrapedAt)
}
