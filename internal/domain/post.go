package domain

import "time"

type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram, PlatformYouTube:
		return true
	}
	return false
}

// CadenceTier is the re-measurement frequency class of a post.
type CadenceTier string

const (
	CadenceTesting CadenceTier = "testing"
	CadenceHourly  CadenceTier = "hourly"
	CadenceDaily   CadenceTier = "daily"
)

// TrackingMode is an administrative tag. Empty means normal tracking.
type TrackingMode string

const (
	TrackingNormal   TrackingMode = ""
	TrackingOrphaned TrackingMode = "orphaned"
	TrackingDeleted  TrackingMode = "deleted"
)

type TrackedPost struct {
	ID            int64        `db:"id"`
	URL           string       `db:"url"`
	Platform      Platform     `db:"platform"`
	IsActive      bool         `db:"is_active"`
	TrackingMode  TrackingMode `db:"tracking_mode"`
	Cadence       CadenceTier  `db:"cadence"`
	CreatedAt     time.Time    `db:"created_at"`
	LastScrapedAt *time.Time   `db:"last_scraped_at"`

	CurrentViews    int64 `db:"current_views"`
	CurrentLikes    int64 `db:"current_likes"`
	CurrentComments int64 `db:"current_comments"`
	CurrentShares   int64 `db:"current_shares"`

	LastDailyViews   int64 `db:"last_daily_views"`
	DailyViewsGrowth int64 `db:"daily_views_growth"`

	Phase Phase `db:"phase"`
}

// Snapshot returns the most recently recorded counters.
func (p *TrackedPost) Snapshot() Counters {
	return Counters{
		Views:    p.CurrentViews,
		Likes:    p.CurrentLikes,
		Comments: p.CurrentComments,
		Shares:   p.CurrentShares,
	}
}

// SnapshotUpdate is the single per-post write issued after a successful measurement.
type SnapshotUpdate struct {
	PostID           int64
	Counters         Counters
	LastScrapedAt    time.Time
	LastDailyViews   int64
	DailyViewsGrowth int64
	Phase            Phase
}

// MetricsSample is one append-only history row. BucketAt is the normalized
// timestamp; (PostID, BucketAt) is unique.
type MetricsSample struct {
	ID         int64     `db:"id"`
	PostID     int64     `db:"post_id"`
	Views      int64     `db:"views"`
	Likes      int64     `db:"likes"`
	Comments   int64     `db:"comments"`
	Shares     int64     `db:"shares"`
	BucketAt   time.Time `db:"bucket_at"`
	RecordedAt time.Time `db:"recorded_at"`
}
