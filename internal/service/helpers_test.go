package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"engagement_tracker/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func tikTokPost(id int64) domain.TrackedPost {
	last := testNow.Add(-time.Hour)
	return domain.TrackedPost{
		ID:            id,
		URL:           fmt.Sprintf("https://www.tiktok.com/@creator/video/%d", id),
		Platform:      domain.PlatformTikTok,
		IsActive:      true,
		Cadence:       domain.CadenceHourly,
		CreatedAt:     testNow.Add(-48 * time.Hour),
		LastScrapedAt: &last,
		CurrentViews:  1000,
		CurrentLikes:  100,
		Phase:         domain.PhaseNone,
	}
}

func tikTokResult(views, likes, comments, shares float64) *domain.FetchResult {
	return &domain.FetchResult{
		Platform: domain.PlatformTikTok,
		Counters: domain.RawCounters{Views: views, Likes: likes, Comments: comments, Shares: shares},
	}
}

func runInline(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
