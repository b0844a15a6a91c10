// Package cadence decides when a tracked post is due for re-measurement and
// how its history samples are bucketed.
package cadence

import (
	"fmt"
	"time"

	"engagement_tracker/internal/domain"
)

const (
	DefaultHourlyFloor = 30 * time.Minute
	DefaultDailyFloor  = 12 * time.Hour

	TestingBucket = time.Minute
	HourlyBucket  = time.Hour
	DailyBucket   = 24 * time.Hour
	DefaultBucket = time.Hour
)

const (
	ReasonExcluded    = "excluded"
	ReasonInactive    = "inactive"
	ReasonTesting     = "testing tier"
	ReasonNeverRun    = "never scraped"
	ReasonUnknownTier = "unknown cadence tier"
)

// Decision is the outcome of a due check.
type Decision struct {
	Due    bool
	Reason string
}

// Policy holds the elapsed-time floors per tier. The zero value is not
// usable; call New or NewWithFloors.
type Policy struct {
	hourlyFloor time.Duration
	dailyFloor  time.Duration
}

func New() *Policy {
	return NewWithFloors(DefaultHourlyFloor, DefaultDailyFloor)
}

// NewWithFloors builds a policy with custom floors. Non-positive values fall
// back to the defaults.
func NewWithFloors(hourly, daily time.Duration) *Policy {
	if hourly <= 0 {
		hourly = DefaultHourlyFloor
	}
	if daily <= 0 {
		daily = DefaultDailyFloor
	}
	return &Policy{hourlyFloor: hourly, dailyFloor: daily}
}

// IsDue reports whether post should be measured at now.
func (p *Policy) IsDue(post *domain.TrackedPost, now time.Time) Decision {
	if post.TrackingMode == domain.TrackingDeleted {
		return Decision{Due: false, Reason: ReasonExcluded}
	}
	if !post.IsActive {
		return Decision{Due: false, Reason: ReasonInactive}
	}

	var floor time.Duration
	switch post.Cadence {
	case domain.CadenceTesting:
		return Decision{Due: true, Reason: ReasonTesting}
	case domain.CadenceHourly:
		floor = p.hourlyFloor
	case domain.CadenceDaily:
		floor = p.dailyFloor
	default:
		return Decision{Due: true, Reason: ReasonUnknownTier}
	}

	if post.LastScrapedAt == nil {
		return Decision{Due: true, Reason: ReasonNeverRun}
	}

	elapsed := now.Sub(*post.LastScrapedAt)
	if elapsed >= floor {
		return Decision{
			Due:    true,
			Reason: fmt.Sprintf("%s elapsed, floor %s", elapsed.Truncate(time.Second), floor),
		}
	}

	return Decision{
		Due:    false,
		Reason: fmt.Sprintf("wait %s more (floor %s)", (floor - elapsed).Truncate(time.Second), floor),
	}
}

// BucketSize returns the history granularity for a tier.
func BucketSize(tier domain.CadenceTier) time.Duration {
	switch tier {
	case domain.CadenceTesting:
		return TestingBucket
	case domain.CadenceHourly:
		return HourlyBucket
	case domain.CadenceDaily:
		return DailyBucket
	default:
		return DefaultBucket
	}
}

// Bucket normalizes t to the start of its tier window in UTC, so repeated
// measurements within one window collapse onto one sample.
func Bucket(tier domain.CadenceTier, t time.Time) time.Time {
	return t.UTC().Truncate(BucketSize(tier))
}
