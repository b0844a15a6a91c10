// Package sanitize validates and clamps untrusted engagement counters.
package sanitize

import (
	"fmt"
	"math"

	"engagement_tracker/internal/domain"
)

const (
	// MaxCounter caps every counter.
	MaxCounter int64 = 1_000_000_000

	// DecreaseRatio flags a counter that fell below this share of its previous value.
	DecreaseRatio = 0.5
)

// Result holds sanitized counters and the data-quality warnings raised while
// producing them.
type Result struct {
	domain.Counters
	Warnings []string
}

// Sanitize coerces raw counters into non-negative integers capped at
// MaxCounter. When previous is non-nil, sharp drops are reported as warnings
// but the new values are kept.
func Sanitize(raw domain.RawCounters, previous *domain.Counters) Result {
	var res Result

	res.Views = res.coerce("views", raw.Views)
	res.Likes = res.coerce("likes", raw.Likes)
	res.Comments = res.coerce("comments", raw.Comments)
	res.Shares = res.coerce("shares", raw.Shares)

	if res.Likes > res.Views || res.Comments > res.Views || res.Shares > res.Views {
		res.warnf("engagement exceeds views: views=%d likes=%d comments=%d shares=%d",
			res.Views, res.Likes, res.Comments, res.Shares)
	}

	if previous != nil {
		res.checkDecrease("views", previous.Views, res.Views)
		res.checkDecrease("likes", previous.Likes, res.Likes)
		res.checkDecrease("comments", previous.Comments, res.Comments)
		res.checkDecrease("shares", previous.Shares, res.Shares)
	}

	return res
}

func (r *Result) coerce(field string, v float64) int64 {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		r.warnf("%s is not a finite number, using 0", field)
		return 0
	case v < 0:
		r.warnf("%s is negative (%v), using 0", field, v)
		return 0
	case v > float64(MaxCounter):
		r.warnf("%s exceeds maximum (%.0f > %d), capped", field, v, MaxCounter)
		return MaxCounter
	}
	return int64(math.Floor(v))
}

func (r *Result) checkDecrease(field string, prev, cur int64) {
	if prev <= 0 {
		return
	}
	if float64(cur) < float64(prev)*DecreaseRatio {
		r.warnf("dramatic decrease in %s: %d -> %d", field, prev, cur)
	}
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
