package domain

// Counters are sanitized engagement counters.
type Counters struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// RawCounters are untrusted counters as reported upstream. Values may be
// negative, fractional, or non-finite.
type RawCounters struct {
	Views    float64
	Likes    float64
	Comments float64
	Shares   float64
}

// FetchResult is the normalized output of the media fetcher.
type FetchResult struct {
	Platform Platform
	Counters RawCounters
}

// FailureKind classifies why a post's measurement failed.
type FailureKind string

const (
	FailureNetwork     FailureKind = "network"
	FailureRateLimited FailureKind = "rate_limited"
	FailureNotFound    FailureKind = "not_found"
	FailureMalformed   FailureKind = "malformed"
	FailurePersistence FailureKind = "persistence"
	FailureInternal    FailureKind = "internal"
)

// FetchError is a typed, non-fatal measurement failure.
type FetchError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
