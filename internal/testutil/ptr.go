package testutil

import "time"

func Ptr[T any](v T) *T {
	return &v
}

// At returns a UTC timestamp at minute precision.
func At(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}
