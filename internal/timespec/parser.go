// Package timespec parses the --since and --until values of `sixhat hoard`.
package timespec

import (
	"fmt"
	"time"
)

// Parse turns spec into a Unix timestamp in milliseconds. spec is either an
// RFC3339 time or a Go duration measured back from now ("2h" is two hours
// ago).
func Parse(spec string) (int64, error) {
	return ParseAt(spec, time.Now())
}

// ParseAt is Parse with an explicit reference time for durations.
func ParseAt(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}
	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration: %s", spec)
		}
		return now.Add(-d).UnixMilli(), nil
	}
	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// Range is a closed time window in Unix milliseconds. Zero means unbounded.
type Range struct {
	SinceMs int64
	UntilMs int64
}

// ParseRange parses both flags and checks since is before until.
func ParseRange(since, until string) (Range, error) {
	now := time.Now()
	var r Range
	var err error

	if since != "" {
		if r.SinceMs, err = ParseAt(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if r.UntilMs, err = ParseAt(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}
	if r.SinceMs > 0 && r.UntilMs > 0 && r.SinceMs >= r.UntilMs {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}

// Contains reports whether tsMs falls inside the window.
func (r Range) Contains(tsMs int64) bool {
	if r.SinceMs > 0 && tsMs < r.SinceMs {
		return false
	}
	if r.UntilMs > 0 && tsMs > r.UntilMs {
		return false
	}
	return true
}

// Bounded reports whether either end is set.
func (r Range) Bounded() bool {
	return r.SinceMs > 0 || r.UntilMs > 0
}
