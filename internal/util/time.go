package util

import "time"

// Now returns the current instant in UTC. All persisted timestamps go
// through this so that records compare identically regardless of the host
// timezone.
func Now() time.Time {
	return time.Now().UTC()
}

// DateKey formats t as the stable YYYY-MM-DD sub-key used by per-user
// aggregates. Lexicographic order of keys equals chronological order.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// ValidDateKey reports whether s is a well-formed YYYY-MM-DD date.
func ValidDateKey(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
