package journal

import (
	"time"

	"github.com/woodshedapp/woodshed/internal/util"
	"github.com/woodshedapp/woodshed/kvstore"
)

const (
	practiceTimePrefix = "practice:"
	practiceLogPrefix  = "logs:"
)

// TimeRecord is one day of practice time, keyed by its date.
// TotalMinutes is derived and recomputed on every write, never carried over
// from a stale copy.
type TimeRecord struct {
	Date         string `json:"date"`
	Hours        int    `json:"hours"`
	Minutes      int    `json:"minutes"`
	TotalMinutes int    `json:"total_minutes"`
	Note         string `json:"note,omitempty"`
}

// NewTimeRecord validates the inputs and derives TotalMinutes.
func NewTimeRecord(date string, hours, minutes int, note string) (TimeRecord, error) {
	if !util.ValidDateKey(date) {
		return TimeRecord{}, invalidRecord("date %q is not YYYY-MM-DD", date)
	}
	if hours < 0 || hours > 24 {
		return TimeRecord{}, invalidRecord("hours out of range")
	}
	if minutes < 0 || minutes > 59 {
		return TimeRecord{}, invalidRecord("minutes out of range")
	}
	return TimeRecord{
		Date:         date,
		Hours:        hours,
		Minutes:      minutes,
		TotalMinutes: hours*60 + minutes,
		Note:         note,
	}, nil
}

// LogEntry is one practice-log note, keyed by its generated id.
type LogEntry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTimeCache builds the practice-time cache. Views sort ascending by
// date; the date keys are YYYY-MM-DD so lexicographic order is
// chronological.
func NewTimeCache(kv kvstore.Store) *Cache[TimeRecord] {
	return newCache(kv, practiceTimePrefix,
		func(a, b TimeRecord) bool { return a.Date < b.Date },
		func(r TimeRecord) int { return r.TotalMinutes },
	)
}

// NewLogCache builds the practice-log cache. Views sort newest first.
func NewLogCache(kv kvstore.Store) *Cache[LogEntry] {
	return newCache(kv, practiceLogPrefix,
		func(a, b LogEntry) bool {
			if a.Date != b.Date {
				return a.Date > b.Date
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
		nil,
	)
}
