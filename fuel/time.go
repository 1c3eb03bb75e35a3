package fuel

import (
	"sort"
	"time"
)

// =============================================================================
// CLOCK - Server time source
// =============================================================================

// Clock supplies the server's notion of "now". The date scope depends on it,
// so tests pin it with FixedClock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func StartOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, loc)
}

// StartOfNextMonth is the exclusive upper bound of a calendar month.
func StartOfNextMonth(year int, month time.Month, loc *time.Location) time.Time {
	return StartOfMonth(year, month, loc).AddDate(0, 1, 0)
}

func DayKey(t time.Time) string   { return t.Format("2006-01-02") }
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// =============================================================================
// ORDERING
// =============================================================================

// EventLess reports whether a sorts before b under the (OccurredAt, CreatedAt, ID) order.
func EventLess(a, b Event) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortEvents returns a copy of events in ascending event order.
// The input is left untouched.
func SortEvents(events []EventDetail) []EventDetail {
	sorted := make([]EventDetail, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return EventLess(sorted[i].Event, sorted[j].Event)
	})
	return sorted
}
