package fuel

import "time"

// =============================================================================
// DATE RANGE - Optional window for tank analysis and listing
// =============================================================================

// DateRange bounds an analysis. Both ends are optional and inclusive.
//
// A To value with no time-of-day component (midnight) is treated as the whole
// day, so "2025-09-30" includes events recorded at 17:00 that day.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains returns true if t is within [From, To].
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(r.upperBound()) {
		return false
	}
	return true
}

// IsZero reports whether the range is unbounded on both sides.
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// upperBound returns the exclusive upper limit implied by To.
func (r DateRange) upperBound() time.Time {
	to := *r.To
	if to.Equal(StartOfDay(to)) {
		return to.AddDate(0, 0, 1)
	}
	return to.Add(time.Nanosecond)
}

// ExclusiveEnd returns the exclusive upper bound, or nil when To is unset.
func (r DateRange) ExclusiveEnd() *time.Time {
	if r.To == nil {
		return nil
	}
	end := r.upperBound()
	return &end
}

func (r DateRange) String() string {
	from, to := "-inf", "+inf"
	if r.From != nil {
		from = r.From.Format(time.RFC3339)
	}
	if r.To != nil {
		to = r.To.Format(time.RFC3339)
	}
	return "[" + from + ", " + to + "]"
}
