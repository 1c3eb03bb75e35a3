package fuel

import "time"

// =============================================================================
// CALLER & ROLES
// =============================================================================

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Privileged reports whether the role sees data outside the current month.
func (r Role) Privileged() bool { return r == RoleSuperAdmin }

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   UserID
	Role Role
}

// =============================================================================
// EVENT FILTER
// =============================================================================

// EventFilter narrows an event query. Zero values mean "no constraint".
// Month is only honoured together with Year.
type EventFilter struct {
	MachineryID *MachineryID
	Type        *EventType
	Range       DateRange
	Day         *time.Time
	Year        int
	Month       time.Month

	// Location anchors Year, Month and Day to a calendar. Nil means UTC.
	Location *time.Location
}

func (f EventFilter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Bounds collapses every date constraint of the filter into one half-open
// interval [from, to). Either side is nil when unbounded.
func (f EventFilter) Bounds() (from, to *time.Time) {
	loc := f.location()

	lower := func(t time.Time) {
		if from == nil || t.After(*from) {
			from = &t
		}
	}
	upper := func(t time.Time) {
		if to == nil || t.Before(*to) {
			to = &t
		}
	}

	if f.Range.From != nil {
		lower(*f.Range.From)
	}
	if end := f.Range.ExclusiveEnd(); end != nil {
		upper(*end)
	}
	if f.Year != 0 {
		if f.Month >= time.January && f.Month <= time.December {
			lower(StartOfMonth(f.Year, f.Month, loc))
			upper(StartOfNextMonth(f.Year, f.Month, loc))
		} else {
			lower(time.Date(f.Year, time.January, 1, 0, 0, 0, 0, loc))
			upper(time.Date(f.Year+1, time.January, 1, 0, 0, 0, 0, loc))
		}
	}
	if f.Day != nil {
		d := f.Day.In(loc)
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		lower(start)
		upper(start.AddDate(0, 0, 1))
	}
	return from, to
}

// Matches reports whether e satisfies the filter. In-memory stores use it;
// SQL stores translate the same rules into a WHERE clause.
func (f EventFilter) Matches(e Event) bool {
	if f.MachineryID != nil && e.MachineryID != *f.MachineryID {
		return false
	}
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	from, to := f.Bounds()
	if from != nil && e.OccurredAt.Before(*from) {
		return false
	}
	if to != nil && !e.OccurredAt.Before(*to) {
		return false
	}
	return true
}

// =============================================================================
// ROLE-BASED DATE SCOPE
// =============================================================================

// ApplyDateScope restricts non-privileged callers to the current calendar
// month of now unless they asked for an explicit year.
//
//   - superadmin: filter returned unchanged
//   - explicit Year (with or without Month): honoured as-is
//   - neither Year nor Month: pinned to now's year and month
//   - Month without Year: year pinned to now's year, month kept
//
// Nothing else in the filter is touched, and the result depends only on the
// arguments.
func ApplyDateScope(caller Caller, filter EventFilter, now time.Time) EventFilter {
	if caller.Role.Privileged() {
		return filter
	}
	if filter.Year != 0 {
		return filter
	}
	if filter.Location != nil {
		now = now.In(filter.Location)
	}
	scoped := filter
	scoped.Year = now.Year()
	if filter.Month == 0 {
		scoped.Month = now.Month()
	}
	return scoped
}
