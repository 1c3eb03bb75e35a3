/*
report.go - Reporting façade (read side)

PURPOSE:
  Reporter composes the store, the role-based date scope, the cycle
  reconstructor and the discrepancy analyzer into the read operations the
  HTTP layer exposes. It holds no state between calls; every request is
  recomputed from the store.

FLOW:
  caller + filter -> ApplyDateScope (list and summaries only)
                  -> EventStore
                  -> ReconstructCycles / AnalyzeTank (tank analyses only)

PAGINATION:
  The scoped filter is computed once per list call and the same value is
  handed to ListEvents and CountEvents. Pages and totals can therefore never
  disagree about which rows exist.

TANK ANALYSES:
  Tank analyses are bounded only by the explicit date range. The current-month
  scope of non-privileged callers is not applied, since a cycle that started
  last month would otherwise lose its opening refill.

ERRORS:
  Store failures are wrapped in ErrAnalysisUnavailable. A missing machine is
  ErrMachineryNotFound.
*/
package fuel

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// =============================================================================
// PAGING
// =============================================================================

// Page selects one page of a listing. Zero values fall back to page 1 of
// DefaultPageSize.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

type EventPage struct {
	Events       []EventDetail
	CurrentPage  int
	PerPage      int
	TotalRecords int
	TotalPages   int
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	Events    EventStore
	Machinery MachineryStore
	Clock     Clock

	// Location is the calendar used for the date scope and for day/month
	// grouping. Nil means UTC.
	Location *time.Location
}

func NewReporter(events EventStore, machinery MachineryStore, clock Clock, loc *time.Location) *Reporter {
	if clock == nil {
		clock = SystemClock{Location: loc}
	}
	return &Reporter{Events: events, Machinery: machinery, Clock: clock, Location: loc}
}

func (r *Reporter) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// ScopedFilter returns the filter the store will actually see for caller.
func (r *Reporter) ScopedFilter(caller Caller, filter EventFilter) EventFilter {
	if filter.Location == nil {
		filter.Location = r.location()
	}
	return ApplyDateScope(caller, filter, r.Clock.Now())
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAnalysisUnavailable, op, err)
}

// =============================================================================
// LIST & SUMMARIES
// =============================================================================

// ListEvents returns one page of scoped events, newest first.
func (r *Reporter) ListEvents(ctx context.Context, caller Caller, filter EventFilter, page Page) (*EventPage, error) {
	page = page.normalize()
	scoped := r.ScopedFilter(caller, filter)

	events, err := r.Events.ListEvents(ctx, EventQuery{
		Filter:     scoped,
		Descending: true,
		Limit:      page.Size,
		Offset:     (page.Number - 1) * page.Size,
	})
	if err != nil {
		return nil, unavailable("list events", err)
	}
	total, err := r.Events.CountEvents(ctx, scoped)
	if err != nil {
		return nil, unavailable("count events", err)
	}

	return &EventPage{
		Events:       events,
		CurrentPage:  page.Number,
		PerPage:      page.Size,
		TotalRecords: total,
		TotalPages:   (total + page.Size - 1) / page.Size,
	}, nil
}

// ScopedEvents returns every scoped event, newest first. Used by summaries
// and exports.
func (r *Reporter) ScopedEvents(ctx context.Context, caller Caller, filter EventFilter) ([]EventDetail, error) {
	events, err := r.Events.ListEvents(ctx, EventQuery{
		Filter:     r.ScopedFilter(caller, filter),
		Descending: true,
	})
	if err != nil {
		return nil, unavailable("list events", err)
	}
	return events, nil
}

func (r *Reporter) DailySummary(ctx context.Context, caller Caller, filter EventFilter) ([]DailySummaryRow, error) {
	events, err := r.ScopedEvents(ctx, caller, filter)
	if err != nil {
		return nil, err
	}
	return SummarizeDaily(events, r.location()), nil
}

func (r *Reporter) MonthlySummary(ctx context.Context, caller Caller, filter EventFilter) ([]MonthlySummaryRow, error) {
	events, err := r.ScopedEvents(ctx, caller, filter)
	if err != nil {
		return nil, err
	}
	return SummarizeMonthly(events, r.location()), nil
}

// =============================================================================
// TANK ANALYSES
// =============================================================================

// MachineTankAnalysis analyzes one machine's tank over an optional range.
func (r *Reporter) MachineTankAnalysis(ctx context.Context, id MachineryID, rng DateRange) (*MachineTankAnalysis, error) {
	m, err := r.Machinery.GetMachinery(ctx, id)
	if err != nil {
		return nil, unavailable("load machinery", err)
	}
	if m == nil {
		return nil, ErrMachineryNotFound
	}

	events, err := r.Events.ListEvents(ctx, EventQuery{
		Filter: EventFilter{MachineryID: &id, Range: rng, Location: r.location()},
	})
	if err != nil {
		return nil, unavailable("list events", err)
	}

	analysis := AnalyzeTank(*m, events)
	return &analysis, nil
}

// CentralTankAnalysis pools every machine's events into one virtual tank.
func (r *Reporter) CentralTankAnalysis(ctx context.Context, rng DateRange) (*CentralTankAnalysis, error) {
	events, err := r.Events.ListEvents(ctx, EventQuery{
		Filter: EventFilter{Range: rng, Location: r.location()},
	})
	if err != nil {
		return nil, unavailable("list events", err)
	}
	machines, err := r.Machinery.ListMachinery(ctx)
	if err != nil {
		return nil, unavailable("list machinery", err)
	}

	known := make(map[MachineryID]Machinery, len(machines))
	for _, m := range machines {
		known[m.ID] = m
	}
	analysis := AnalyzeCentralTank(events, known)
	return &analysis, nil
}
