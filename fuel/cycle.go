/*
cycle.go - Tank cycle reconstruction

PURPOSE:
  Rebuilds refill-to-refill tank cycles from a time-ordered event stream.
  A cycle opens at a refill, collects every consumption until the next
  refill, and is then closed. The tail after the last refill stays open.

ALGORITHM (a fold over the events):
  refill:       close the open cycle if its refill amount is positive,
                then open a new one at this refill
  consumption:  add to the open cycle; dropped when nothing is open yet
  maintenance:  ignored

  After the scan an open cycle with a positive refill amount is emitted
  with no end date.

MODEL:
  ExpectedConsumption == RefillAmount. A refill is assumed to start from an
  empty tank and to be burned completely before the next refill. Top-ups of
  a partially full tank therefore show up as under-consumption.

EXAMPLE:
  refill 50 @d1, consume 20 @d2, consume 10 @d3, refill 50 @d4, consume 15 @d5

  cycle 1: [d1, d4)  refill 50, actual 30, discrepancy -20, -40%
  cycle 2: [d4, -)   refill 50, actual 15, discrepancy -35, -70%

SEE ALSO:
  - analysis.go: Statistics computed over the cycles
*/
package fuel

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TANK CYCLE
// =============================================================================

type TankCycle struct {
	StartDate             time.Time
	EndDate               *time.Time // nil while the cycle is ongoing
	RefillAmount          Litres
	ConsumptionAmount     Litres
	ExpectedConsumption   Litres
	Discrepancy           Litres
	DiscrepancyPercentage decimal.Decimal

	// The opening refill followed by every consumption counted in the cycle.
	Entries []EventDetail
}

// ActualConsumption is an alias kept for readability at call sites.
func (c TankCycle) ActualConsumption() Litres { return c.ConsumptionAmount }

// Ongoing reports whether the cycle has not been closed by a later refill.
func (c TankCycle) Ongoing() bool { return c.EndDate == nil }

// MachineryConsumption is one machine's share of a central tank cycle.
type MachineryConsumption struct {
	MachineryName string
	MachineryType string
	PlaceName     string
	Consumption   Litres
}

// CentralTankCycle is a cycle of the pooled tank with per-machine breakdown.
type CentralTankCycle struct {
	TankCycle
	MachineryConsumption map[MachineryID]MachineryConsumption
}

// =============================================================================
// FOLD STATE
// =============================================================================

// cycleState is the accumulator of the fold. It is passed by value and each
// step returns the next state; a closed cycle never sees later events.
type cycleState struct {
	opened   bool
	start    time.Time
	refill   Litres
	consumed Litres
	entries  []EventDetail
	machines map[MachineryID]MachineryConsumption // nil unless pooled
}

func openCycle(refill EventDetail, pooled bool) cycleState {
	s := cycleState{
		opened:   true,
		start:    refill.OccurredAt,
		refill:   refill.Litres,
		consumed: ZeroLitres(),
		entries:  []EventDetail{refill},
	}
	if pooled {
		s.machines = make(map[MachineryID]MachineryConsumption)
	}
	return s
}

// emittable is true only for cycles opened by a positive refill.
func (s cycleState) emittable() bool {
	return s.opened && s.refill.IsPositive()
}

func (s cycleState) consume(e EventDetail) cycleState {
	next := s
	next.consumed = s.consumed.Add(e.Litres)
	next.entries = append(s.entries, e)
	if s.machines != nil {
		mc, ok := s.machines[e.MachineryID]
		if !ok {
			mc = MachineryConsumption{
				MachineryName: e.MachineryName,
				MachineryType: e.MachineryType,
				PlaceName:     e.PlaceName,
				Consumption:   ZeroLitres(),
			}
		}
		mc.Consumption = mc.Consumption.Add(e.Litres)
		next.machines[e.MachineryID] = mc
	}
	return next
}

func (s cycleState) close(end *time.Time) CentralTankCycle {
	discrepancy := s.consumed.Sub(s.refill)
	cycle := CentralTankCycle{
		TankCycle: TankCycle{
			StartDate:             s.start,
			EndDate:               end,
			RefillAmount:          s.refill,
			ConsumptionAmount:     s.consumed,
			ExpectedConsumption:   s.refill,
			Discrepancy:           discrepancy,
			DiscrepancyPercentage: Percentage(discrepancy, s.refill),
			Entries:               s.entries,
		},
		MachineryConsumption: s.machines,
	}
	return cycle
}

// =============================================================================
// RECONSTRUCTION
// =============================================================================

// ReconstructCycles partitions the events of a single fuel source into tank
// cycles. Events may arrive in any order.
func ReconstructCycles(events []EventDetail) []TankCycle {
	central := reconstruct(events, false)
	cycles := make([]TankCycle, len(central))
	for i, c := range central {
		cycles[i] = c.TankCycle
	}
	return cycles
}

// ReconstructCentralCycles treats every event as drawing from one shared tank
// and keeps a per-machine consumption breakdown for each cycle.
func ReconstructCentralCycles(events []EventDetail) []CentralTankCycle {
	return reconstruct(events, true)
}

func reconstruct(events []EventDetail, pooled bool) []CentralTankCycle {
	cycles := []CentralTankCycle{}
	var state cycleState

	for _, e := range SortEvents(events) {
		switch e.Type {
		case EventRefill:
			if state.emittable() {
				end := e.OccurredAt
				cycles = append(cycles, state.close(&end))
			}
			state = openCycle(e, pooled)
		case EventConsumption:
			if state.opened {
				state = state.consume(e)
			}
		}
	}

	if state.emittable() {
		cycles = append(cycles, state.close(nil))
	}
	return cycles
}
