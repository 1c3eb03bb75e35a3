/*
analysis.go - Discrepancy statistics and tank level estimation

PURPOSE:
  Consumes reconstructed cycles plus the full event sequence of a source and
  answers: how much is in the tank now, how much was burned overall, and how
  far off is consumption from what was refilled?

TWO SCOPES:
  Cycle figures only see consumption inside a cycle window. Totals see
  EVERY event. Consumption recorded before the first refill is therefore in
  TotalConsumption but in no cycle.

TANK LEVEL:
  level = last refill - consumption since that refill (timestamp >=), floored
  at zero. No refill at all means level 0.

FORMULAS:
  OverallDiscrepancy           = TotalConsumption - TotalRefillAmount
  OverallDiscrepancyPercentage = OverallDiscrepancy / TotalRefillAmount * 100
  AverageDiscrepancy           = mean(cycle.Discrepancy)
  AverageDiscrepancyPercentage = mean(cycle.DiscrepancyPercentage)

  Every division by zero yields 0.

SEE ALSO:
  - cycle.go: Produces the cycles
  - report.go: Loads events and calls AnalyzeTank / AnalyzeCentralTank
*/
package fuel

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

type Statistics struct {
	TotalRefills                 int
	TotalConsumption             Litres
	TotalRefillAmount            Litres
	OverallDiscrepancy           Litres
	OverallDiscrepancyPercentage decimal.Decimal
	AverageDiscrepancy           decimal.Decimal
	AverageDiscrepancyPercentage decimal.Decimal
}

type TankStatus struct {
	LastRefillDate             *time.Time
	LastRefillAmount           Litres
	ConsumptionSinceLastRefill Litres
	CurrentTankLevel           Litres
}

type MachineTankAnalysis struct {
	Machinery         Machinery
	TankCapacity      Litres
	Status            TankStatus
	RemainingCapacity Litres // may be negative, never clamped
	Cycles            []TankCycle
	Statistics        Statistics
}

type MachinerySummary struct {
	ID               MachineryID
	Name             string
	Type             string
	PlaceName        string
	Capacity         Litres
	TotalConsumption Litres
	RefillCount      int
	CurrentLevel     Litres
}

type CentralTankAnalysis struct {
	Status            TankStatus
	RemainingCapacity Litres
	Cycles            []CentralTankCycle
	MachinerySummary  []MachinerySummary
	Statistics        Statistics
}

// =============================================================================
// BUILDING BLOCKS
// =============================================================================

// ComputeTankStatus finds the latest refill and what has been burned since.
func ComputeTankStatus(events []EventDetail) TankStatus {
	status := TankStatus{
		LastRefillAmount:           ZeroLitres(),
		ConsumptionSinceLastRefill: ZeroLitres(),
		CurrentTankLevel:           ZeroLitres(),
	}

	sorted := SortEvents(events)
	last := -1
	for i, e := range sorted {
		if e.Type == EventRefill {
			last = i
		}
	}
	if last < 0 {
		return status
	}

	refill := sorted[last]
	at := refill.OccurredAt
	status.LastRefillDate = &at
	status.LastRefillAmount = refill.Litres

	for _, e := range sorted {
		if e.Type == EventConsumption && !e.OccurredAt.Before(at) {
			status.ConsumptionSinceLastRefill = status.ConsumptionSinceLastRefill.Add(e.Litres)
		}
	}
	status.CurrentTankLevel = status.LastRefillAmount.Sub(status.ConsumptionSinceLastRefill).FloorZero()
	return status
}

// ComputeStatistics sums the whole event sequence and averages the cycles.
func ComputeStatistics(events []EventDetail, cycles []TankCycle) Statistics {
	stats := Statistics{
		TotalConsumption:             ZeroLitres(),
		TotalRefillAmount:            ZeroLitres(),
		OverallDiscrepancy:           ZeroLitres(),
		OverallDiscrepancyPercentage: decimal.Zero,
		AverageDiscrepancy:           decimal.Zero,
		AverageDiscrepancyPercentage: decimal.Zero,
	}

	for _, e := range events {
		switch e.Type {
		case EventConsumption:
			stats.TotalConsumption = stats.TotalConsumption.Add(e.Litres)
		case EventRefill:
			stats.TotalRefills++
			stats.TotalRefillAmount = stats.TotalRefillAmount.Add(e.Litres)
		}
	}

	stats.OverallDiscrepancy = stats.TotalConsumption.Sub(stats.TotalRefillAmount)
	stats.OverallDiscrepancyPercentage = Percentage(stats.OverallDiscrepancy, stats.TotalRefillAmount)

	if len(cycles) > 0 {
		sum, sumPct := decimal.Zero, decimal.Zero
		for _, c := range cycles {
			sum = sum.Add(c.Discrepancy.Value)
			sumPct = sumPct.Add(c.DiscrepancyPercentage)
		}
		n := decimal.NewFromInt(int64(len(cycles)))
		stats.AverageDiscrepancy = sum.Div(n)
		stats.AverageDiscrepancyPercentage = sumPct.Div(n)
	}
	return stats
}

// =============================================================================
// PER-MACHINE ANALYSIS
// =============================================================================

// AnalyzeTank runs the full analysis for one machine's events.
func AnalyzeTank(m Machinery, events []EventDetail) MachineTankAnalysis {
	cycles := ReconstructCycles(events)
	status := ComputeTankStatus(events)
	return MachineTankAnalysis{
		Machinery:         m,
		TankCapacity:      m.Capacity,
		Status:            status,
		RemainingCapacity: m.Capacity.Sub(status.CurrentTankLevel),
		Cycles:            cycles,
		Statistics:        ComputeStatistics(events, cycles),
	}
}

// =============================================================================
// CENTRAL TANK ANALYSIS
// =============================================================================

// AnalyzeCentralTank pools every machine's events into one virtual tank.
// known supplies capacity and names for machines; events carry names too, so
// a machine missing from known still gets a summary.
func AnalyzeCentralTank(events []EventDetail, known map[MachineryID]Machinery) CentralTankAnalysis {
	cycles := ReconstructCentralCycles(events)
	plain := make([]TankCycle, len(cycles))
	for i, c := range cycles {
		plain[i] = c.TankCycle
	}

	status := ComputeTankStatus(events)
	return CentralTankAnalysis{
		Status:            status,
		RemainingCapacity: status.LastRefillAmount.Sub(status.CurrentTankLevel),
		Cycles:            cycles,
		MachinerySummary:  summarizeMachinery(events, known),
		Statistics:        ComputeStatistics(events, plain),
	}
}

func summarizeMachinery(events []EventDetail, known map[MachineryID]Machinery) []MachinerySummary {
	byMachine := make(map[MachineryID][]EventDetail)
	var order []MachineryID
	for _, e := range events {
		if _, seen := byMachine[e.MachineryID]; !seen {
			order = append(order, e.MachineryID)
		}
		byMachine[e.MachineryID] = append(byMachine[e.MachineryID], e)
	}

	summaries := make([]MachinerySummary, 0, len(order))
	for _, id := range order {
		own := byMachine[id]
		first := own[0]
		s := MachinerySummary{
			ID:               id,
			Name:             first.MachineryName,
			Type:             first.MachineryType,
			PlaceName:        first.PlaceName,
			Capacity:         ZeroLitres(),
			TotalConsumption: ZeroLitres(),
		}
		if m, ok := known[id]; ok {
			s.Name, s.Type, s.PlaceName, s.Capacity = m.Name, m.Type, m.PlaceName, m.Capacity
		}
		for _, e := range own {
			switch e.Type {
			case EventConsumption:
				s.TotalConsumption = s.TotalConsumption.Add(e.Litres)
			case EventRefill:
				s.RefillCount++
			}
		}
		s.CurrentLevel = ComputeTankStatus(own).CurrentTankLevel
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Name != summaries[j].Name {
			return summaries[i].Name < summaries[j].Name
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}
