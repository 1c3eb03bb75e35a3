package fuel

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY ROWS
// =============================================================================

// DailySummaryRow aggregates the events of one machine, one type, one day.
type DailySummaryRow struct {
	Date          string // YYYY-MM-DD in the reporting location
	MachineryID   MachineryID
	MachineryName string
	MachineryType string
	PlaceName     string
	Type          EventType
	TotalLitres   Litres
	RecordCount   int
}

// MonthlySummaryRow aggregates the events of one machine, one type, one month.
type MonthlySummaryRow struct {
	Month          string // YYYY-MM in the reporting location
	MachineryID    MachineryID
	MachineryName  string
	MachineryType  string
	PlaceName      string
	Type           EventType
	TotalLitres    Litres
	RecordCount    int
	AvgDailyLitres decimal.Decimal // mean litres per record
}

type summaryKey struct {
	period    string
	machinery MachineryID
	typ       EventType
}

type summaryAcc struct {
	first EventDetail
	total Litres
	count int
}

// groupEvents buckets events by (period, machine, type). The returned keys
// are sorted newest period first, then by machine name, machine id and type.
func groupEvents(events []EventDetail, period func(time.Time) string, loc *time.Location) ([]summaryKey, map[summaryKey]*summaryAcc) {
	if loc == nil {
		loc = time.UTC
	}
	groups := make(map[summaryKey]*summaryAcc)
	var keys []summaryKey
	for _, e := range events {
		k := summaryKey{period: period(e.OccurredAt.In(loc)), machinery: e.MachineryID, typ: e.Type}
		acc, ok := groups[k]
		if !ok {
			acc = &summaryAcc{first: e, total: ZeroLitres()}
			groups[k] = acc
			keys = append(keys, k)
		}
		acc.total = acc.total.Add(e.Litres)
		acc.count++
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.period != b.period {
			return a.period > b.period
		}
		an, bn := groups[a].first.MachineryName, groups[b].first.MachineryName
		if an != bn {
			return an < bn
		}
		if a.machinery != b.machinery {
			return a.machinery < b.machinery
		}
		return a.typ < b.typ
	})
	return keys, groups
}

// SummarizeDaily groups events per calendar day in loc.
func SummarizeDaily(events []EventDetail, loc *time.Location) []DailySummaryRow {
	keys, groups := groupEvents(events, DayKey, loc)
	rows := make([]DailySummaryRow, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		rows = append(rows, DailySummaryRow{
			Date:          k.period,
			MachineryID:   k.machinery,
			MachineryName: acc.first.MachineryName,
			MachineryType: acc.first.MachineryType,
			PlaceName:     acc.first.PlaceName,
			Type:          k.typ,
			TotalLitres:   acc.total,
			RecordCount:   acc.count,
		})
	}
	return rows
}

// SummarizeMonthly groups events per calendar month in loc.
func SummarizeMonthly(events []EventDetail, loc *time.Location) []MonthlySummaryRow {
	keys, groups := groupEvents(events, MonthKey, loc)
	rows := make([]MonthlySummaryRow, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		avg := decimal.Zero
		if acc.count > 0 {
			avg = acc.total.Value.Div(decimal.NewFromInt(int64(acc.count)))
		}
		rows = append(rows, MonthlySummaryRow{
			Month:          k.period,
			MachineryID:    k.machinery,
			MachineryName:  acc.first.MachineryName,
			MachineryType:  acc.first.MachineryType,
			PlaceName:      acc.first.PlaceName,
			Type:           k.typ,
			TotalLitres:    acc.total,
			RecordCount:    acc.count,
			AvgDailyLitres: avg,
		})
	}
	return rows
}
