/*
export.go - File exports of events and tank analyses

FORMATS:
  CSV:  Scoped event list, one row per event (encoding/csv)
  XLSX: Scoped event list plus a monthly summary sheet (excelize)
  PDF:  One machine's tank analysis with its cycle table (gofpdf)

Exports reuse the same scoped queries as the JSON endpoints, so a
non-privileged caller exports exactly what they can list.
*/
package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/warp/fuel-engine/fuel"
)

var eventColumns = []string{"ID", "Date", "Machinery", "Type", "Place", "Event", "Litres", "Notes"}

func eventRecord(e fuel.EventDetail, loc *time.Location) []string {
	return []string{
		fmt.Sprint(int64(e.ID)),
		e.OccurredAt.In(loc).Format("2006-01-02 15:04"),
		e.MachineryName,
		e.MachineryType,
		e.PlaceName,
		string(e.Type),
		e.Litres.String(),
		e.Notes,
	}
}

// WriteEventsCSV writes a header row and one row per event.
func WriteEventsCSV(w io.Writer, events []fuel.EventDetail, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventColumns); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write(eventRecord(e, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildEventsXLSX renders the event list and its monthly summary.
func BuildEventsXLSX(events []fuel.EventDetail, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	eventsSheet := "events"
	monthlySheet := "monthly"
	if err := f.SetSheetName("Sheet1", eventsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return nil, err
	}

	for i, col := range eventColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(eventsSheet, cell, col)
	}
	for i, e := range events {
		row := i + 2
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("A%d", row), int64(e.ID))
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("B%d", row), e.OccurredAt.In(loc).Format("2006-01-02 15:04"))
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("C%d", row), e.MachineryName)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("D%d", row), e.MachineryType)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("E%d", row), e.PlaceName)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("F%d", row), string(e.Type))
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("G%d", row), e.Litres.Float64())
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("H%d", row), e.Notes)
	}

	_ = f.SetCellValue(monthlySheet, "A1", "Month")
	_ = f.SetCellValue(monthlySheet, "B1", "Machinery")
	_ = f.SetCellValue(monthlySheet, "C1", "Event")
	_ = f.SetCellValue(monthlySheet, "D1", "Total Litres")
	_ = f.SetCellValue(monthlySheet, "E1", "Records")
	_ = f.SetCellValue(monthlySheet, "F1", "Average Litres")
	for i, r := range fuel.SummarizeMonthly(events, loc) {
		row := i + 2
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("A%d", row), r.Month)
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("B%d", row), r.MachineryName)
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("C%d", row), string(r.Type))
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("D%d", row), r.TotalLitres.Float64())
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("E%d", row), r.RecordCount)
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("F%d", row), f64(r.AvgDailyLitres.Round(2)))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTankReportPDF renders one machine's tank analysis.
func BuildTankReportPDF(a *fuel.MachineTankAnalysis, loc *time.Location, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	litres := func(l fuel.Litres) string { return l.Value.StringFixed(1) + " L" }
	day := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.In(loc).Format("2006-01-02")
	}

	pdf.Cell(0, 8, tr("Tank Analysis: "+a.Machinery.Name))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Type: %s", a.Machinery.Type)))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Place: %s", a.Machinery.PlaceName)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tank capacity: %s", litres(a.TankCapacity)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Current level: %s", litres(a.Status.CurrentTankLevel)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Last refill: %s (%s)", day(a.Status.LastRefillDate), litres(a.Status.LastRefillAmount)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Remaining capacity: %s", litres(a.RemainingCapacity)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.In(loc).Format(time.RFC3339)))
	pdf.Ln(8)

	s := a.Statistics
	pdf.Cell(0, 6, fmt.Sprintf("Refills: %d   Refilled: %s   Consumed: %s", s.TotalRefills, litres(s.TotalRefillAmount), litres(s.TotalConsumption)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Overall discrepancy: %s (%s%%)", litres(s.OverallDiscrepancy), s.OverallDiscrepancyPercentage.StringFixed(1)))
	pdf.Ln(8)

	// Cycles table
	pdf.SetFont("Arial", "B", 10)
	for _, h := range []struct {
		w     float64
		title string
	}{{28, "Start"}, {28, "End"}, {30, "Refill"}, {30, "Consumed"}, {34, "Discrepancy"}, {24, "%"}} {
		pdf.CellFormat(h.w, 6, h.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, c := range a.Cycles {
		start := c.StartDate
		end := "Ongoing"
		if c.EndDate != nil {
			end = day(c.EndDate)
		}
		pdf.CellFormat(28, 6, day(&start), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, end, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, litres(c.RefillAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, litres(c.ConsumptionAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(34, 6, litres(c.Discrepancy), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, c.DiscrepancyPercentage.StringFixed(1), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
