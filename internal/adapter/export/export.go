// Package export renders a dashboard summary as a spreadsheet or a PDF report.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX export.
const (
	SheetSummary    = "summary"
	SheetDistricts  = "districts"
	SheetAlarmTypes = "alarm_types"
	SheetBrigades   = "brigades"
	SheetDurations  = "durations"
	SheetDays       = "days"
)

// BuildSummaryXLSX renders the summary as a workbook with one sheet per series.
func BuildSummaryXLSX(s pipeline.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	_ = f.SetSheetName("Sheet1", SheetSummary)
	_ = f.SetCellValue(SheetSummary, "A1", "Alarm Summary")
	_ = f.SetCellValue(SheetSummary, "A3", "Month")
	_ = f.SetCellValue(SheetSummary, "B3", s.Selection.Month)
	_ = f.SetCellValue(SheetSummary, "A4", "District")
	_ = f.SetCellValue(SheetSummary, "B4", s.DistrictLabel)
	_ = f.SetCellValue(SheetSummary, "A5", "Alarms")
	_ = f.SetCellValue(SheetSummary, "B5", len(s.FilteredAlarms))
	_ = f.SetCellValue(SheetSummary, "A6", "Brigade calls")
	_ = f.SetCellValue(SheetSummary, "B6", s.BrigadeCount)
	_ = f.SetCellValue(SheetSummary, "A7", "Unmapped alarms")
	_ = f.SetCellValue(SheetSummary, "B7", s.UnmappedAlarms)
	_ = f.SetCellValue(SheetSummary, "A8", "Color domain")
	_ = f.SetCellValue(SheetSummary, "B8", s.ColorDomain.Min)
	_ = f.SetCellValue(SheetSummary, "C8", s.ColorDomain.Max)
	_ = f.SetCellValue(SheetSummary, "A9", "Computed at")
	_ = f.SetCellValue(SheetSummary, "B9", s.ComputedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(SheetSummary, "A10", "Cycle")
	_ = f.SetCellValue(SheetSummary, "B10", s.CycleID)

	if _, err := f.NewSheet(SheetDistricts); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", SheetDistricts, err)
	}
	_ = f.SetCellValue(SheetDistricts, "A1", "District")
	_ = f.SetCellValue(SheetDistricts, "B1", "Alarms")
	for i, dc := range s.DistrictCounts {
		row := i + 2
		_ = f.SetCellValue(SheetDistricts, fmt.Sprintf("A%d", row), dc.District)
		_ = f.SetCellValue(SheetDistricts, fmt.Sprintf("B%d", row), dc.Count)
	}

	series := []struct {
		sheet  string
		key    string
		value  string
		values []domain.KeyValue
	}{
		{SheetAlarmTypes, "Alarm type", "Alarms", s.TopAlarmTypes},
		{SheetBrigades, "Brigade", "Calls", s.MostActiveBrigades},
		{SheetDurations, "Alarm type", "Average duration (h)", s.AverageCallDuration},
		{SheetDays, "Day", "Alarms", s.AlarmsPerDay},
	}
	for _, sr := range series {
		if _, err := f.NewSheet(sr.sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sr.sheet, err)
		}
		_ = f.SetCellValue(sr.sheet, "A1", sr.key)
		_ = f.SetCellValue(sr.sheet, "B1", sr.value)
		for i, kv := range sr.values {
			row := i + 2
			_ = f.SetCellValue(sr.sheet, fmt.Sprintf("A%d", row), kv.Key)
			_ = f.SetCellValue(sr.sheet, fmt.Sprintf("B%d", row), kv.Value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryPDF renders a one-document report of the summary.
func BuildSummaryPDF(s pipeline.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alarm Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Month: %s", time.Month(s.Selection.Month)))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("District: %s", s.DistrictLabel)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alarms: %d", len(s.FilteredAlarms)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Brigade calls: %d", s.BrigadeCount))
	pdf.Ln(5)
	if s.UnmappedAlarms > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Alarms outside the map: %d", s.UnmappedAlarms))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", s.ComputedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	table := func(title, keyHeader, valueHeader string, rows []domain.KeyValue, format func(float64) string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, title)
		pdf.Ln(7)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(110, 6, keyHeader, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, valueHeader, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, kv := range rows {
			pdf.CellFormat(110, 6, tr(kv.Key), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, format(kv.Value), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	districts := make([]domain.KeyValue, len(s.DistrictCounts))
	for i, dc := range s.DistrictCounts {
		districts[i] = domain.KeyValue{Key: dc.District, Value: float64(dc.Count)}
	}

	table("Alarms per district", "District", "Alarms", districts, formatCount)
	table("Top alarm types", "Alarm type", "Alarms", s.TopAlarmTypes, formatCount)
	table("Most active brigades", "Brigade", "Calls", s.MostActiveBrigades, formatCount)
	table("Average duration", "Alarm type", "Hours", s.AverageCallDuration, formatHours)
	table("Alarms per day", "Day", "Alarms", s.AlarmsPerDay, formatCount)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
