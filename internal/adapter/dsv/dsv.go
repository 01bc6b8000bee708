// Package dsv decodes the semicolon-delimited alarm and brigade exports.
package dsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
)

// Delimiter separates fields in both exports.
const Delimiter = ';'

var (
	alarmColumns   = []string{"alarmId", "districtNo", "district", "alarmType", "alarmLevel", "brigadeCount", "latitude", "longitude", "alarmStart", "alarmEnd"}
	brigadeColumns = []string{"brigadeId", "name", "callStart", "callEnd", "alarmNr"}
)

// Stats describes one decoded table.
type Stats struct {
	Rows                int
	MalformedTimestamps int
}

// table is a header-indexed view over the rows of one export.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader, required []string) (*table, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[strings.TrimSpace(h)] = i
	}
	for _, c := range required {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &table{columns: columns, rows: rows}, nil
}

func (t *table) get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// DecodeAlarms reads the alarm export. Unparseable numbers become 0 and
// unparseable timestamps become invalid instants; neither fails the table.
func DecodeAlarms(r io.Reader, cal *domain.Calendar) ([]domain.Alarm, Stats, error) {
	t, err := readTable(r, alarmColumns)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("decode alarms: %w", err)
	}

	stats := Stats{Rows: len(t.rows)}
	alarms := make([]domain.Alarm, 0, len(t.rows))
	for _, row := range t.rows {
		a := domain.Alarm{
			AlarmID:      parseIntOrZero(t.get(row, "alarmId")),
			DistrictNo:   parseIntOrZero(t.get(row, "districtNo")),
			District:     t.get(row, "district"),
			AlarmType:    t.get(row, "alarmType"),
			AlarmLevel:   parseIntOrZero(t.get(row, "alarmLevel")),
			BrigadeCount: parseIntOrZero(t.get(row, "brigadeCount")),
			Latitude:     parseFloatOrZero(t.get(row, "latitude")),
			Longitude:    parseFloatOrZero(t.get(row, "longitude")),
			AlarmStart:   cal.Parse(t.get(row, "alarmStart")),
			AlarmEnd:     cal.Parse(t.get(row, "alarmEnd")),
		}
		if !a.AlarmStart.Valid() || !a.AlarmEnd.Valid() {
			stats.MalformedTimestamps++
		}
		alarms = append(alarms, a)
	}
	return alarms, stats, nil
}

// DecodeBrigades reads the brigade export. A blank or unparseable alarmNr
// leaves the brigade unlinked.
func DecodeBrigades(r io.Reader, cal *domain.Calendar) ([]domain.Brigade, Stats, error) {
	t, err := readTable(r, brigadeColumns)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("decode brigades: %w", err)
	}

	stats := Stats{Rows: len(t.rows)}
	brigades := make([]domain.Brigade, 0, len(t.rows))
	for _, row := range t.rows {
		b := domain.Brigade{
			BrigadeID: parseIntOrZero(t.get(row, "brigadeId")),
			Name:      t.get(row, "name"),
			CallStart: cal.Parse(t.get(row, "callStart")),
			CallEnd:   cal.Parse(t.get(row, "callEnd")),
			AlarmNr:   parseOptionalInt(t.get(row, "alarmNr")),
		}
		if !b.CallStart.Valid() || !b.CallEnd.Valid() {
			stats.MalformedTimestamps++
		}
		brigades = append(brigades, b)
	}
	return brigades, stats, nil
}

// parseIntOrZero parses a base-10 integer, returning 0 on failure.
func parseIntOrZero(s string) int {
	if v := parseOptionalInt(s); v != nil {
		return *v
	}
	return 0
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// parseFloatOrZero parses a float, returning 0 on failure. A decimal comma
// is accepted.
func parseFloatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return v
}
