package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Vienna must resolve on hosts without a zoneinfo database.
)

const (
	// DefaultLayout is day.month.year hour:minute. The exported tables use
	// two-digit days; both "DD" and "dd" spellings seen upstream mean the same.
	DefaultLayout = "02.01.2006 15:04"

	// DefaultTimezone is the civil zone of the dispatch system.
	DefaultTimezone = "Europe/Vienna"

	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Instant is a parsed timestamp. The zero value is the invalid sentinel
// produced for unparseable input.
type Instant struct {
	t time.Time
}

// InstantOf wraps t. A zero t yields the invalid Instant.
func InstantOf(t time.Time) Instant {
	return Instant{t: t}
}

// Valid reports whether the instant was parsed successfully.
func (i Instant) Valid() bool {
	return !i.t.IsZero()
}

// Time returns the underlying time, zero when invalid.
func (i Instant) Time() time.Time {
	return i.t
}

// Month returns the calendar month 1-12 in the instant's zone, or 0 when
// invalid so that it never equals a selectable month.
func (i Instant) Month() int {
	if !i.Valid() {
		return 0
	}
	return int(i.t.Month())
}

// StartOfDay truncates to local midnight in the instant's zone.
func (i Instant) StartOfDay() Instant {
	if !i.Valid() {
		return i
	}
	y, m, d := i.t.Date()
	return Instant{t: time.Date(y, m, d, 0, 0, 0, 0, i.t.Location())}
}

// ISO formats the instant as UTC ISO-8601 with millisecond precision,
// e.g. "2020-01-04T23:00:00.000Z". Invalid instants format as "".
func (i Instant) ISO() string {
	if !i.Valid() {
		return ""
	}
	return i.t.UTC().Format(isoLayout)
}

// MinutesUntil returns the whole minutes from i to end, truncated toward zero.
// The second result is false when either instant is invalid.
func (i Instant) MinutesUntil(end Instant) (int64, bool) {
	if !i.Valid() || !end.Valid() {
		return 0, false
	}
	return int64(end.t.Sub(i.t) / time.Minute), true
}

func (i Instant) String() string {
	if !i.Valid() {
		return "invalid"
	}
	return i.ISO()
}

// MarshalJSON encodes the ISO string, or null when invalid.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(i.ISO())
}

// UnmarshalJSON accepts the ISO form written by MarshalJSON, or null.
func (i *Instant) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Instant{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode instant: %w", err)
	}
	if s == "" {
		*i = Instant{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("decode instant: %w", err)
	}
	*i = Instant{t: t}
	return nil
}

// Calendar converts exported timestamp strings into instants. It is the only
// place that knows the layout and zone.
type Calendar struct {
	layout string
	loc    *time.Location
}

// NewCalendar builds a Calendar for the given layout and IANA zone name.
func NewCalendar(layout, timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if layout == "" {
		layout = DefaultLayout
	}
	return &Calendar{layout: layout, loc: loc}, nil
}

// DefaultCalendar returns the Europe/Vienna day.month.year calendar.
func DefaultCalendar() *Calendar {
	c, err := NewCalendar(DefaultLayout, DefaultTimezone)
	if err != nil {
		// tzdata is embedded, so this only fires on a broken build.
		panic(err)
	}
	return c
}

// Location returns the calendar's zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Parse converts s into an Instant. Malformed input yields the invalid Instant
// rather than an error.
func (c *Calendar) Parse(s string) Instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instant{}
	}
	t, err := time.ParseInLocation(c.layout, s, c.loc)
	if err != nil {
		return Instant{}
	}
	return Instant{t: t}
}

// Date builds an instant from civil fields in the calendar's zone.
func (c *Calendar) Date(year int, month time.Month, day, hour, minute int) Instant {
	return Instant{t: time.Date(year, month, day, hour, minute, 0, 0, c.loc)}
}
