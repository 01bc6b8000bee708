package pipeline

import (
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
)

// Limits caps the length of each chart series.
type Limits struct {
	TopAlarmTypes   int
	TopBrigades     int
	AverageDuration int
	DaysPerMonth    int
}

// DefaultLimits matches the dashboard's chart sizes.
func DefaultLimits() Limits {
	return Limits{
		TopAlarmTypes:   10,
		TopBrigades:     10,
		AverageDuration: 20,
		DaysPerMonth:    31,
	}
}

// Snapshot is the loaded data set. It is never mutated after Load.
type Snapshot struct {
	Topology domain.Topology
	Alarms   []domain.Alarm
	Brigades []domain.Brigade
	LoadedAt time.Time
}

// Summary is everything the renderers need for one selection. Each cycle
// produces a fresh Summary; earlier ones are never modified.
type Summary struct {
	CycleID       string           `json:"cycle_id"`
	ComputedAt    time.Time        `json:"computed_at"`
	Selection     domain.Selection `json:"selection"`
	DistrictLabel string           `json:"district_label"`

	FilteredAlarms []domain.Alarm `json:"filtered_alarms"`
	BrigadeCount   int            `json:"brigade_count"`

	DistrictCounts []domain.DistrictCount    `json:"district_counts"`
	DistrictAlarms map[string][]domain.Alarm `json:"-"`
	Choropleth     []domain.DistrictCount    `json:"choropleth"`
	UnmappedAlarms int                       `json:"unmapped_alarms"`
	ColorDomain    domain.ColorDomain        `json:"color_domain"`

	TopAlarmTypes       []domain.KeyValue `json:"top_alarm_types"`
	MostActiveBrigades  []domain.KeyValue `json:"most_active_brigades"`
	AverageCallDuration []domain.KeyValue `json:"average_call_duration_hours"`
	AlarmsPerDay        []domain.KeyValue `json:"alarms_per_day"`
}

// Recompute filters the snapshot to sel and runs every reducer over the
// result. It has no side effects; CycleID and ComputedAt are left for the
// caller to stamp.
func Recompute(snap *Snapshot, sel domain.Selection, limits Limits) Summary {
	alarms := domain.FilterAlarms(snap.Alarms, sel.Month, sel.District)
	brigades := domain.FilterBrigades(snap.Brigades, alarms, sel.Month, sel.District)

	grouping := domain.GroupAlarmsByDistrict(alarms)
	choropleth, unmapped := snap.Topology.Choropleth(grouping)

	return Summary{
		Selection:     sel,
		DistrictLabel: sel.Label(),

		FilteredAlarms: alarms,
		BrigadeCount:   len(brigades),

		DistrictCounts: grouping.Counts(),
		DistrictAlarms: grouping.Members(),
		Choropleth:     choropleth,
		UnmappedAlarms: unmapped,
		ColorDomain:    grouping.Restrict(snap.Topology).ColorDomain(),

		TopAlarmTypes:       domain.TopAlarmTypes(alarms, limits.TopAlarmTypes),
		MostActiveBrigades:  domain.MostActiveBrigades(brigades, limits.TopBrigades),
		AverageCallDuration: domain.GroupAverageCallDurationByAlarmType(alarms, limits.AverageDuration),
		AlarmsPerDay:        domain.AlarmsPerDay(alarms, limits.DaysPerMonth),
	}
}
