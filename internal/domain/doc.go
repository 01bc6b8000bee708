// Package domain models fire-department alarm and brigade-deployment records
// and the reducers that turn them into dashboard summaries.
//
// # Data Source
//
// Two semicolon-delimited tables are exported by the dispatch system:
//
//	alarms:   alarmId;districtNo;district;alarmType;alarmLevel;brigadeCount;latitude;longitude;alarmStart;alarmEnd
//	brigades: brigadeId;name;callStart;callEnd;alarmNr
//
// A third source, the district topology, only contributes the set of valid
// district names (see [Topology]).
//
// # Time Format
//
// Timestamps are civil times in Europe/Vienna written as day.month.year
// hour:minute, e.g. "05.01.2020 10:00". Parsing goes through a single
// [Calendar] so the layout and zone live in one place. A timestamp that does
// not parse yields the zero [Instant], whose month is 0; such records never
// match a month filter but stay in the loaded sequence.
//
// # Month and District Filtering
//
// The alarm month is derived from alarmStart only, the brigade month from
// callStart only. District filtering is exact string equality. Brigades follow
// the district filter through their alarmNr reference: with a district set, a
// brigade is kept only if it references an alarm that survived the alarm filter.
//
// # Reducers
//
//	GroupByKey                            top-N frequency, optionally sorted (stable)
//	GroupAverageCallDurationByAlarmType   mean alarm duration in hours, sorted
//	GroupAlarmsByDistrict                 per-district members and counts
//
// Every reducer returns an empty, non-nil result for empty input.
package domain
