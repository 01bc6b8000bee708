package domain

// Alarm is one emergency dispatch event.
type Alarm struct {
	AlarmID      int     `json:"alarm_id"`
	DistrictNo   int     `json:"district_no"`
	District     string  `json:"district"`
	AlarmType    string  `json:"alarm_type"`
	AlarmLevel   int     `json:"alarm_level"`
	BrigadeCount int     `json:"brigade_count"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	AlarmStart   Instant `json:"alarm_start"`
	AlarmEnd     Instant `json:"alarm_end"`
}

// Brigade is one unit's deployment. AlarmNr is nil when the row carries no
// alarm reference.
type Brigade struct {
	BrigadeID int     `json:"brigade_id"`
	Name      string  `json:"name"`
	CallStart Instant `json:"call_start"`
	CallEnd   Instant `json:"call_end"`
	AlarmNr   *int    `json:"alarm_nr,omitempty"`
}

// References reports whether the brigade is linked to the given alarm id.
func (b Brigade) References(alarmID int) bool {
	return b.AlarmNr != nil && *b.AlarmNr == alarmID
}
